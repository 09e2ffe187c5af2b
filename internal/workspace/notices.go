package workspace

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fakeyudi/annotate/internal/session"
)

// MaxNoticeIDs caps how many dropped ids a warning lists.
const MaxNoticeIDs = 20

// Level is the severity of a notice.
type Level int

const (
	Info Level = iota
	Warning
)

func (l Level) String() string {
	if l == Warning {
		return "warning"
	}
	return "info"
}

// Notice is one user-facing message about a load.
type Notice struct {
	Level Level
	Text  string
}

// Notices turns a load report into messages for the annotator. Warnings come
// first. A report with nothing to say yields no notices.
func Notices(report *session.LoadReport) []Notice {
	if report == nil {
		return nil
	}
	var out []Notice
	if report.ParseFailed {
		out = append(out, Notice{Warning, "annotation record is not valid JSON; starting from an empty record (overwritten on save)"})
	}
	if n := len(report.DroppedInvalidIDs) + report.SkippedEntries; n > 0 {
		out = append(out, Notice{Warning, fmt.Sprintf("dropped %d invalid boxes (%s)", n, droppedDetail(report))})
	}
	if report.CreatedNewRecord {
		out = append(out, Notice{Info, "created empty annotation record"})
	}
	if report.ClampedCount > 0 {
		out = append(out, Notice{Info, fmt.Sprintf("clamped %d out-of-bounds boxes (written back on save)", report.ClampedCount)})
	}
	if report.MetadataRepaired {
		out = append(out, Notice{Info, "repaired record metadata (written back on save)"})
	}
	return out
}

// droppedDetail lists the sampled ids of dropped entries and how many had no
// usable id.
func droppedDetail(report *session.LoadReport) string {
	var parts []string
	if len(report.DroppedInvalidIDs) > 0 {
		parts = append(parts, "ids: "+sampleIDs(report.DroppedInvalidIDs, MaxNoticeIDs))
	}
	if report.SkippedEntries > 0 {
		parts = append(parts, fmt.Sprintf("%d without id", report.SkippedEntries))
	}
	return strings.Join(parts, "; ")
}

// sampleIDs formats the sorted unique ids, at most limit of them, with a
// trailing ellipsis when some were left out.
func sampleIDs(ids []int, limit int) string {
	uniq := slices.Clone(ids)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	shown := uniq[:min(limit, len(uniq))]
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = strconv.Itoa(id)
	}
	s := strings.Join(parts, ", ")
	if len(uniq) > limit {
		s += "…"
	}
	return s
}
