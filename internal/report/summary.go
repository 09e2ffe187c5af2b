package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxTopCounts is how many detections-per-image buckets the summary lists.
const maxTopCounts = 10

// CountFreq is how many images hold a given number of detections.
type CountFreq struct {
	Detections int
	Images     int
}

// Summary holds dataset statistics over the records that could be read.
type Summary struct {
	Images          int
	TotalDetections int
	MinPerImage     int
	MedianPerImage  int
	MaxPerImage     int
	TopCounts       []CountFreq

	// Box area divided by image area, over every detection.
	Boxes   int
	AreaP50 float64
	AreaP90 float64
	AreaP99 float64

	Missing       int
	Failed        int
	NeedingRepair int
}

// Summarize computes statistics from scan results. Images without a record
// and images that failed to load are counted but not measured.
func Summarize(results []ImageResult) Summary {
	var sum Summary
	var counts []int
	var areas []float64

	for _, r := range results {
		switch {
		case r.Err != nil:
			sum.Failed++
			continue
		case r.Missing && !r.Fixed:
			sum.Missing++
			continue
		}
		if r.NeedsRepair() && !r.Fixed {
			sum.NeedingRepair++
		}
		counts = append(counts, len(r.Detections))
		imageArea := max(float64(r.Width)*float64(r.Height), 1)
		for _, d := range r.Detections {
			areas = append(areas, max(d.BBox.Width(), 0)*max(d.BBox.Height(), 0)/imageArea)
		}
	}

	sum.Images = len(counts)
	if sum.Images == 0 {
		return sum
	}
	slices.Sort(counts)
	for _, c := range counts {
		sum.TotalDetections += c
	}
	sum.MinPerImage = counts[0]
	sum.MedianPerImage = counts[len(counts)/2]
	sum.MaxPerImage = counts[len(counts)-1]
	sum.TopCounts = topCounts(counts, maxTopCounts)

	if n := len(areas); n > 0 {
		slices.Sort(areas)
		sum.Boxes = n
		sum.AreaP50 = areas[n/2]
		sum.AreaP90 = areas[int(float64(n)*0.9)]
		sum.AreaP99 = areas[int(float64(n)*0.99)]
	}
	return sum
}

// topCounts returns the most frequent values of sorted, most frequent first
// and smaller values first among ties.
func topCounts(sorted []int, limit int) []CountFreq {
	var out []CountFreq
	for _, c := range sorted {
		if n := len(out); n > 0 && out[n-1].Detections == c {
			out[n-1].Images++
			continue
		}
		out = append(out, CountFreq{Detections: c, Images: 1})
	}
	slices.SortStableFunc(out, func(a, b CountFreq) int {
		return cmp.Compare(b.Images, a.Images)
	})
	return out[:min(limit, len(out))]
}

// WriteMarkdown renders the summary and the list of records that need
// attention as a Markdown document.
func WriteMarkdown(w io.Writer, sum Summary, results []ImageResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Annotation Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Images with records", strconv.Itoa(sum.Images)},
			{"Total detections", strconv.Itoa(sum.TotalDetections)},
			{"Detections/img (min / median / max)", fmt.Sprintf("%d / %d / %d", sum.MinPerImage, sum.MedianPerImage, sum.MaxPerImage)},
			{"Images without a record", strconv.Itoa(sum.Missing)},
			{"Unreadable images or records", strconv.Itoa(sum.Failed)},
		},
	})
	md.PlainText("")

	if len(sum.TopCounts) > 0 {
		md.H2("Detections per Image")
		md.PlainText("")
		rows := make([][]string, len(sum.TopCounts))
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Images by detection count"),
			piechart.WithShowData(true),
		)
		for i, tc := range sum.TopCounts {
			rows[i] = []string{strconv.Itoa(tc.Detections), strconv.Itoa(tc.Images)}
			chart.LabelAndIntValue(strconv.Itoa(tc.Detections)+" boxes", uint64(tc.Images))
		}
		md.Table(markdown.TableSet{Header: []string{"Detections", "Images"}, Rows: rows})
		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if sum.Boxes > 0 {
		md.H2("Box Area / Image Area")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"p50", "p90", "p99"},
			Rows: [][]string{{
				strconv.FormatFloat(sum.AreaP50, 'f', 6, 64),
				strconv.FormatFloat(sum.AreaP90, 'f', 6, 64),
				strconv.FormatFloat(sum.AreaP99, 'f', 6, 64),
			}},
		})
		md.PlainText("")
	}

	md.H2("Records Needing Attention")
	md.PlainText("")
	if items := attention(results); len(items) > 0 {
		md.Warningf("%d records would change on save. Run `annotate check --fix` to write the repairs.", len(items))
		md.PlainText("")
		md.BulletList(items...)
	} else {
		md.Tip("All records are valid.")
	}
	md.PlainText("")

	return md.Build()
}

func attention(results []ImageResult) []string {
	var items []string
	for _, r := range results {
		if r.Err != nil || !r.NeedsRepair() || r.Fixed {
			continue
		}
		items = append(items, "`"+r.Entry.RelativePath+"`: "+strings.Join(Problems(r), ", "))
	}
	return items
}

// Problems lists what is wrong with one record in short phrases.
func Problems(r ImageResult) []string {
	if r.Err != nil {
		return []string{r.Err.Error()}
	}
	if r.Missing {
		return []string{"no record"}
	}
	var out []string
	rep := r.Report
	if rep == nil {
		return nil
	}
	if rep.ParseFailed {
		out = append(out, "not valid JSON")
	}
	for _, rej := range rep.Rejections {
		out = append(out, fmt.Sprintf("id %d dropped (%s)", rej.ID, rej.Reason))
	}
	if rep.SkippedEntries > 0 {
		out = append(out, fmt.Sprintf("%d entries without an id", rep.SkippedEntries))
	}
	if rep.ClampedCount > 0 {
		out = append(out, fmt.Sprintf("%d boxes clamped", rep.ClampedCount))
	}
	if rep.MetadataRepaired {
		out = append(out, "metadata repaired")
	}
	return out
}
