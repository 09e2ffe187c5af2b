// Package report produces dataset-wide views of the annotation records:
// headless validation, summary statistics and rendered visualizations.
package report

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/annotate/internal/record"
	"github.com/fakeyudi/annotate/internal/session"
	"github.com/fakeyudi/annotate/internal/workspace"
)

// ImageResult is the outcome of checking one image's record.
type ImageResult struct {
	Entry      workspace.Entry
	Width      int
	Height     int
	Missing    bool // no record on disk
	Report     *session.LoadReport
	Detections []*record.Detection
	Fixed      bool // repairs were written back
	Err        error
}

// NeedsRepair reports whether the record is missing or would change on save.
func (r ImageResult) NeedsRepair() bool {
	if r.Err != nil {
		return false
	}
	return r.Missing || (r.Report != nil && r.Report.NeedsSave())
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger for per-image diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency caps how many images are checked at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithFix makes the scanner save repaired records and create missing ones.
func WithFix(fix bool) Option {
	return func(s *Scanner) { s.fix = fix }
}

// Scanner loads and validates every record of a dataset without the editor.
type Scanner struct {
	store       session.SessionStore
	logger      *slog.Logger
	concurrency int
	fix         bool
}

// NewScanner returns a scanner that writes through store when fixing.
func NewScanner(store session.SessionStore, opts ...Option) *Scanner {
	s := &Scanner{
		store:       store,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan checks entries concurrently. Results keep the order of entries;
// per-image failures are recorded in the result rather than returned.
func (s *Scanner) Scan(ctx context.Context, entries []workspace.Entry) ([]ImageResult, error) {
	results := make([]ImageResult, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.scanOne(entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scanner) scanOne(entry workspace.Entry) ImageResult {
	res := ImageResult{Entry: entry}

	width, height, err := workspace.ImageSize(entry.ImagePath)
	if err != nil {
		res.Err = err
		s.logger.Warn("skipping unreadable image", "image", entry.RelativePath, "error", err)
		return res
	}
	res.Width, res.Height = width, height

	data, err := os.ReadFile(entry.RecordPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Missing = true
		if !s.fix {
			return res
		}
		sess, report, err := s.store.Load(entry, width, height)
		if err != nil {
			res.Err = err
			return res
		}
		res.Report, res.Detections, res.Fixed = report, sess.Detections(), true
		return res
	case err != nil:
		res.Err = err
		return res
	}

	sess, report := session.Repair(data, entry, width, height)
	res.Report, res.Detections = report, sess.Detections()
	if s.fix && sess.Dirty {
		if err := s.store.Save(sess); err != nil {
			res.Err = err
			return res
		}
		res.Fixed = true
	}
	s.logger.Debug("checked record",
		"image", entry.RelativePath,
		"detections", len(res.Detections),
		"needs_save", report.NeedsSave(),
		"fixed", res.Fixed,
	)
	return res
}
