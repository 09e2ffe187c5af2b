package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/record"
)

// SessionStore opens and persists annotation sessions.
type SessionStore interface {
	// Load opens the record for src against an image of the given size,
	// creating it on disk when it does not exist yet.
	Load(src Source, width, height int) (*Session, *LoadReport, error)
	// Save writes s atomically and clears its dirty flag.
	Save(s *Session) error
}

// Option configures the disk store.
type Option func(*diskStore)

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *diskStore) {
		if l != nil {
			d.logger = l
		}
	}
}

// diskStore is the concrete SessionStore that reads and writes per-image JSON
// files at Source.RecordPath.
type diskStore struct {
	logger *slog.Logger
}

// NewSessionStore returns a SessionStore backed by the filesystem.
func NewSessionStore(opts ...Option) SessionStore {
	d := &diskStore{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load reads and repairs the record at src.RecordPath. A missing record is
// created immediately so it exists on disk once Load returns.
func (d *diskStore) Load(src Source, width, height int) (*Session, *LoadReport, error) {
	if width < 1 || height < 1 {
		return nil, nil, fmt.Errorf("invalid image size %dx%d for %s", width, height, src.ImagePath)
	}

	data, err := os.ReadFile(src.RecordPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to read annotation record: %w", err)
		}
		s := emptySession(src, width, height)
		if err := d.Save(s); err != nil {
			return nil, nil, fmt.Errorf("failed to create annotation record: %w", err)
		}
		d.logger.Info("created annotation record", "session", s.Handle, "path", src.RecordPath)
		return s, &LoadReport{CreatedNewRecord: true}, nil
	}

	s, report := Repair(data, src, width, height)
	s.diskDigest = sha256.Sum256(data)
	d.logger.Info("loaded annotation record",
		"session", s.Handle,
		"path", src.RecordPath,
		"detections", len(s.Record.Detections),
		"parse_failed", report.ParseFailed,
		"dropped", len(report.DroppedInvalidIDs),
		"skipped", report.SkippedEntries,
		"clamped", report.ClampedCount,
	)
	return s, report, nil
}

// Save re-clamps every detection, serializes the record deterministically and
// replaces the target through a temp file + os.Rename. The session is only
// modified once the write has succeeded.
func (d *diskStore) Save(s *Session) error {
	fixed := make([]geometry.BBox, len(s.Record.Detections))
	snapshot := *s.Record
	snapshot.Image.Width, snapshot.Image.Height = s.Width, s.Height
	snapshot.Detections = make([]*record.Detection, len(s.Record.Detections))
	for i, det := range s.Record.Detections {
		fixed[i] = geometry.Clamp(geometry.Normalize(det.BBox), s.Width, s.Height)
		cp := *det
		cp.BBox = fixed[i]
		snapshot.Detections[i] = &cp
	}

	data, err := snapshot.Encode()
	if err != nil {
		return fmt.Errorf("failed to persist annotation record: %w", err)
	}
	if err := writeAtomic(s.Source.RecordPath, data); err != nil {
		d.logger.Error("save failed", "session", s.Handle, "path", s.Source.RecordPath, "error", err)
		return fmt.Errorf("failed to persist annotation record %s: %w", s.Source.RecordPath, err)
	}

	for i, det := range s.Record.Detections {
		det.BBox = fixed[i]
	}
	s.Record.Image = snapshot.Image
	s.Dirty = false
	s.diskDigest = sha256.Sum256(data)
	d.logger.Debug("saved annotation record", "session", s.Handle, "path", s.Source.RecordPath, "detections", len(fixed))
	s.emit(Event{Kind: Saved})
	return nil
}

// writeAtomic writes data to a temp file in the same directory as path, so
// os.Rename is atomic, then moves it into place.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
