package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fakeyudi/annotate/internal/session"
)

// ErrSaveFailed is returned when the outgoing session could not be saved.
// The requested switch or close does not happen and the session stays active.
var ErrSaveFailed = errors.New("save failed")

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger for open, switch and close diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Editor holds the single active session of a dataset and switches between
// images. All disk I/O happens synchronously inside its methods.
type Editor struct {
	store   session.SessionStore
	entries []Entry
	index   int
	sess    *session.Session
	logger  *slog.Logger
}

// NewEditor returns an editor over entries with no image open yet.
func NewEditor(store session.SessionStore, entries []Entry, opts ...Option) (*Editor, error) {
	if len(entries) == 0 {
		return nil, ErrNoImages
	}
	e := &Editor{
		store:   store,
		entries: entries,
		index:   -1,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Entries returns every image of the dataset.
func (e *Editor) Entries() []Entry { return e.entries }

// Index returns the position of the open image, or -1.
func (e *Editor) Index() int { return e.index }

// Session returns the active session, or nil before the first Open.
func (e *Editor) Session() *session.Session { return e.sess }

// Current returns the entry of the open image.
func (e *Editor) Current() (Entry, bool) {
	if e.index < 0 {
		return Entry{}, false
	}
	return e.entries[e.index], true
}

// Open makes image i the active one. The outgoing session is saved first; if
// that fails Open returns an error wrapping ErrSaveFailed and nothing changes.
// If the incoming image cannot be read the outgoing session, already saved,
// stays active.
func (e *Editor) Open(i int) (*session.LoadReport, error) {
	if i < 0 || i >= len(e.entries) {
		return nil, fmt.Errorf("image index %d out of range [0, %d)", i, len(e.entries))
	}
	if i == e.index && e.sess != nil {
		return nil, nil
	}
	if err := e.Save(); err != nil {
		return nil, err
	}

	entry := e.entries[i]
	width, height, err := ImageSize(entry.ImagePath)
	if err != nil {
		e.logger.Warn("cannot open image", "image", entry.RelativePath, "error", err)
		return nil, err
	}
	sess, report, err := e.store.Load(entry, width, height)
	if err != nil {
		return nil, err
	}

	e.index, e.sess = i, sess
	e.logger.Info("opened image",
		"session", sess.Handle,
		"image", entry.RelativePath,
		"width", width,
		"height", height,
		"dirty", sess.Dirty,
	)
	return report, nil
}

// Next opens the following image. At the end of the list it does nothing.
func (e *Editor) Next() (*session.LoadReport, error) {
	if e.index+1 >= len(e.entries) {
		return nil, nil
	}
	return e.Open(e.index + 1)
}

// Prev opens the preceding image. At the start of the list it does nothing.
func (e *Editor) Prev() (*session.LoadReport, error) {
	if e.index <= 0 {
		return nil, nil
	}
	return e.Open(e.index - 1)
}

// Save writes the active session when it has unsaved changes.
func (e *Editor) Save() error {
	if e.sess == nil || !e.sess.Dirty {
		return nil
	}
	if err := e.store.Save(e.sess); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// Close saves the active session. A non-nil error means the application must
// not exit.
func (e *Editor) Close() error {
	if err := e.Save(); err != nil {
		return err
	}
	if e.sess != nil {
		e.logger.Info("closed image", "session", e.sess.Handle)
	}
	return nil
}

// ChangedOnDisk reports whether the active record no longer holds the bytes
// the session last read or wrote.
func (e *Editor) ChangedOnDisk() (bool, error) {
	if e.sess == nil {
		return false, nil
	}
	data, err := os.ReadFile(e.sess.Source.RecordPath)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read annotation record: %w", err)
	}
	return !e.sess.MatchesDisk(data), nil
}

// Reload discards the active session and loads the record again from disk.
// It refuses to drop unsaved changes.
func (e *Editor) Reload() (*session.LoadReport, error) {
	if e.sess == nil {
		return nil, nil
	}
	if e.sess.Dirty {
		return nil, errors.New("active session has unsaved changes")
	}
	entry := e.entries[e.index]
	sess, report, err := e.store.Load(entry, e.sess.Width, e.sess.Height)
	if err != nil {
		return nil, err
	}
	e.logger.Info("reloaded changed record", "old_session", e.sess.Handle, "session", sess.Handle)
	e.sess = sess
	return report, nil
}
