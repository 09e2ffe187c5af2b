// Package boxlist is the list-indexed view of a session's detections.
package boxlist

import (
	"fmt"

	"github.com/fakeyudi/annotate/internal/record"
)

// Row is one displayed detection.
type Row struct {
	ID    int
	Score float64
}

// Label is the text shown for the row.
func (r Row) Label() string {
	return fmt.Sprintf("#%-4d %.2f", r.ID, r.Score)
}

// Model holds the rows and the cursor. A cursor of -1 means no selection.
type Model struct {
	rows     []Row
	cursor   int
	onSelect func(id int, ok bool)
}

// New returns an empty list with no selection.
func New() *Model {
	return &Model{cursor: -1}
}

// OnSelect registers the handler for selections made by the user.
func (m *Model) OnSelect(fn func(id int, ok bool)) {
	m.onSelect = fn
}

// SetDetections rebuilds the rows from dets, keeping the cursor on the same
// id when it is still present.
func (m *Model) SetDetections(dets []*record.Detection) {
	selected, ok := m.Selected()
	m.rows = m.rows[:0]
	for _, d := range dets {
		m.rows = append(m.rows, Row{ID: d.ID, Score: d.Score})
	}
	m.cursor = -1
	if ok {
		m.cursor = m.indexOf(selected)
	}
}

// SetSelected moves the cursor without reporting it as a user selection.
func (m *Model) SetSelected(id int, ok bool) {
	m.cursor = -1
	if ok {
		m.cursor = m.indexOf(id)
	}
}

// Selected returns the id under the cursor.
func (m *Model) Selected() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return 0, false
	}
	return m.rows[m.cursor].ID, true
}

// Move shifts the cursor by delta rows and reports the new selection.
// Without a selection, a forward move starts at the first row and a backward
// move at the last.
func (m *Model) Move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	next := m.cursor + delta
	if m.cursor < 0 {
		next = 0
		if delta < 0 {
			next = len(m.rows) - 1
		}
	}
	next = max(0, min(next, len(m.rows)-1))
	if next == m.cursor {
		return
	}
	m.cursor = next
	m.report()
}

// Click selects the row at index i, or clears the selection when i is out of
// range.
func (m *Model) Click(i int) {
	if i < 0 || i >= len(m.rows) {
		i = -1
	}
	m.cursor = i
	m.report()
}

// Rows returns the displayed rows.
func (m *Model) Rows() []Row { return m.rows }

// Cursor returns the selected row index, or -1.
func (m *Model) Cursor() int { return m.cursor }

func (m *Model) indexOf(id int) int {
	for i, r := range m.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) report() {
	if m.onSelect != nil {
		id, ok := m.Selected()
		m.onSelect(id, ok)
	}
}
