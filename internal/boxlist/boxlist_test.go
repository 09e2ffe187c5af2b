package boxlist

import (
	"testing"

	"github.com/fakeyudi/annotate/internal/record"
)

func detections(ids ...int) []*record.Detection {
	out := make([]*record.Detection, len(ids))
	for i, id := range ids {
		out[i] = &record.Detection{ID: id, Score: 0.5}
	}
	return out
}

func TestSetSelectedIsSilent(t *testing.T) {
	m := New()
	m.SetDetections(detections(4, 8, 15))
	fired := false
	m.OnSelect(func(int, bool) { fired = true })

	m.SetSelected(8, true)
	if fired {
		t.Error("SetSelected reported a user selection")
	}
	if id, ok := m.Selected(); !ok || id != 8 {
		t.Errorf("Selected() = %d, %v; want 8, true", id, ok)
	}

	m.SetSelected(99, true)
	if _, ok := m.Selected(); ok {
		t.Error("unknown id should leave nothing selected")
	}
}

func TestMoveReportsSelection(t *testing.T) {
	m := New()
	m.SetDetections(detections(4, 8, 15))
	var got []int
	m.OnSelect(func(id int, ok bool) {
		if ok {
			got = append(got, id)
		}
	})

	m.Move(1)  // first row
	m.Move(1)  // 8
	m.Move(5)  // clamps at 15
	m.Move(1)  // no change, no report
	m.Move(-1) // 8

	want := []int{4, 8, 15, 8}
	if len(got) != len(want) {
		t.Fatalf("reports = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reports = %v, want %v", got, want)
		}
	}
}

func TestMoveBackwardFromNoneStartsAtEnd(t *testing.T) {
	m := New()
	m.SetDetections(detections(1, 2, 3))
	m.Move(-1)
	if id, _ := m.Selected(); id != 3 {
		t.Errorf("Selected() = %d, want 3", id)
	}
}

func TestSetDetectionsKeepsSelectionByID(t *testing.T) {
	m := New()
	m.SetDetections(detections(1, 2, 3))
	m.SetSelected(3, true)

	m.SetDetections(detections(1, 3))
	if m.Cursor() != 1 {
		t.Errorf("Cursor() = %d, want 1", m.Cursor())
	}

	m.SetDetections(detections(1))
	if _, ok := m.Selected(); ok {
		t.Error("selection should clear when its row disappears")
	}
}

func TestClickOutsideClears(t *testing.T) {
	m := New()
	m.SetDetections(detections(1, 2))
	var last bool
	m.OnSelect(func(_ int, ok bool) { last = ok })

	m.Click(1)
	if !last {
		t.Fatal("click on a row should select it")
	}
	m.Click(7)
	if last {
		t.Error("click past the rows should clear the selection")
	}
}

func TestRowLabel(t *testing.T) {
	if got := (Row{ID: 12, Score: 0.873}).Label(); got != "#12   0.87" {
		t.Errorf("Label() = %q", got)
	}
}
