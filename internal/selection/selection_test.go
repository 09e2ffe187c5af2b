package selection_test

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/annotate/internal/selection"
)

// fakeView records pushes. When echo is set it re-fires the pushed selection
// into the synchronizer, like a widget that does not suppress signals.
type fakeView struct {
	id     int
	ok     bool
	pushes int
	echo   func(id int, ok bool)
}

func (v *fakeView) SetSelected(id int, ok bool) {
	v.id, v.ok = id, ok
	v.pushes++
	if v.echo != nil {
		v.echo(id, ok)
	}
}

func idSet(ids ...int) map[int]bool {
	m := map[int]bool{}
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestListSelectionReachesCanvasOnce(t *testing.T) {
	present := idSet(3, 7, 9)
	list, canvas := &fakeView{}, &fakeView{}
	sync := selection.New(list, canvas, func(id int) bool { return present[id] })

	// Both views echo back; the guard must swallow the re-entrant calls.
	canvas.echo = sync.FromCanvas
	list.echo = sync.FromList

	rounds := 0
	sync.OnChange(func(int, bool) { rounds++ })

	list.id, list.ok = 7, true
	sync.FromList(7, true)

	if id, ok := sync.Selected(); !ok || id != 7 {
		t.Fatalf("Selected() = %d, %v; want 7, true", id, ok)
	}
	if canvas.id != 7 || !canvas.ok {
		t.Errorf("canvas = %d, %v; want 7, true", canvas.id, canvas.ok)
	}
	if list.id != 7 || !list.ok {
		t.Errorf("list = %d, %v; want 7, true", list.id, list.ok)
	}
	if canvas.pushes != 1 {
		t.Errorf("canvas received %d pushes, want 1", canvas.pushes)
	}
	if list.pushes != 0 {
		t.Errorf("origin view was pushed %d times, want 0", list.pushes)
	}
	if rounds != 1 {
		t.Errorf("OnChange fired %d times, want 1", rounds)
	}
}

func TestCanvasSelectionReachesList(t *testing.T) {
	present := idSet(1, 2)
	list, canvas := &fakeView{}, &fakeView{}
	sync := selection.New(list, canvas, func(id int) bool { return present[id] })

	sync.FromCanvas(2, true)
	if list.id != 2 || !list.ok {
		t.Errorf("list = %d, %v; want 2, true", list.id, list.ok)
	}

	sync.FromCanvas(0, false)
	if list.ok {
		t.Error("clearing on the canvas should clear the list")
	}
	if _, ok := sync.Selected(); ok {
		t.Error("selection should be none")
	}
}

func TestSelectingMissingIDResolvesToNone(t *testing.T) {
	list, canvas := &fakeView{}, &fakeView{}
	sync := selection.New(list, canvas, func(int) bool { return false })

	sync.FromList(42, true)

	if _, ok := sync.Selected(); ok {
		t.Error("missing id should resolve to no selection")
	}
	if canvas.ok || list.ok {
		t.Errorf("views disagree with none: list=%v canvas=%v", list.ok, canvas.ok)
	}
	if list.pushes != 1 {
		t.Errorf("origin should be corrected once, got %d pushes", list.pushes)
	}
}

func TestReconcileAfterDelete(t *testing.T) {
	present := idSet(5)
	list, canvas := &fakeView{}, &fakeView{}
	sync := selection.New(list, canvas, func(id int) bool { return present[id] })
	var last []any
	sync.OnChange(func(id int, ok bool) { last = []any{id, ok} })

	sync.FromCanvas(5, true)
	delete(present, 5)
	sync.Reconcile()

	if _, ok := sync.Selected(); ok {
		t.Error("deleted selection survived Reconcile")
	}
	if list.ok || canvas.ok {
		t.Errorf("views not settled on none: list=%v canvas=%v", list.ok, canvas.ok)
	}
	if last == nil || last[1] != false {
		t.Errorf("OnChange not told about the cleared selection: %v", last)
	}

	pushes := list.pushes
	sync.Reconcile()
	if list.pushes != pushes {
		t.Error("Reconcile with nothing to fix should not push")
	}
}

func TestRebindClearsSelection(t *testing.T) {
	list, canvas := &fakeView{}, &fakeView{}
	sync := selection.New(list, canvas, func(int) bool { return true })
	sync.FromList(3, true)

	sync.Rebind(func(id int) bool { return id == 10 })
	if _, ok := sync.Selected(); ok {
		t.Error("Rebind should clear the selection")
	}
	sync.FromList(3, true)
	if _, ok := sync.Selected(); ok {
		t.Error("old box set still consulted after Rebind")
	}
	sync.FromList(10, true)
	if id, ok := sync.Selected(); !ok || id != 10 {
		t.Errorf("Selected() = %d, %v; want 10, true", id, ok)
	}
}

// Feature: annotate, Property 7: after every round both views agree with the synchronizer
func TestViewsAlwaysAgree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		present := map[int]bool{}
		for _, id := range rapid.SliceOf(rapid.IntRange(0, 9)).Draw(t, "present") {
			present[id] = true
		}
		list, canvas := &fakeView{}, &fakeView{}
		sync := selection.New(list, canvas, func(id int) bool { return present[id] })
		list.echo = sync.FromList
		canvas.echo = sync.FromCanvas

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.IntRange(0, 9).Draw(t, "id")
			ok := rapid.Bool().Draw(t, "ok")
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				list.id, list.ok = id, ok
				sync.FromList(id, ok)
			case 1:
				canvas.id, canvas.ok = id, ok
				sync.FromCanvas(id, ok)
			case 2:
				delete(present, id)
				sync.Reconcile()
			default:
				present[id] = true
			}

			want, wantOK := sync.Selected()
			if wantOK && !present[want] {
				t.Fatalf("step %d: selected id %d is not in the box set", i, want)
			}
			for name, v := range map[string]*fakeView{"list": list, "canvas": canvas} {
				if v.ok != wantOK || (wantOK && v.id != want) {
					t.Fatalf("step %d: %s view = (%d, %v), synchronizer = (%d, %v)",
						i, name, v.id, v.ok, want, wantOK)
				}
			}
		}
	})
}
