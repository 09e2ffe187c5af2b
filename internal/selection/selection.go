// Package selection keeps the selected detection consistent between the box
// list and the canvas. Either view may originate a change; the other one is
// updated silently under a guard so the two never notify each other in a loop.
package selection

// View is one side of the synchronization.
type View interface {
	// SetSelected applies a selection pushed from the other view. It must
	// not report the change back as a user selection.
	SetSelected(id int, ok bool)
}

// Synchronizer is the single source of truth for the selected id.
type Synchronizer struct {
	list   View
	canvas View
	exists func(id int) bool

	syncing  bool
	id       int
	selected bool
	onChange []func(id int, ok bool)
}

// New binds the two views. exists reports whether an id is in the current
// box set; selecting an id for which it returns false resolves to none.
func New(list, canvas View, exists func(id int) bool) *Synchronizer {
	return &Synchronizer{list: list, canvas: canvas, exists: exists}
}

// Selected returns the current selection.
func (s *Synchronizer) Selected() (int, bool) {
	return s.id, s.selected
}

// OnChange registers fn to run after each round that changed the selection.
func (s *Synchronizer) OnChange(fn func(id int, ok bool)) {
	s.onChange = append(s.onChange, fn)
}

// FromList handles a selection made in the list view.
func (s *Synchronizer) FromList(id int, ok bool) {
	s.round(s.list, s.canvas, id, ok)
}

// FromCanvas handles a selection made in the canvas view.
func (s *Synchronizer) FromCanvas(id int, ok bool) {
	s.round(s.canvas, s.list, id, ok)
}

// Reconcile drops a selection whose detection no longer exists and settles
// both views on none.
func (s *Synchronizer) Reconcile() {
	if s.syncing || !s.selected || s.exists(s.id) {
		return
	}
	s.syncing = true
	defer func() { s.syncing = false }()

	s.id, s.selected = 0, false
	s.list.SetSelected(0, false)
	s.canvas.SetSelected(0, false)
	s.notify()
}

// Rebind points the synchronizer at a new box set, typically after switching
// images, and clears the selection in both views.
func (s *Synchronizer) Rebind(exists func(id int) bool) {
	s.exists = exists
	s.syncing = true
	defer func() { s.syncing = false }()

	changed := s.selected
	s.id, s.selected = 0, false
	s.list.SetSelected(0, false)
	s.canvas.SetSelected(0, false)
	if changed {
		s.notify()
	}
}

func (s *Synchronizer) round(origin, other View, id int, ok bool) {
	if s.syncing {
		return
	}
	s.syncing = true
	defer func() { s.syncing = false }()

	resolved := ok && s.exists(id)
	if !resolved {
		id = 0
	}
	changed := resolved != s.selected || (resolved && id != s.id)
	s.id, s.selected = id, resolved

	other.SetSelected(id, resolved)
	if ok != resolved {
		// The origin asked for something that is gone; bring it back in line.
		origin.SetSelected(id, resolved)
	}
	if changed {
		s.notify()
	}
}

func (s *Synchronizer) notify() {
	for _, fn := range s.onChange {
		fn(s.id, s.selected)
	}
}
