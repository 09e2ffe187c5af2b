package session

// EventKind classifies a change to a session.
type EventKind int

const (
	Added EventKind = iota
	Deleted
	Edited
	Saved
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Edited:
		return "edited"
	case Saved:
		return "saved"
	}
	return "unknown"
}

// Event describes one applied change. ID is the affected detection; it is
// unset for Saved.
type Event struct {
	Kind EventKind
	ID   int
}

type subscriber struct {
	id int
	fn func(Event)
}

// Subscribe registers fn to be called synchronously, in mutation order, after
// every change. The returned function removes the subscription.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) emit(e Event) {
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	for _, sub := range subs {
		sub.fn(e)
	}
}
