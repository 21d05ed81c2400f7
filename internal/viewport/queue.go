package viewport

// Class controls how a surface request interacts with later requests.
type Class int

const (
	// ClassDiscrete requests (clicks) are always delivered, in issue order.
	ClassDiscrete Class = iota
	// ClassContinuous requests (drag moves) are superseded by any later
	// continuous request; a superseded response is discarded on arrival.
	ClassContinuous
)

// Resolved is a request whose surface geometry has arrived and which is
// ready to be applied.
type Resolved[E any] struct {
	ID      uint64
	Class   Class
	Event   E
	Surface Surface
}

type request[E any] struct {
	id      uint64
	class   Class
	event   E
	surface Surface
	done    bool
}

// Queue sequences asynchronous surface-geometry round trips. Every request
// gets a monotonically increasing id; responses are matched by id and any
// response that no longer matches a pending request is dropped.
//
// Queue is not safe for concurrent use; it is owned by a single engine.
type Queue[E any] struct {
	last    uint64
	pending []*request[E]
}

// Issue registers a new request and returns its id.
func (q *Queue[E]) Issue(ev E, class Class) uint64 {
	q.last++
	if class == ClassContinuous {
		q.drop(ClassContinuous)
	}
	q.pending = append(q.pending, &request[E]{id: q.last, class: class, event: ev})
	return q.last
}

// Resolve records the surface geometry for request id and returns every
// request that can now be delivered in order. ok is false when id is not
// pending (stale, superseded or unknown) and the response was discarded.
func (q *Queue[E]) Resolve(id uint64, s Surface) (ready []Resolved[E], ok bool) {
	var found *request[E]
	for _, r := range q.pending {
		if r.id == id {
			found = r
			break
		}
	}
	if found == nil {
		return nil, false
	}
	found.surface = s
	found.done = true

	n := 0
	for n < len(q.pending) && q.pending[n].done {
		r := q.pending[n]
		ready = append(ready, Resolved[E]{ID: r.id, Class: r.class, Event: r.event, Surface: r.surface})
		n++
	}
	q.pending = q.pending[n:]
	return ready, true
}

// Cancel drops every pending request of the given class and reports how
// many were dropped.
func (q *Queue[E]) Cancel(class Class) int {
	return q.drop(class)
}

func (q *Queue[E]) drop(class Class) int {
	kept := q.pending[:0]
	dropped := 0
	for _, r := range q.pending {
		if r.class == class {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = kept
	return dropped
}

// Latest returns the id of the most recently issued request.
func (q *Queue[E]) Latest() uint64 {
	return q.last
}

// Pending returns the number of requests awaiting a response or delivery.
func (q *Queue[E]) Pending() int {
	return len(q.pending)
}

// Reset drops every pending request. Ids keep increasing.
func (q *Queue[E]) Reset() {
	q.pending = nil
}
