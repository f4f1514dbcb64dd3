package events

import "sort"

// Queue holds all pending events sorted by fire time, ties broken by event
// id ascending for determinism. It serializes as a plain JSON array inside
// the universe snapshot.
type Queue []Event

// Push inserts an event, keeping the queue ordered.
func (q *Queue) Push(e Event) {
	i := sort.Search(len(*q), func(i int) bool {
		cur := (*q)[i]
		if cur.FireAt != e.FireAt {
			return cur.FireAt > e.FireAt
		}
		return cur.ID > e.ID
	})
	*q = append(*q, Event{})
	copy((*q)[i+1:], (*q)[i:])
	(*q)[i] = e
}

// PopDue removes and returns the lowest-fire-time event if it is due at the
// given sim time. The second return is false when the queue is empty or the
// head still lies in the future.
func (q *Queue) PopDue(simTime float64) (Event, bool) {
	if len(*q) == 0 || (*q)[0].FireAt > simTime {
		return Event{}, false
	}
	head := (*q)[0]
	*q = (*q)[1:]
	return head, true
}

// Remove deletes the event with the given id. Returns false if absent.
func (q *Queue) Remove(id int64) bool {
	for i, e := range *q {
		if e.ID == id {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns a deep copy of the queue for read-only views.
func (q Queue) Pending() []Event {
	out := make([]Event, 0, len(q))
	for _, e := range q {
		out = append(out, e.Clone())
	}
	return out
}
