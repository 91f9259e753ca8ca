package reader

import "sync/atomic"

// Slot holds the current PaginationState. Readers call Load; writers replace
// the snapshot with Store or Update, never mutate it.
type Slot struct {
	current atomic.Pointer[PaginationState]
}

func NewSlot(initial PaginationState) *Slot {
	s := &Slot{}
	s.current.Store(&initial)
	return s
}

func (s *Slot) Load() PaginationState {
	return *s.current.Load()
}

func (s *Slot) Store(state PaginationState) {
	s.current.Store(&state)
}

// Update applies fn to the current snapshot and swaps the result in. fn may run
// more than once when writers race, so it must not have side effects.
func (s *Slot) Update(fn func(PaginationState) PaginationState) (old, updated PaginationState) {
	for {
		cur := s.current.Load()
		next := fn(*cur)
		if s.current.CompareAndSwap(cur, &next) {
			return *cur, next
		}
	}
}
