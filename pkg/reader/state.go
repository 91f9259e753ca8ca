// Package reader holds the page navigation model used by the reader screen.
//
// A PaginationState is an immutable snapshot of the reading position inside a
// chapter. Every transition returns a new value, so snapshots can be handed to
// other goroutines and compared without locking. Writes to "the current state"
// go through a Slot.
package reader

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrInvalidPageCount = errors.New("page count cannot be negative")
	ErrPageOutOfRange   = errors.New("page index out of range")
)

// Phase is the loading phase of the current page.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PaginationState is the position within a bounded page sequence plus the
// load status of the page at that position.
type PaginationState struct {
	index     int
	pageCount int
	ready     bool
	progress  float64
	content   image.Image
}

// NewPaginationState starts a loading state at page start of a pageCount long
// sequence. A zero page sequence is allowed and always sits at index 0.
func NewPaginationState(pageCount, start int) (PaginationState, error) {
	if pageCount < 0 {
		return PaginationState{}, fmt.Errorf("%w: %d", ErrInvalidPageCount, pageCount)
	}
	if pageCount == 0 {
		start = 0
	} else if start < 0 || start >= pageCount {
		return PaginationState{}, fmt.Errorf("%w: %d not in [0, %d)", ErrPageOutOfRange, start, pageCount)
	}
	return PaginationState{index: start, pageCount: pageCount}, nil
}

func (s PaginationState) Index() int           { return s.index }
func (s PaginationState) PageCount() int       { return s.pageCount }
func (s PaginationState) IsReady() bool        { return s.ready }
func (s PaginationState) Progress() float64    { return s.progress }
func (s PaginationState) Content() image.Image { return s.content }

func (s PaginationState) Phase() Phase {
	if s.ready {
		return PhaseReady
	}
	return PhaseLoading
}

// AtStart reports whether Advance(-1) would be rejected.
func (s PaginationState) AtStart() bool { return s.index <= 0 }

// AtEnd reports whether Advance(1) would be rejected.
func (s PaginationState) AtEnd() bool { return s.index >= s.pageCount-1 }

// Advance moves offset pages forward (or backward when negative). A move that
// would leave [0, PageCount()) is rejected and the receiver is returned as is.
func (s PaginationState) Advance(offset int) PaginationState {
	candidate := s.index + offset
	if candidate < 0 || candidate >= s.pageCount {
		return s
	}
	next := s
	next.index = candidate
	return next
}

// WithProgress records load progress for the current page. Progress is
// clamped to [0, 1] and ignored once the page is ready.
func (s PaginationState) WithProgress(p float64) PaginationState {
	if s.ready {
		return s
	}
	switch {
	case p < 0 || p != p:
		p = 0
	case p > 1:
		p = 1
	}
	next := s
	next.progress = p
	return next
}

// WithContent completes the load of the current page. A nil content is a valid
// "nothing to display" result. Ready states are returned unchanged.
func (s PaginationState) WithContent(content image.Image) PaginationState {
	if s.ready {
		return s
	}
	next := s
	next.ready = true
	next.progress = 1
	next.content = content
	return next
}

// Pending returns a fresh loading state for the same position.
func (s PaginationState) Pending() PaginationState {
	return PaginationState{index: s.index, pageCount: s.pageCount}
}

func (s PaginationState) String() string {
	if s.pageCount == 0 {
		return "page 0/0"
	}
	return fmt.Sprintf("page %d/%d", s.index+1, s.pageCount)
}
