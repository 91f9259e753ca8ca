package reader

import (
	"context"
	"image"
	"sync"

	"github.com/rs/zerolog"
)

// PageLoader produces decoded pages for a chapter. progress may be called any
// number of times with a fraction in [0, 1] before LoadPage returns.
type PageLoader interface {
	PageCount() int
	LoadPage(ctx context.Context, index int, progress func(float64)) (image.Image, error)
}

type Option func(*Session)

// WithPrefetch sets how many pages after the current one are loaded ahead.
func WithPrefetch(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.prefetch = n
		}
	}
}

// WithCacheSize bounds the number of decoded pages kept around.
func WithCacheSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.cache = newPageCache(n)
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// Session drives a PaginationState for one chapter: it applies navigation,
// loads the page under the cursor in the background and publishes every
// snapshot change on Updates.
type Session struct {
	slot     *Slot
	loader   PageLoader
	log      zerolog.Logger
	prefetch int
	cache    *pageCache
	updates  chan PaginationState

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	loadCancel context.CancelFunc
	inflight   map[int]bool
	err        error
	closed     bool
	wg         sync.WaitGroup
}

func NewSession(loader PageLoader, start int, opts ...Option) (*Session, error) {
	state, err := NewPaginationState(loader.PageCount(), start)
	if err != nil {
		return nil, err
	}

	s := &Session{
		slot:     NewSlot(state),
		loader:   loader,
		log:      zerolog.Nop(),
		prefetch: 1,
		cache:    newPageCache(8),
		updates:  make(chan PaginationState, 1),
		inflight: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins loading the current page. Loads stop when ctx is done or the
// session is closed.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.ctx != nil {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	state := s.slot.Load()
	s.publish()
	if state.PageCount() == 0 {
		s.apply(state.Index(), func(st PaginationState) PaginationState { return st.WithContent(nil) })
		return
	}
	s.load(state.Index())
	s.prefetchAfter(state.Index())
}

// State returns the current snapshot.
func (s *Session) State() PaginationState {
	return s.slot.Load()
}

// Updates delivers the latest snapshot after each change. Intermediate
// snapshots may be coalesced when the receiver is slow.
func (s *Session) Updates() <-chan PaginationState {
	return s.updates
}

// Err returns the last page load failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Advance moves the cursor by offset pages. Rejected moves leave the state
// untouched. An accepted move resets the load status for the new page, or
// serves it straight from the cache.
func (s *Session) Advance(offset int) PaginationState {
	target := s.slot.Load().Advance(offset)
	cached, hit := s.cache.get(target.Index())

	old, next := s.slot.Update(func(st PaginationState) PaginationState {
		moved := st.Advance(offset)
		if moved.Index() == st.Index() {
			return st
		}
		if hit && moved.Index() == target.Index() {
			return moved.Pending().WithContent(cached)
		}
		return moved.Pending()
	})
	if next.Index() == old.Index() {
		return next
	}

	s.log.Debug().Int("from", old.Index()).Int("to", next.Index()).Msg("page advanced")
	s.publish()
	if !next.IsReady() {
		s.fill(next.Index())
	}
	s.prefetchAfter(next.Index())
	return next
}

// fill completes a page the cursor just moved onto. A running prefetch of
// that page delivers it; a finished one left it in the cache.
func (s *Session) fill(index int) {
	s.mu.Lock()
	if s.inflight[index] {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if img, ok := s.cache.get(index); ok {
		s.apply(index, func(st PaginationState) PaginationState { return st.WithContent(img) })
		return
	}
	s.load(index)
}

// Close cancels in-flight loads, waits for them and closes Updates.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.updates)
}

func (s *Session) load(index int) {
	s.mu.Lock()
	if s.closed || s.ctx == nil {
		s.mu.Unlock()
		return
	}
	if s.loadCancel != nil {
		s.loadCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.loadCancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()

		img, err := s.loader.LoadPage(ctx, index, func(p float64) {
			s.apply(index, func(st PaginationState) PaginationState { return st.WithProgress(p) })
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error().Err(err).Int("page", index).Msg("failed to load page")
			s.fail(index, err)
			return
		}
		s.cache.put(index, img)
		s.apply(index, func(st PaginationState) PaginationState { return st.WithContent(img) })
	}()
}

func (s *Session) prefetchAfter(index int) {
	count := s.slot.Load().PageCount()
	for i := 1; i <= s.prefetch; i++ {
		page := index + i
		if page >= count || s.cache.has(page) {
			continue
		}

		s.mu.Lock()
		if s.closed || s.ctx == nil || s.inflight[page] {
			s.mu.Unlock()
			continue
		}
		s.inflight[page] = true
		ctx := s.ctx
		s.wg.Add(1)
		s.mu.Unlock()

		go func(page int) {
			defer s.wg.Done()

			img, err := s.loader.LoadPage(ctx, page, func(p float64) {
				s.apply(page, func(st PaginationState) PaginationState { return st.WithProgress(p) })
			})
			if err == nil {
				s.cache.put(page, img)
			}
			// Cleared before the result is applied: once fill sees the page is
			// no longer in flight, it is either cached or has to be loaded.
			s.mu.Lock()
			delete(s.inflight, page)
			s.mu.Unlock()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Debug().Err(err).Int("page", page).Msg("prefetch failed")
				// the cursor may be waiting on this page
				s.fail(page, err)
				return
			}
			s.apply(page, func(st PaginationState) PaginationState { return st.WithContent(img) })
		}(page)
	}
}

// apply runs fn against the slot when it still shows a loading index. Stale
// loads for pages the reader already left are dropped here.
func (s *Session) apply(index int, fn func(PaginationState) PaginationState) {
	if s.update(index, fn) {
		s.publish()
	}
}

func (s *Session) update(index int, fn func(PaginationState) PaginationState) bool {
	var changed bool
	s.slot.Update(func(st PaginationState) PaginationState {
		changed = false
		if st.Index() != index || st.IsReady() {
			return st
		}
		changed = true
		return fn(st)
	})
	return changed
}

// fail marks a loading page as ready without content and records err, but
// only when the cursor is still waiting on that page.
func (s *Session) fail(index int, err error) {
	if !s.update(index, func(st PaginationState) PaginationState { return st.WithContent(nil) }) {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.publish()
}

// publish offers the newest snapshot to Updates. The slot is read under the
// lock, so a slower writer never overwrites a newer snapshot with its own.
func (s *Session) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	state := s.slot.Load()
	select {
	case s.updates <- state:
		return
	default:
	}
	// replace the unread snapshot with the newer one
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- state:
	default:
	}
}
