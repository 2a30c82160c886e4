package pdfpages

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Stream extracts the document like [Extractor.Extract] but downloads
// each page image as soon as the viewer requests it and hands it to emit
// right away.
//
// emit receives EventImageFound events in request order, then exactly
// one terminal EventDone or EventError. emit is never called
// concurrently, and never after Stream returns. Images still downloading
// when the viewer settles are abandoned, so the done event carries the
// number of images emitted, not the number observed.
func (e *Extractor) Stream(ctx context.Context, input string, emit func(Event)) (*Result, error) {
	res, err := e.stream(ctx, input, emit)
	if err != nil {
		emit(Event{Type: EventError, Err: err})
		return nil, err
	}
	emit(Event{Type: EventDone, Total: res.Len()})
	return res, nil
}

func (e *Extractor) stream(ctx context.Context, input string, emit func(Event)) (*Result, error) {
	if err := e.checkClosed(); err != nil {
		return nil, err
	}
	handle, err := ExtractHandle(input)
	if err != nil {
		return nil, err
	}
	logger := e.cfg.logger

	if res, ok := e.cached(handle); ok {
		logger.Info().
			Str("handle", handle).
			Int("pages", res.Len()).
			Msg("Streaming cached images")
		for i, p := range res.pages {
			// Viewer page indexes are not cached.
			emit(Event{Type: EventImageFound, Index: i, Page: -1, Image: p})
		}
		return res, nil
	}

	start := time.Now()
	classifier, err := NewClassifier(e.cfg.imagePattern)
	if err != nil {
		return nil, err
	}
	set := NewPageSet(e.cfg.threshold)

	fetchCtx, cancelFetches := context.WithCancel(ctx)
	defer cancelFetches()

	seq := newSequencer(emit)
	observe := func(rawURL string) {
		ref, ok := classifier.Classify(rawURL)
		if !ok {
			return
		}
		if set.Offer(ref) != Retained {
			return
		}
		slot := seq.reserve(ref)
		if slot < 0 {
			return
		}
		logger.Trace().
			Int("page", ref.Page).
			Str("url", ref.URL).
			Msg("Storing image")

		go func() {
			data, err := e.fetcher.Fetch(fetchCtx, ref.URL)
			if err != nil && fetchCtx.Err() == nil {
				logger.Warn().
					Err(err).
					Int("page", ref.Page).
					Str("url", ref.URL).
					Msg("Failed to fetch image data")
			}
			seq.settle(slot, data)
		}()
	}

	outcome, err := e.observe(ctx, handle, observe, set.Len)
	pages := seq.finish()
	if err != nil {
		return nil, err
	}

	retained := len(set.Unique())
	if retained == 0 {
		return nil, ErrNoImagesFound
	}
	if outcome.State != Stable && e.cfg.strictCeiling {
		return nil, fmt.Errorf("%w: %d images after %d scrolls", ErrIncompleteExtraction, retained, outcome.Scrolls)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: none of %d images could be fetched", ErrNoImagesFound, retained)
	}

	res := &Result{
		handle:   handle,
		pages:    pages,
		stable:   outcome.State == Stable,
		scrolls:  outcome.Scrolls,
		retained: retained,
	}
	e.store(res)

	logger.Info().
		Str("handle", handle).
		Int("pages", len(pages)).
		Int("retained", retained).
		Dur("elapsed", time.Since(start)).
		Msg("Streaming extraction complete")
	return res, nil
}

// sequencer releases downloaded images in the order their requests were
// observed, whatever order the downloads finish in. A failed download
// frees its slot without emitting.
type sequencer struct {
	emit func(Event)

	mu      sync.Mutex
	slots   []slot
	next    int
	emitted [][]byte
	done    bool
}

type slot struct {
	page    int
	data    []byte
	settled bool
}

func newSequencer(emit func(Event)) *sequencer {
	return &sequencer{emit: emit}
}

// reserve claims the next slot for ref. It returns -1 once the
// sequencer is finished.
func (s *sequencer) reserve(ref ImageRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return -1
	}
	s.slots = append(s.slots, slot{page: ref.Page})
	return len(s.slots) - 1
}

// settle records the outcome of slot i; nil data marks a failure.
func (s *sequencer) settle(i int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || i < 0 || i >= len(s.slots) {
		return
	}
	s.slots[i].data = data
	s.slots[i].settled = true

	for s.next < len(s.slots) && s.slots[s.next].settled {
		sl := s.slots[s.next]
		if sl.data != nil {
			s.emit(Event{
				Type:  EventImageFound,
				Index: len(s.emitted),
				Page:  sl.page,
				Image: sl.data,
			})
			s.emitted = append(s.emitted, sl.data)
		}
		s.slots[s.next].data = nil
		s.next++
	}
}

// finish stops emission and returns everything emitted so far.
func (s *sequencer) finish() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	return s.emitted
}
