package pdfpages

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects streamed events and flags any that arrive after
// the stream has returned.
type recorder struct {
	mu       sync.Mutex
	events   []Event
	returned bool
	late     int
}

func (r *recorder) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.returned {
		r.late++
	}
	r.events = append(r.events, ev)
}

func (r *recorder) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returned = true
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func streamSettle() Option {
	return WithScroll(DefaultScrollDelta, 25*time.Millisecond)
}

func TestStream_EmitsInRequestOrder(t *testing.T) {
	srv := newImageServer(t)
	// Page 1 finishes downloading last but must still be emitted second.
	srv.delay(1, "a", 30*time.Millisecond)
	viewer := &fakeViewer{
		onLoad:    []string{srv.imageURL(0, "a"), srv.imageURL(1, "a"), srv.imageURL(5, "a")},
		perScroll: [][]string{{srv.imageURL(6, "a")}},
	}
	e := newTestExtractor(t, viewer, streamSettle())

	rec := &recorder{}
	res, err := e.Stream(context.Background(), testHandle, rec.emit)
	rec.finish()
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	events := rec.snapshot()
	wantPages := []int{0, 1, 5, 6}
	if len(events) != len(wantPages)+1 {
		t.Fatalf("got %d events, want %d", len(events), len(wantPages)+1)
	}
	for i, page := range wantPages {
		ev := events[i]
		if ev.Type != EventImageFound {
			t.Fatalf("event %d type = %s, want %s", i, ev.Type, EventImageFound)
		}
		if ev.Index != i || ev.Page != page {
			t.Errorf("event %d = index %d page %d, want index %d page %d", i, ev.Index, ev.Page, i, page)
		}
		if string(ev.Image) != body(page, "a") {
			t.Errorf("event %d image = %q", i, ev.Image)
		}
	}
	done := events[len(events)-1]
	if done.Type != EventDone || done.Total != 4 {
		t.Errorf("terminal event = %+v, want done with total 4", done)
	}
	if res.Len() != 4 {
		t.Errorf("Len() = %d, want 4", res.Len())
	}
}

func TestStream_ThresholdAndDuplicates(t *testing.T) {
	srv := newImageServer(t)
	viewer := &fakeViewer{
		onLoad: []string{
			srv.imageURL(0, "lo"), srv.imageURL(0, "hi"),
			srv.imageURL(4, "a"), srv.imageURL(4, "a"),
		},
	}
	e := newTestExtractor(t, viewer, streamSettle())

	rec := &recorder{}
	if _, err := e.Stream(context.Background(), testHandle, rec.emit); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var images []string
	for _, ev := range rec.snapshot() {
		if ev.Type == EventImageFound {
			images = append(images, string(ev.Image))
		}
	}
	want := []string{body(0, "lo"), body(4, "a")}
	if !equalStrings(images, want) {
		t.Errorf("images = %q, want %q", images, want)
	}
	if n := srv.requests.Load(); n != 2 {
		t.Errorf("image requests = %d, want 2", n)
	}
}

func TestStream_SkipsFailedFetches(t *testing.T) {
	srv := newImageServer(t)
	srv.fail(1, "a")
	viewer := &fakeViewer{
		onLoad: []string{srv.imageURL(0, "a"), srv.imageURL(1, "a"), srv.imageURL(2, "a")},
	}
	e := newTestExtractor(t, viewer, streamSettle())

	rec := &recorder{}
	if _, err := e.Stream(context.Background(), testHandle, rec.emit); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	events := rec.snapshot()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Page != 0 || events[1].Page != 2 {
		t.Errorf("pages = %d, %d, want 0, 2", events[0].Page, events[1].Page)
	}
	if events[1].Index != 1 {
		t.Errorf("second image index = %d, want 1", events[1].Index)
	}
	if events[2].Type != EventDone || events[2].Total != 2 {
		t.Errorf("terminal event = %+v, want done with total 2", events[2])
	}
}

func TestStream_AbandonsInFlightFetches(t *testing.T) {
	srv := newImageServer(t)
	srv.delay(1, "a", 300*time.Millisecond)
	viewer := &fakeViewer{
		onLoad: []string{srv.imageURL(0, "a"), srv.imageURL(1, "a"), srv.imageURL(2, "a")},
	}
	e := newTestExtractor(t, viewer, WithScroll(DefaultScrollDelta, 10*time.Millisecond))

	rec := &recorder{}
	res, err := e.Stream(context.Background(), testHandle, rec.emit)
	rec.finish()
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	// Page 1 blocks the ordered release, so only page 0 was emitted.
	events := rec.snapshot()
	last := events[len(events)-1]
	if last.Type != EventDone || last.Total != 1 {
		t.Errorf("terminal event = %+v, want done with total 1", last)
	}
	if res.Len() != 1 {
		t.Errorf("Len() = %d, want 1", res.Len())
	}

	time.Sleep(400 * time.Millisecond)
	rec.mu.Lock()
	late := rec.late
	rec.mu.Unlock()
	if late != 0 {
		t.Errorf("%d events emitted after Stream returned", late)
	}
}

func TestStream_Errors(t *testing.T) {
	t.Run("no images", func(t *testing.T) {
		viewer := &fakeViewer{}
		e := newTestExtractor(t, viewer)

		rec := &recorder{}
		_, err := e.Stream(context.Background(), testHandle, rec.emit)
		if !errors.Is(err, ErrNoImagesFound) {
			t.Fatalf("err = %v, want ErrNoImagesFound", err)
		}
		events := rec.snapshot()
		if len(events) != 1 || events[0].Type != EventError {
			t.Fatalf("events = %+v, want a single error event", events)
		}
		if !errors.Is(events[0].Err, ErrNoImagesFound) {
			t.Errorf("event error = %v", events[0].Err)
		}
	})

	t.Run("invalid handle", func(t *testing.T) {
		viewer := &fakeViewer{}
		e := newTestExtractor(t, viewer)

		rec := &recorder{}
		_, err := e.Stream(context.Background(), "not a link", rec.emit)
		if !errors.Is(err, ErrInvalidHandle) {
			t.Fatalf("err = %v, want ErrInvalidHandle", err)
		}
		if viewer.opened.Load() != 0 {
			t.Error("no session should be opened for an invalid link")
		}
		if events := rec.snapshot(); len(events) != 1 || events[0].Type != EventError {
			t.Errorf("events = %+v, want a single error event", events)
		}
	})
}

func TestStream_SharesCacheWithExtract(t *testing.T) {
	srv := newImageServer(t)
	viewer := &fakeViewer{onLoad: []string{srv.imageURL(0, "a"), srv.imageURL(3, "a")}}
	e := newTestExtractor(t, viewer, streamSettle())

	rec := &recorder{}
	if _, err := e.Stream(context.Background(), testHandle, rec.emit); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	res, err := e.Extract(context.Background(), testHandle)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Cached() {
		t.Error("Extract after Stream should hit the cache")
	}

	replay := &recorder{}
	if _, err := e.Stream(context.Background(), testHandle, replay.emit); err != nil {
		t.Fatalf("second Stream: %v", err)
	}
	events := replay.snapshot()
	if len(events) != 3 || events[2].Type != EventDone || events[2].Total != 2 {
		t.Fatalf("replayed events = %+v, want two images and done", events)
	}
	for i, ev := range events[:2] {
		if ev.Index != i || ev.Page != -1 {
			t.Errorf("replayed event %d = index %d page %d, want index %d and no page", i, ev.Index, ev.Page, i)
		}
	}
	if viewer.opened.Load() != 1 {
		t.Errorf("sessions opened = %d, want 1", viewer.opened.Load())
	}
}

func TestSequencer(t *testing.T) {
	var got []int
	seq := newSequencer(func(ev Event) { got = append(got, ev.Page) })

	a := seq.reserve(ImageRef{Page: 10})
	b := seq.reserve(ImageRef{Page: 11})
	c := seq.reserve(ImageRef{Page: 12})

	seq.settle(c, []byte("c"))
	seq.settle(b, nil)
	if len(got) != 0 {
		t.Fatalf("emitted %v before the first slot settled", got)
	}
	seq.settle(a, []byte("a"))
	if len(got) != 2 || got[0] != 10 || got[1] != 12 {
		t.Fatalf("emitted pages = %v, want [10 12]", got)
	}

	d := seq.reserve(ImageRef{Page: 13})
	pages := seq.finish()
	seq.settle(d, []byte("d"))
	if len(pages) != 2 || len(got) != 2 {
		t.Errorf("finish returned %d pages, emitted %d; want 2 and 2", len(pages), len(got))
	}
	if seq.reserve(ImageRef{Page: 14}) != -1 {
		t.Error("reserve after finish should return -1")
	}
}
