package pdfpages

import "sync"

// DefaultFirstPagesThreshold is the page index below which only the
// first observed image of a page is kept. The viewer re-requests
// low-resolution placeholders for its leading pages.
const DefaultFirstPagesThreshold = 3

// Offer is the outcome of [PageSet.Offer].
type Offer int

const (
	// Rejected means the reference was discarded.
	Rejected Offer = iota
	// Retained means the reference was appended and its URL is new.
	Retained
	// RetainedDuplicate means the reference was appended but an earlier
	// reference with the same URL is already held.
	RetainedDuplicate
)

func (o Offer) String() string {
	switch o {
	case Retained:
		return "retained"
	case RetainedDuplicate:
		return "retained-duplicate"
	default:
		return "rejected"
	}
}

// PageSet accumulates classified image references in arrival order.
//
// It is the only state shared between the request observer and the
// scroll loop; all methods are safe for concurrent use.
type PageSet struct {
	threshold int

	mu    sync.Mutex
	refs  []ImageRef
	first map[int]bool
	urls  map[string]bool
}

// NewPageSet returns an empty PageSet. Pages with an index below
// threshold retain only their first reference. A negative threshold
// selects [DefaultFirstPagesThreshold].
func NewPageSet(threshold int) *PageSet {
	if threshold < 0 {
		threshold = DefaultFirstPagesThreshold
	}
	return &PageSet{
		threshold: threshold,
		first:     make(map[int]bool),
		urls:      make(map[string]bool),
	}
}

// Offer adds ref to the set unless its page is below the threshold and
// already has a reference.
func (s *PageSet) Offer(ref ImageRef) Offer {
	if ref.Page < 0 {
		return Rejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ref.Page < s.threshold {
		if s.first[ref.Page] {
			return Rejected
		}
		s.first[ref.Page] = true
	}
	s.refs = append(s.refs, ref)
	if s.urls[ref.URL] {
		return RetainedDuplicate
	}
	s.urls[ref.URL] = true
	return Retained
}

// Len returns the number of retained references, duplicates included.
func (s *PageSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}

// Unique returns the retained references with repeated URLs removed,
// keeping the first arrival of each.
func (s *PageSet) Unique() []ImageRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.refs))
	out := make([]ImageRef, 0, len(s.refs))
	for _, r := range s.refs {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
