// Package svc implements the polymorphic Service base shared by every
// producer, filter, transition and consumer (spec §3.3, §4.5): a
// properties mapping, an attached-filter list, and a unique id used to
// qualify private per-frame workspace keys.
package svc

import (
	"sync"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/props"
)

// Kind is the closed set of service variants (spec §3.3).
type Kind int

// Service kinds.
const (
	KindProducer Kind = iota
	KindFilter
	KindTransition
	KindConsumer
	KindChain
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindProducer:
		return "producer"
	case KindFilter:
		return "filter"
	case KindTransition:
		return "transition"
	case KindConsumer:
		return "consumer"
	case KindChain:
		return "chain"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// AttachedFilter is the surface a Service needs from something attached
// to it; internal/filter.Base implements this.
type AttachedFilter interface {
	Process(f *frame.Frame) (*frame.Frame, error)
	InOut() (in, out int64)
	Properties() *props.Properties
}

// Service is embedded by producers, filters, transitions and consumers to
// get properties, an id, and filter attachment for free.
type Service struct {
	kind  Kind
	id    string
	props *props.Properties

	mu      sync.Mutex
	filters []AttachedFilter
}

// New returns a Service of the given kind with a fresh id and an empty
// properties bag.
func New(kind Kind) *Service {
	return &Service{
		kind:  kind,
		id:    NextID(kind),
		props: props.New(),
	}
}

// Kind returns the service's type tag.
func (s *Service) Kind() Kind { return s.kind }

// ID returns the service's unique id within the repository session.
func (s *Service) ID() string { return s.id }

// Properties returns the service's own properties bag.
func (s *Service) Properties() *props.Properties { return s.props }

// Attach appends filter to the end of the attached-filter list.
func (s *Service) Attach(filter AttachedFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
}

// Detach removes the first occurrence of filter from the attached list.
func (s *Service) Detach(filter AttachedFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.filters {
		if f == filter {
			s.filters = append(s.filters[:i], s.filters[i+1:]...)
			return
		}
	}
}

// FilterCount returns the number of attached filters.
func (s *Service) FilterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filters)
}

// Filter returns the i-th attached filter, or nil if out of range.
func (s *Service) Filter(i int) AttachedFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.filters) {
		return nil
	}
	return s.filters[i]
}

// MoveFilter relocates the filter at index from to index to, shifting
// the rest. Used by the loader to insert normalisers ahead of
// subsequently user-attached filters.
func (s *Service) MoveFilter(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from < 0 || from >= len(s.filters) || to < 0 || to >= len(s.filters) {
		return
	}
	f := s.filters[from]
	s.filters = append(s.filters[:from], s.filters[from+1:]...)
	tail := append([]AttachedFilter{f}, s.filters[to:]...)
	s.filters = append(s.filters[:to], tail...)
}

// ApplyFilters invokes every attached filter's Process in order, skipping
// loader-tagged filters above excludeLoaderAbove (so user filters run
// without interference from loader plumbing, spec §4.5) and filters whose
// [in,out] range does not cover pos. A negative excludeLoaderAbove skips
// no loader-tagged filter.
func (s *Service) ApplyFilters(f *frame.Frame, pos int64, excludeLoaderAbove int) (*frame.Frame, error) {
	s.mu.Lock()
	filters := append([]AttachedFilter(nil), s.filters...)
	s.mu.Unlock()

	cur := f
	for i, filt := range filters {
		if excludeLoaderAbove >= 0 && i > excludeLoaderAbove && IsLoaderTagged(filt) {
			continue
		}
		in, out := filt.InOut()
		if out != 0 && (pos < in || pos > out) {
			continue
		}
		var err error
		cur, err = filt.Process(cur)
		if err != nil {
			return cur, err
		}
	}
	return cur, nil
}

// IsLoaderTagged reports whether filt carries the loader's `_loader=1`
// marker property (spec §4.13).
func IsLoaderTagged(filt AttachedFilter) bool {
	return filt.Properties().Get("_loader") == "1"
}

// TagAsLoader marks filt as loader-attached.
func TagAsLoader(filt AttachedFilter) {
	filt.Properties().Set("_loader", "1")
}
