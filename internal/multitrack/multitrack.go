// Package multitrack implements Multitrack, Tractor and Field: parallel
// tracks composed through field-ordered transitions and per-track
// filters (spec §3.6, §4.11).
package multitrack

import (
	"sync"

	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/svc"
	"github.com/mltgo/mlt/internal/transition"
)

// Multitrack holds a fixed set of parallel producers (tracks) and pulls
// one frame from each at the same position (spec §4.11).
type Multitrack struct {
	*svc.Service

	mu     sync.Mutex
	tracks []producer.Producer
}

// New returns an empty Multitrack.
func New() *Multitrack {
	return &Multitrack{Service: svc.New(svc.KindProducer)}
}

// AddTrack appends a track, returning its index.
func (m *Multitrack) AddTrack(p producer.Producer) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = append(m.tracks, p)
	return len(m.tracks) - 1
}

// TrackCount returns the number of tracks.
func (m *Multitrack) TrackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracks)
}

// Track returns track i, or nil if out of range.
func (m *Multitrack) Track(i int) producer.Producer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.tracks) {
		return nil
	}
	return m.tracks[i]
}

// GetTrackFrames pulls position from every track, returning one frame
// per track in track order (spec §4.11 step 1).
func (m *Multitrack) GetTrackFrames(position int64) ([]*frame.Frame, error) {
	m.mu.Lock()
	tracks := append([]producer.Producer(nil), m.tracks...)
	m.mu.Unlock()

	frames := make([]*frame.Frame, len(tracks))
	for i, t := range tracks {
		f, err := t.GetFrame(position)
		if err != nil {
			for _, prior := range frames[:i] {
				if prior != nil {
					prior.Close()
				}
			}
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

// GetFrame returns track 0's frame for index (Multitrack's own
// get_frame contract, spec §4.11 step 2 — all other tracks are
// side-loaded through a Tractor rather than this method).
func (m *Multitrack) GetFrame(index int64) (*frame.Frame, error) {
	frames, err := m.GetTrackFrames(index)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errs.ErrNotFound
	}
	for _, f := range frames[1:] {
		f.Close()
	}
	return frames[0], nil
}

// trackFilter is a filter attached to one specific track index within a field.
type trackFilter struct {
	track  int
	filter svc.AttachedFilter
}

// Field owns the transitions and per-track filters a Tractor composes
// over its Multitrack's frames, in insertion order (spec §4.11).
type Field struct {
	mu          sync.Mutex
	transitions []*transition.Transition
	filters     []trackFilter
}

// NewField returns an empty field.
func NewField() *Field {
	return &Field{}
}

// Plant registers a transition, applied in the order Plant is called.
func (fd *Field) Plant(t *transition.Transition) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.transitions = append(fd.transitions, t)
}

// PlantFilter attaches filter to track, applied after all transitions,
// in the order PlantFilter is called.
func (fd *Field) PlantFilter(track int, filter svc.AttachedFilter) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.filters = append(fd.filters, trackFilter{track: track, filter: filter})
}

// Tractor composes a Multitrack through a Field into a single producer
// (spec §4.11).
type Tractor struct {
	*svc.Service

	mt    *Multitrack
	field *Field
}

// NewTractor returns a Tractor composing mt through field.
func NewTractor(mt *Multitrack, field *Field) *Tractor {
	return &Tractor{
		Service: svc.New(svc.KindProducer),
		mt:      mt,
		field:   field,
	}
}

// Svc returns the tractor's own Service.
func (t *Tractor) Svc() *svc.Service { return t.Service }

// Multitrack returns the composed Multitrack.
func (t *Tractor) Multitrack() *Multitrack { return t.mt }

// Field returns the composed Field.
func (t *Tractor) Field() *Field { return t.field }

// In is always frame 0.
func (t *Tractor) In() int64 { return 0 }

// Out is the longest track's last frame.
func (t *Tractor) Out() int64 {
	l := t.Length()
	if l == 0 {
		return 0
	}
	return l - 1
}

// Length is the longest track's length.
func (t *Tractor) Length() int64 {
	var max int64
	for i := 0; i < t.mt.TrackCount(); i++ {
		if l := t.mt.Track(i).Length(); l > max {
			max = l
		}
	}
	return max
}

// Position, Speed, SetSpeed and Seek exist to satisfy producer.Producer;
// a tractor derives position purely from the index passed to GetFrame.
func (t *Tractor) Position() int64    { return 0 }
func (t *Tractor) Speed() float64     { return 1 }
func (t *Tractor) SetSpeed(s float64) {}
func (t *Tractor) Seek(pos int64)     {}

// Close releases the tractor's own properties; it does not own the
// tracks' lifetimes.
func (t *Tractor) Close() { t.Service.Properties().Close() }

// GetFrame obtains the multitrack's per-track frames, applies field
// transitions in insertion order (each mutating its A-track's frame in
// place via the push-resolver mechanism so later transitions compose
// on top), applies per-track filters, then emits track 0's frame with
// the remaining track frames attached as destructor-owned data so they
// live until the emitted frame closes (spec §4.11 steps 1-4).
func (t *Tractor) GetFrame(index int64) (*frame.Frame, error) {
	tf, err := t.mt.GetTrackFrames(index)
	if err != nil {
		return nil, err
	}
	if len(tf) == 0 {
		return nil, errs.ErrNotFound
	}

	t.field.mu.Lock()
	transitions := append([]*transition.Transition(nil), t.field.transitions...)
	filters := append([]trackFilter(nil), t.field.filters...)
	t.field.mu.Unlock()

	for _, tr := range transitions {
		if tr.ATrack < 0 || tr.ATrack >= len(tf) || tr.BTrack < 0 || tr.BTrack >= len(tf) {
			continue
		}
		if !tr.Covers(index) {
			continue
		}
		combined, err := tr.Process(tf[tr.ATrack], tf[tr.BTrack])
		if err != nil {
			return nil, err
		}
		tf[tr.ATrack] = combined
	}

	for _, tfilt := range filters {
		if tfilt.track < 0 || tfilt.track >= len(tf) {
			continue
		}
		processed, err := tfilt.filter.Process(tf[tfilt.track])
		if err != nil {
			return nil, err
		}
		tf[tfilt.track] = processed
	}

	out := tf[0]
	others := append([]*frame.Frame(nil), tf[1:]...)
	out.Props.SetData("_tractor.side_frames", others, func(v interface{}) {
		for _, f := range v.([]*frame.Frame) {
			if f != nil {
				f.Close()
			}
		}
	}, nil)
	return out, nil
}
