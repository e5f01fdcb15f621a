// Package filter implements the Filter service variant: attached to a
// producer or track, a filter pushes a resolver onto the frame's image
// or audio stack during Process rather than transforming data inline,
// so its effect is deferred until the consumer actually reads the
// frame (spec §3.6, §4.7).
package filter

import (
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/svc"
)

// ApplyFunc does the filter's actual work against a frame, typically by
// calling frame.PushGetImage/PushAudio before returning it unchanged.
type ApplyFunc func(f *frame.Frame) (*frame.Frame, error)

// Base implements the shared Service/InOut/Process plumbing every
// filter needs; concrete filters embed Base and supply an ApplyFunc.
type Base struct {
	*svc.Service
	in, out int64
	apply   ApplyFunc
}

// NewBase returns a filter applying apply on every Process call. With
// out left at 0 the filter applies to every position (svc.ApplyFilters'
// convention, spec §4.5).
func NewBase(apply ApplyFunc) *Base {
	return &Base{Service: svc.New(svc.KindFilter), apply: apply}
}

// InOut returns the filter's effective range; out==0 means "everywhere".
func (b *Base) InOut() (in, out int64) { return b.in, b.out }

// SetInOut restricts the filter to [in, out].
func (b *Base) SetInOut(in, out int64) { b.in, b.out = in, out }

// Process runs the filter's ApplyFunc.
func (b *Base) Process(f *frame.Frame) (*frame.Frame, error) {
	return b.apply(f)
}
