package producer

import (
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/svc"
)

// Cut is a windowed view of a parent producer: it shares the parent's
// state but overrides in/out, and seeking a cut seeks the parent (spec
// §4.6.2). The parent is never mutated by cut-local property writes;
// Cut keeps its own Service/Properties bag, inheriting from the parent's.
type Cut struct {
	*svc.Service
	parent Producer
	in     int64
	out    int64
}

// NewCut returns a Cut over parent with its own [in, out] bounds.
func NewCut(parent Producer, in, out int64) *Cut {
	s := svc.New(svc.KindProducer)
	s.Properties().Inherit(parent.Svc().Properties())
	return &Cut{
		Service: s,
		parent:  parent,
		in:      in,
		out:     out,
	}
}

// Svc returns the cut's own Service (property overrides live here).
func (c *Cut) Svc() *svc.Service { return c.Service }

// Parent returns the producer this cut is windowing.
func (c *Cut) Parent() Producer { return c.parent }

// In returns the cut's local in-point.
func (c *Cut) In() int64 { return c.in }

// Out returns the cut's local out-point, inclusive.
func (c *Cut) Out() int64 { return c.out }

// Length is the cut's own clip length, not the parent's.
func (c *Cut) Length() int64 { return c.out - c.in + 1 }

// Position delegates to the parent, translated back into cut-local space.
func (c *Cut) Position() int64 {
	return c.parent.Position() - c.in
}

// Speed delegates to the parent.
func (c *Cut) Speed() float64 { return c.parent.Speed() }

// SetSpeed delegates to the parent.
func (c *Cut) SetSpeed(s float64) { c.parent.SetSpeed(s) }

// Seek translates a cut-local index into parent space and seeks the parent.
func (c *Cut) Seek(pos int64) {
	c.parent.Seek(c.in + pos)
}

// GetFrame translates index by the cut's in-point and delegates to the
// parent, then re-applies the cut's own attached filters (which are
// distinct from any filters attached to the parent or to other cuts of
// the same parent).
func (c *Cut) GetFrame(index int64) (*frame.Frame, error) {
	f, err := c.parent.GetFrame(c.in + index)
	if err != nil {
		return f, err
	}
	return c.Service.ApplyFilters(f, index, -1)
}

// Close is a no-op: a cut does not own the parent's lifetime.
func (c *Cut) Close() {}

// Resize returns a new Cut over the same parent with bounds [in, out],
// validated by the same rule Base.SetInOut enforces: in > out or out
// at or past the parent's length is rejected and the receiver is left
// untouched (spec §4.10).
func (c *Cut) Resize(in, out int64) (*Cut, error) {
	if err := ValidateInOut(in, out, c.parent.Length()); err != nil {
		return nil, err
	}
	return NewCut(c.parent, in, out), nil
}
