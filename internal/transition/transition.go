// Package transition implements the Transition service variant: a
// service that combines two frames at the same position into one
// (spec §3.5, §4.8).
package transition

import (
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/svc"
)

// CombineFunc pushes whatever resolvers are needed onto aFrame so that,
// once read, it yields the combination of aFrame and bFrame.
type CombineFunc func(aFrame, bFrame *frame.Frame) (*frame.Frame, error)

// Transition combines a base (A) track frame with an overlaid (B) track
// frame. A transition applies to a (track_pair, position) whenever
// AlwaysActive is set or in <= position <= out (spec §4.8).
type Transition struct {
	*svc.Service

	ATrack       int
	BTrack       int
	In           int64
	Out          int64
	AlwaysActive bool

	combine CombineFunc
}

// New returns a transition between aTrack and bTrack applying combine
// whenever Process is invoked.
func New(aTrack, bTrack int, combine CombineFunc) *Transition {
	return &Transition{
		Service: svc.New(svc.KindTransition),
		ATrack:  aTrack,
		BTrack:  bTrack,
		combine: combine,
	}
}

// Covers reports whether the transition applies at pos, per AlwaysActive
// or the [In, Out] window (spec §4.8).
func (t *Transition) Covers(pos int64) bool {
	return t.AlwaysActive || (pos >= t.In && pos <= t.Out)
}

// Process combines aFrame with bFrame and returns the combined frame
// (normally aFrame, carrying deferred resolvers), per spec §4.8 step 3.
func (t *Transition) Process(aFrame, bFrame *frame.Frame) (*frame.Frame, error) {
	return t.combine(aFrame, bFrame)
}
