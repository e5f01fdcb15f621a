// Package rateconv implements the frame-rate decoupling producer: an
// inner graph runs at its own cloned profile/frame rate, and outer
// reads are translated into inner positions and sample counts so
// playback stays drift-free across the two rates (spec §4.14).
package rateconv

import (
	"math"
	"sync"

	"github.com/mltgo/mlt/internal/consumer"
	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/svc"
)

// SampleCalculator assigns samples-per-outer-frame so that the sum
// over any span of N outer frames equals floor(N*frequency/fps)
// exactly: s_i = floor((i+1)*frequency/fps) - floor(i*frequency/fps).
func SampleCalculator(fps float64, frequency int, i int64) int {
	a := math.Floor(float64(i+1) * float64(frequency) / fps)
	b := math.Floor(float64(i) * float64(frequency) / fps)
	return int(a - b)
}

// Producer runs inner at a cloned profile whose frame rate may differ
// from the outer profile, presenting inner content at outer indices
// (spec §4.14).
type Producer struct {
	*svc.Service

	mu sync.Mutex

	outerProfile profile.Profile
	innerProfile profile.Profile
	inner        producer.Producer
	innerConsumer *consumer.Consumer

	lastOuterIndex int64
	haveLast       bool
	sampleCounter  int64
}

// New clones outerProfile to innerFPSNum/innerFPSDen, builds the inner
// producer via newInner, and wires a synchronous (real_time=0) inner
// consumer connected to it (spec §4.14 bullets 1-3).
func New(outerProfile profile.Profile, innerFPSNum, innerFPSDen int, newInner func(profile.Profile) producer.Producer) *Producer {
	innerProfile := outerProfile.WithFrameRate(innerFPSNum, innerFPSDen)
	inner := newInner(innerProfile)

	render := func(f *frame.Frame) error { return nil }
	innerConsumer := consumer.New(render, innerProfile.FPS(), 0, 1, nil)
	_ = innerConsumer.Connect(inner)

	return &Producer{
		Service:       svc.New(svc.KindProducer),
		outerProfile:  outerProfile,
		innerProfile:  innerProfile,
		inner:         inner,
		innerConsumer: innerConsumer,
	}
}

// Svc returns the producer's own Service.
func (p *Producer) Svc() *svc.Service { return p.Service }

// InnerProfile returns the cloned inner profile.
func (p *Producer) InnerProfile() profile.Profile { return p.innerProfile }

// In is always frame 0 of the outer timeline.
func (p *Producer) In() int64 { return 0 }

// Out is the outer-translated last frame of the inner producer.
func (p *Producer) Out() int64 {
	l := p.Length()
	if l == 0 {
		return 0
	}
	return l - 1
}

// Length translates the inner producer's length into outer frame units.
func (p *Producer) Length() int64 {
	innerLen := p.inner.Length()
	outerFPS := p.outerProfile.FPS()
	innerFPS := p.innerProfile.FPS()
	if innerFPS == 0 {
		return innerLen
	}
	return int64(math.Round(float64(innerLen) * outerFPS / innerFPS))
}

// Position, Speed, SetSpeed and Seek exist to satisfy producer.Producer;
// this producer derives inner position purely from the outer index
// passed to GetFrame.
func (p *Producer) Position() int64    { return 0 }
func (p *Producer) Speed() float64     { return 1 }
func (p *Producer) SetSpeed(s float64) {}
func (p *Producer) Seek(pos int64)     {}

// Close releases this producer's own properties and the inner producer.
func (p *Producer) Close() {
	p.inner.Close()
	p.Service.Properties().Close()
}

func (p *Producer) innerPosFor(outerIndex int64) int64 {
	outerFPS := p.outerProfile.FPS()
	innerFPS := p.innerProfile.FPS()
	pos := int64(math.Round(float64(outerIndex) * innerFPS / outerFPS))
	if pos < 0 {
		pos = 0
	}
	if l := p.inner.Length(); l > 0 && pos > l-1 {
		pos = l - 1
	}
	return pos
}

// GetFrame converts outerIndex to an inner position, pulls one inner
// frame through the inner consumer, and wraps it in an outer frame
// whose resolvers delegate image reads directly and adjust audio
// sample counts via SampleCalculator (spec §4.14 step 4): repeated
// requests for the same outer index (the inner producer holding still
// while the outer runs faster) yield zero audio samples rather than
// re-emitting the same span.
func (p *Producer) GetFrame(outerIndex int64) (*frame.Frame, error) {
	p.mu.Lock()

	innerPos := p.innerPosFor(outerIndex)
	p.inner.Seek(innerPos)
	innerFrame, err := p.innerConsumer.PullAt(innerPos)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if innerFrame == nil {
		p.mu.Unlock()
		return nil, errs.ErrNotFound
	}

	samples := 0
	if !p.haveLast || outerIndex != p.lastOuterIndex {
		samples = SampleCalculator(p.outerProfile.FPS(), p.outerProfile.SampleFrequency, p.sampleCounter)
		p.sampleCounter++
	}
	p.lastOuterIndex = outerIndex
	p.haveLast = true
	p.mu.Unlock()

	out := frame.New(p.Service.Properties(), outerIndex)
	out.PushGetImage(func(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
		return innerFrame.GetImage(req)
	})
	out.PushAudio(func(f *frame.Frame, req frame.AudioRequest) (*frame.AudioBuffer, error) {
		if samples == 0 {
			freq, channels := req.Frequency, req.Channels
			if freq <= 0 {
				freq = p.outerProfile.SampleFrequency
			}
			if channels <= 0 {
				channels = p.outerProfile.Channels
			}
			return &frame.AudioBuffer{Format: "s16", Frequency: freq, Channels: channels, Samples: 0}, nil
		}
		r2 := req
		r2.Samples = samples
		return innerFrame.GetAudio(r2)
	})
	return out, nil
}

// NewLoopback wraps inner as a nested producer running at outerProfile's
// own frame rate (no rate conversion), pulled through an inner consumer
// the same way New does. This is the producer_consumer-style nesting
// that lets a tractor sit inside a playlist clip as a plain producer
// (spec §4.x supplemented features, grounded on producer_consumer.c).
func NewLoopback(outerProfile profile.Profile, inner producer.Producer) *Producer {
	return New(outerProfile, outerProfile.FrameRateNum, outerProfile.FrameRateDen, func(profile.Profile) producer.Producer {
		return inner
	})
}
