package transition

import (
	"encoding/binary"

	"github.com/mltgo/mlt/internal/frame"
)

// NewCrossfade returns a transition that linearly dissolves from the A
// track to the B track across [in, out], matching the mid-crossfade
// byte-exact average at the transition's midpoint (spec §4.8, scenario
// S6): alpha ramps 0 at in to just under 1 at out, weighting A by
// (1-alpha) and B by alpha.
func NewCrossfade(aTrack, bTrack int, in, out int64) *Transition {
	t := New(aTrack, bTrack, nil)
	t.In, t.Out = in, out
	t.combine = t.crossfade
	return t
}

func (t *Transition) alphaAt(pos int64) float64 {
	span := t.Out - t.In + 1
	if span <= 0 {
		return 1
	}
	a := float64(pos-t.In) / float64(span)
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	return a
}

func (t *Transition) crossfade(aFrame, bFrame *frame.Frame) (*frame.Frame, error) {
	pos := aFrame.Position()
	aFrame.PushGetImage(func(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
		aImg, err := f.NextImage(req)
		if err != nil {
			return nil, err
		}
		bImg, err := bFrame.GetImage(req)
		if err != nil {
			return nil, err
		}
		return mixImages(aImg, bImg, t.alphaAt(pos)), nil
	})
	aFrame.PushAudio(func(f *frame.Frame, req frame.AudioRequest) (*frame.AudioBuffer, error) {
		aAud, err := f.NextAudio(req)
		if err != nil {
			return nil, err
		}
		bAud, err := bFrame.GetAudio(req)
		if err != nil {
			return nil, err
		}
		return mixAudio(aAud, bAud, t.alphaAt(pos)), nil
	})
	return aFrame, nil
}

func clampU8(v float64) byte {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return byte(v)
}

func clampS16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func mixImages(a, b *frame.ImageBuffer, alpha float64) *frame.ImageBuffer {
	n := len(a.Data)
	if len(b.Data) < n {
		n = len(b.Data)
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	for i := 0; i < n; i++ {
		data[i] = clampU8(float64(a.Data[i])*(1-alpha) + float64(b.Data[i])*alpha)
	}
	dup := *a
	dup.Data = data
	return &dup
}

func mixAudio(a, b *frame.AudioBuffer, alpha float64) *frame.AudioBuffer {
	if a.Format != "s16" || b.Format != "s16" {
		return a
	}
	n := len(a.Data) / 2
	if len(b.Data)/2 < n {
		n = len(b.Data) / 2
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	for i := 0; i < n; i++ {
		av := int16(binary.LittleEndian.Uint16(a.Data[i*2:]))
		bv := int16(binary.LittleEndian.Uint16(b.Data[i*2:]))
		mixed := float64(av)*(1-alpha) + float64(bv)*alpha
		binary.LittleEndian.PutUint16(data[i*2:], uint16(clampS16(mixed)))
	}
	dup := *a
	dup.Data = data
	return &dup
}
