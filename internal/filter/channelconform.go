package filter

import (
	"encoding/binary"
	"math"

	"github.com/mltgo/mlt/internal/frame"
)

// ChannelConform reconciles a source's native channel count with a
// consumer's requested channel count (spec §4.13(5)): it duplicates
// channels round-robin when the source has fewer than requested, and
// downmixes 5.1 to stereo using the ATSC A/52 mix levels (assuming
// maximum center and surround mix) when collapsing 6 channels to 2.
// Grounded on original_source/src/modules/core/filter_audiochannels.c;
// only the interleaved s16 path is implemented, the only format this
// module's producers and consumers emit.
type ChannelConform struct {
	*Base
	targetChannels int
}

// NewChannelConform returns a filter that conforms audio to target
// channels whenever the consumer doesn't request a count of its own.
func NewChannelConform(targetChannels int) *ChannelConform {
	c := &ChannelConform{targetChannels: targetChannels}
	c.Base = NewBase(c.apply)
	return c
}

func (c *ChannelConform) apply(f *frame.Frame) (*frame.Frame, error) {
	f.PushAudio(c.resolve)
	return f, nil
}

func (c *ChannelConform) resolve(f *frame.Frame, req frame.AudioRequest) (*frame.AudioBuffer, error) {
	native := req
	native.Channels = 0
	buf, err := f.NextAudio(native)
	if err != nil {
		return nil, err
	}

	target := c.targetChannels
	if req.Channels > 0 {
		target = req.Channels
	}
	if target <= 0 || buf.Channels == target || buf.Format != "s16" {
		return buf, nil
	}

	if buf.Channels == 6 && target == 2 {
		return downmix51ToStereo(buf), nil
	}
	if buf.Channels < target {
		return duplicateChannels(buf, target), nil
	}
	return buf, nil
}

func clampS16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// downmix51ToStereo folds front-left/front-right/center/LFE/surround-left/
// surround-right into left/right using MIX(front, center, surr) =
// front + 0.707*center + 0.5*surr.
func downmix51ToStereo(buf *frame.AudioBuffer) *frame.AudioBuffer {
	in := make([]int16, len(buf.Data)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(buf.Data[i*2:]))
	}

	out := make([]int16, buf.Samples*2)
	for i := 0; i < buf.Samples; i++ {
		base := i * 6
		fl, fr := float64(in[base]), float64(in[base+1])
		center := float64(in[base+2])
		sl, sr := float64(in[base+4]), float64(in[base+5])
		out[i*2] = clampS16(fl + 0.707*center + 0.5*sl)
		out[i*2+1] = clampS16(fr + 0.707*center + 0.5*sr)
	}

	data := make([]byte, len(out)*2)
	for i, v := range out {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}

	dup := *buf
	dup.Data = data
	dup.Channels = 2
	return &dup
}

// duplicateChannels cycles through the source's available channels to
// fill target channels, round-robin, matching the original's non-downmix
// channel-count-increase behaviour.
func duplicateChannels(buf *frame.AudioBuffer, target int) *frame.AudioBuffer {
	avail := buf.Channels
	in := make([]int16, len(buf.Data)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(buf.Data[i*2:]))
	}

	out := make([]int16, buf.Samples*target)
	k := 0
	for i := 0; i < buf.Samples; i++ {
		for j := 0; j < target; j++ {
			out[i*target+j] = in[i*avail+k]
			k = (k + 1) % avail
		}
	}

	data := make([]byte, len(out)*2)
	for i, v := range out {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}

	dup := *buf
	dup.Data = data
	dup.Channels = target
	return &dup
}
