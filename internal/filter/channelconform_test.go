package filter

import (
	"encoding/binary"
	"testing"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/stretchr/testify/require"
)

func s16Buffer(samples, channels int, fill func(sample, channel int) int16) *frame.AudioBuffer {
	data := make([]byte, samples*channels*2)
	for i := 0; i < samples; i++ {
		for c := 0; c < channels; c++ {
			idx := (i*channels + c) * 2
			binary.LittleEndian.PutUint16(data[idx:], uint16(fill(i, c)))
		}
	}
	return &frame.AudioBuffer{Data: data, Format: "s16", Frequency: 48000, Channels: channels, Samples: samples}
}

func pushSourceAudio(f *frame.Frame, buf *frame.AudioBuffer) {
	f.PushAudio(func(f *frame.Frame, req frame.AudioRequest) (*frame.AudioBuffer, error) {
		return buf, nil
	})
}

func TestChannelConformDownmix51ToStereo(t *testing.T) {
	src := s16Buffer(4, 6, func(sample, channel int) int16 {
		switch channel {
		case 0:
			return 1000 // front left
		case 1:
			return 2000 // front right
		case 2:
			return 900 // center
		case 4:
			return 400 // surround left
		case 5:
			return 600 // surround right
		}
		return 0
	})
	f := frame.New(nil, 0)
	pushSourceAudio(f, src)

	c := NewChannelConform(2)
	c.apply(f)

	out, err := f.GetAudio(frame.AudioRequest{Channels: 2})
	require.NoError(t, err)
	require.Equal(t, 2, out.Channels)

	left := int16(binary.LittleEndian.Uint16(out.Data[0:]))
	right := int16(binary.LittleEndian.Uint16(out.Data[2:]))
	require.InDelta(t, 1000+0.707*900+0.5*400, float64(left), 1.0)
	require.InDelta(t, 2000+0.707*900+0.5*600, float64(right), 1.0)
}

func TestChannelConformDuplicatesMonoToStereo(t *testing.T) {
	src := s16Buffer(2, 1, func(sample, channel int) int16 { return int16(100 + sample) })
	f := frame.New(nil, 0)
	pushSourceAudio(f, src)

	c := NewChannelConform(2)
	c.apply(f)

	out, err := f.GetAudio(frame.AudioRequest{Channels: 2})
	require.NoError(t, err)
	require.Equal(t, 2, out.Channels)
	for i := 0; i < 2; i++ {
		l := int16(binary.LittleEndian.Uint16(out.Data[i*4:]))
		r := int16(binary.LittleEndian.Uint16(out.Data[i*4+2:]))
		require.Equal(t, int16(100+i), l)
		require.Equal(t, int16(100+i), r)
	}
}

func TestChannelConformPassesThroughWhenAlreadyMatching(t *testing.T) {
	src := s16Buffer(1, 2, func(sample, channel int) int16 { return 42 })
	f := frame.New(nil, 0)
	pushSourceAudio(f, src)

	c := NewChannelConform(2)
	c.apply(f)

	out, err := f.GetAudio(frame.AudioRequest{Channels: 2})
	require.NoError(t, err)
	require.Same(t, src, out)
}
