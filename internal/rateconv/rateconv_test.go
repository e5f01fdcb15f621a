package rateconv

import (
	"testing"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/stretchr/testify/require"
)

func fakeAudioReq() frame.AudioRequest {
	return frame.AudioRequest{Frequency: 48000, Channels: 2}
}

func TestSampleCalculatorSumsExactly(t *testing.T) {
	const fps = 25.0
	const freq = 48000
	var total int
	for i := int64(0); i < 100; i++ {
		total += SampleCalculator(fps, freq, i)
	}
	expected := int(100 * freq / fps)
	require.Equal(t, expected, total)
}

func TestRateConvTranslatesOuterIndexToInnerPosition(t *testing.T) {
	outer := profile.Default() // 25fps
	var capturedInner []int64
	rc := New(outer, 50, 1, func(p profile.Profile) producer.Producer {
		inner := producer.NewColour(p, "red", 1000)
		return &trackingProducer{Colour: inner, captured: &capturedInner}
	})

	_, err := rc.GetFrame(10) // outer frame 10 at 25fps -> inner pos 20 at 50fps
	require.NoError(t, err)
	require.Equal(t, []int64{20}, capturedInner)
}

func TestRateConvRepeatedOuterIndexYieldsZeroSamples(t *testing.T) {
	outer := profile.Default()
	rc := New(outer, 50, 1, func(p profile.Profile) producer.Producer {
		return producer.NewColour(p, "red", 1000)
	})

	f1, err := rc.GetFrame(5)
	require.NoError(t, err)
	aud1, err := f1.GetAudio(fakeAudioReq())
	require.NoError(t, err)
	require.Greater(t, aud1.Samples, 0)

	f2, err := rc.GetFrame(5)
	require.NoError(t, err)
	aud2, err := f2.GetAudio(fakeAudioReq())
	require.NoError(t, err)
	require.Equal(t, 0, aud2.Samples)
}

func TestRateConvLengthScalesByFrameRateRatio(t *testing.T) {
	outer := profile.Default() // 25fps
	rc := New(outer, 50, 1, func(p profile.Profile) producer.Producer {
		return producer.NewColour(p, "red", 1000) // 1000 frames @ 50fps = 20s
	})
	require.Equal(t, int64(500), rc.Length()) // 20s @ 25fps
}

type trackingProducer struct {
	*producer.Colour
	captured *[]int64
}

func (t *trackingProducer) GetFrame(index int64) (*frame.Frame, error) {
	*t.captured = append(*t.captured, index)
	return t.Colour.GetFrame(index)
}

func TestNewLoopbackPassesThroughAtSameRate(t *testing.T) {
	outer := profile.Default()
	inner := producer.NewColour(outer, "red", 50)
	rc := NewLoopback(outer, inner)

	require.Equal(t, inner.Length(), rc.Length())

	f, err := rc.GetFrame(3)
	require.NoError(t, err)
	img, err := f.GetImage(frame.ImageRequest{Width: outer.Width, Height: outer.Height})
	require.NoError(t, err)
	require.NotNil(t, img)
}
