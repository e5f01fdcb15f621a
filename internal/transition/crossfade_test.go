package transition

import (
	"testing"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/stretchr/testify/require"
)

func solidImage(v byte) *frame.ImageBuffer {
	data := make([]byte, 16)
	for i := range data {
		data[i] = v
	}
	return &frame.ImageBuffer{Data: data, Format: "rgba", Width: 2, Height: 2}
}

func TestCrossfadeCoversWindow(t *testing.T) {
	tr := NewCrossfade(0, 1, 25, 34)
	require.False(t, tr.Covers(24))
	require.True(t, tr.Covers(25))
	require.True(t, tr.Covers(30))
	require.True(t, tr.Covers(34))
	require.False(t, tr.Covers(35))
}

func TestCrossfadeAlphaAtMidpointIsHalf(t *testing.T) {
	tr := NewCrossfade(0, 1, 25, 34)
	require.InDelta(t, 0.5, tr.alphaAt(30), 1e-9)
}

func TestCrossfadeMixesImagesByteExactAtMidpoint(t *testing.T) {
	tr := NewCrossfade(0, 1, 25, 34)

	a := frame.New(nil, 30)
	a.PushGetImage(func(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
		return solidImage(100), nil
	})
	b := frame.New(nil, 30)
	b.PushGetImage(func(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
		return solidImage(200), nil
	})

	out, err := tr.Process(a, b)
	require.NoError(t, err)
	img, err := out.GetImage(frame.ImageRequest{})
	require.NoError(t, err)
	for _, v := range img.Data {
		require.Equal(t, byte(150), v)
	}
}

func TestCrossfadeAtBoundariesFavoursSingleTrack(t *testing.T) {
	tr := NewCrossfade(0, 1, 25, 34)

	a := frame.New(nil, 25)
	a.PushGetImage(func(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
		return solidImage(10), nil
	})
	b := frame.New(nil, 25)
	b.PushGetImage(func(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
		return solidImage(250), nil
	})

	out, err := tr.Process(a, b)
	require.NoError(t, err)
	img, err := out.GetImage(frame.ImageRequest{})
	require.NoError(t, err)
	require.Equal(t, byte(10), img.Data[0])
}
