package producer

import (
	"testing"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/stretchr/testify/require"
)

func TestNewColourDefaultsToOpaqueBlack(t *testing.T) {
	c := NewColour(profile.Default(), "", 10)
	require.Equal(t, "0x000000ff", c.Svc().Properties().Get("resource"))

	f, err := c.GetFrame(0)
	require.NoError(t, err)
	img, err := f.GetImage(frame.ImageRequest{Width: 4, Height: 4})
	require.NoError(t, err)
	require.Equal(t, byte(0), img.Data[0])
	require.Equal(t, byte(0xff), img.Data[3])
}

func TestNewColourParsesNamedColour(t *testing.T) {
	c := NewColour(profile.Default(), "red", 10)
	f, err := c.GetFrame(0)
	require.NoError(t, err)
	img, err := f.GetImage(frame.ImageRequest{Width: 2, Height: 2})
	require.NoError(t, err)
	require.Equal(t, byte(0xff), img.Data[0])
	require.Equal(t, byte(0x00), img.Data[1])
	require.Equal(t, byte(0x00), img.Data[2])
}

func TestColourProducesSilentAudioEveryFrame(t *testing.T) {
	c := NewColour(profile.Default(), "blue", 5)
	for i := int64(0); i < 3; i++ {
		f, err := c.GetFrame(i)
		require.NoError(t, err)
		aud, err := f.GetAudio(frame.AudioRequest{})
		require.NoError(t, err)
		for _, b := range aud.Data {
			require.Equal(t, byte(0), b)
		}
	}
}
