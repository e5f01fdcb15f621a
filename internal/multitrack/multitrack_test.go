package multitrack

import (
	"testing"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/transition"
	"github.com/stretchr/testify/require"
)

func TestMultitrackGetFrameReturnsTrackZero(t *testing.T) {
	p := profile.Default()
	mt := New()
	mt.AddTrack(producer.NewColour(p, "red", 50))
	mt.AddTrack(producer.NewColour(p, "blue", 50))

	f, err := mt.GetFrame(0)
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestGetTrackFramesReturnsOnePerTrack(t *testing.T) {
	p := profile.Default()
	mt := New()
	mt.AddTrack(producer.NewColour(p, "red", 50))
	mt.AddTrack(producer.NewColour(p, "blue", 50))
	mt.AddTrack(producer.NewColour(p, "green", 50))

	frames, err := mt.GetTrackFrames(10)
	require.NoError(t, err)
	require.Len(t, frames, 3)
}

func TestTractorAppliesCoveringCrossfade(t *testing.T) {
	p := profile.Default()
	mt := New()
	mt.AddTrack(producer.NewColour(p, "0xff0000ff", 50))
	mt.AddTrack(producer.NewColour(p, "0x0000ffff", 50))

	field := NewField()
	field.Plant(transition.NewCrossfade(0, 1, 25, 34))

	tr := NewTractor(mt, field)
	f, err := tr.GetFrame(30)
	require.NoError(t, err)

	img, err := f.GetImage(frame.ImageRequest{})
	require.NoError(t, err)
	require.Equal(t, byte(0x7f), img.Data[0]) // red faded by half against blue's R=0
}

func TestTractorLengthIsLongestTrack(t *testing.T) {
	p := profile.Default()
	mt := New()
	mt.AddTrack(producer.NewColour(p, "red", 30))
	mt.AddTrack(producer.NewColour(p, "blue", 90))

	tr := NewTractor(mt, NewField())
	require.Equal(t, int64(90), tr.Length())
}
