package playlist

import (
	"testing"

	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/stretchr/testify/require"
)

func newClip(p profile.Profile, length int64) *producer.Colour {
	return producer.NewColour(p, "red", length)
}

func TestAppendAndLength(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)
	pl.Append(newClip(p, 20), 0, -1)
	require.Equal(t, 2, pl.Count())
	require.Equal(t, int64(30), pl.Length())
}

func TestBlankEmitsTestMarkers(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Blank(5)
	require.Equal(t, int64(5), pl.Length())

	f, err := pl.GetFrame(0)
	require.NoError(t, err)
	require.Equal(t, "1", f.Props.Get("test_image"))
}

func TestGetClipAtBinarySearch(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)
	pl.Append(newClip(p, 20), 0, -1)
	pl.Append(newClip(p, 5), 0, -1)

	i, within := pl.GetClipAt(0)
	require.Equal(t, 0, i)
	require.Equal(t, int64(0), within)

	i, within = pl.GetClipAt(9)
	require.Equal(t, 0, i)
	require.Equal(t, int64(9), within)

	i, within = pl.GetClipAt(10)
	require.Equal(t, 1, i)
	require.Equal(t, int64(0), within)

	i, within = pl.GetClipAt(29)
	require.Equal(t, 1, i)
	require.Equal(t, int64(19), within)

	i, within = pl.GetClipAt(30)
	require.Equal(t, 2, i)
	require.Equal(t, int64(0), within)
}

func TestRemoveShiftsSubsequentStarts(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)
	pl.Append(newClip(p, 20), 0, -1)
	pl.Append(newClip(p, 5), 0, -1)

	require.NoError(t, pl.Remove(0))
	require.Equal(t, int64(25), pl.Length())

	i, within := pl.GetClipAt(0)
	require.Equal(t, 0, i)
	require.Equal(t, int64(0), within)
}

func TestMoveReorders(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	a := newClip(p, 10)
	b := newClip(p, 20)
	pl.Append(a, 0, -1)
	pl.Append(b, 0, -1)

	require.NoError(t, pl.Move(1, 0))
	require.Same(t, b, pl.GetClip(0).Parent())
	require.Same(t, a, pl.GetClip(1).Parent())
}

func TestReorderRejectsDuplicateIndex(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)
	pl.Append(newClip(p, 20), 0, -1)

	err := pl.Reorder([]int{0, 0})
	require.Error(t, err)
	// State left untouched: clip 0 is still the first 10-frame clip.
	require.Equal(t, int64(30), pl.Length())
}

func TestReorderRejectsOutOfRangeIndex(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)
	pl.Append(newClip(p, 20), 0, -1)

	require.Error(t, pl.Reorder([]int{0, 2}))
}

func TestResizeClipRejectsInGreaterThanOut(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)

	require.Error(t, pl.ResizeClip(0, 5, 2))
}

func TestResizeClipRejectsOutPastParentLength(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)

	require.Error(t, pl.ResizeClip(0, 2, 1000))
	require.Equal(t, int64(10), pl.Length())
}

func TestResizeClipUpdatesLength(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)

	require.NoError(t, pl.ResizeClip(0, 2, 6))
	require.Equal(t, int64(5), pl.Length())
}

func TestGetFrameStampsClipPositionAndLength(t *testing.T) {
	p := profile.Default()
	pl := New(p)
	pl.Append(newClip(p, 10), 0, -1)
	pl.Append(newClip(p, 20), 0, -1)

	f, err := pl.GetFrame(12)
	require.NoError(t, err)
	require.Equal(t, int64(2), f.Props.GetInt("meta.playlist.clip_position"))
	require.Equal(t, int64(20), f.Props.GetInt("meta.playlist.clip_length"))
}
