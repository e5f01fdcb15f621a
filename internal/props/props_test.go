package props

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	p := New()
	p.Set("resource", "clip.mov")
	require.Equal(t, "clip.mov", p.Get("resource"))
	require.Equal(t, "", p.Get("missing"))
}

func TestGetIntCoercion(t *testing.T) {
	p := New()
	p.Set("in", "10")
	p.Set("hex", "0x10")
	p.Set("bad", "abc")
	require.Equal(t, int64(10), p.GetInt("in"))
	require.Equal(t, int64(16), p.GetInt("hex"))
	require.Equal(t, int64(0), p.GetInt("bad"))
	require.Equal(t, int64(0), p.GetInt("missing"))
}

func TestGetDouble(t *testing.T) {
	p := New()
	p.SetDouble("speed", 1.5)
	require.InDelta(t, 1.5, p.GetDouble("speed"), 1e-9)
}

func TestInheritance(t *testing.T) {
	parent := New()
	parent.Set("colorspace", "bt709")

	child := New()
	child.Inherit(parent)

	require.Equal(t, "bt709", child.Get("colorspace"))

	child.Set("colorspace", "bt601")
	require.Equal(t, "bt601", child.Get("colorspace"))
	require.Equal(t, "bt709", parent.Get("colorspace"), "writes must not propagate to parent")
}

func TestPropertyChangedListener(t *testing.T) {
	p := New()
	var seen []string
	p.OnPropertyChanged(func(key string) {
		seen = append(seen, key)
	})
	p.Set("a", "1")
	p.Set("b", "2")
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestPropertyChangedReentrant(t *testing.T) {
	p := New()
	var order []string
	p.OnPropertyChanged(func(key string) {
		order = append(order, key)
		if key == "a" {
			p.Set("b", "2") // re-entrant write, queued.
		}
	})
	p.Set("a", "1")
	require.Equal(t, []string{"a", "b"}, order)
}

func TestSetDataDestructor(t *testing.T) {
	p := New()
	released := false
	p.SetData("buf", []byte{1, 2, 3}, func(interface{}) { released = true }, nil)
	p.Clear("buf")
	require.True(t, released)
}

func TestCloseRunsDestructorsInOrder(t *testing.T) {
	p := New()
	var order []string
	p.SetData("first", 1, func(interface{}) { order = append(order, "first") }, nil)
	p.SetData("second", 2, func(interface{}) { order = append(order, "second") }, nil)
	p.Close()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestPassList(t *testing.T) {
	donor := New()
	donor.Set("resource", "a.mov")
	donor.Set("in", "10")
	donor.Set("out", "20")

	receiver := New()
	receiver.PassList(donor, "resource, out")

	require.Equal(t, "a.mov", receiver.Get("resource"))
	require.Equal(t, "20", receiver.Get("out"))
	require.Equal(t, "", receiver.Get("in"))
}

func TestPassPrefix(t *testing.T) {
	donor := New()
	donor.Set("meta.media.codec", "h264")
	donor.Set("meta.media.fps", "25")
	donor.Set("other", "x")

	receiver := New()
	receiver.PassPrefix(donor, "meta.media.", true)

	require.Equal(t, "h264", receiver.Get("codec"))
	require.Equal(t, "25", receiver.Get("fps"))
	require.Equal(t, "", receiver.Get("other"))
}

func TestPrivateKeysExcludedFromKeys(t *testing.T) {
	p := New()
	p.Set("resource", "a.mov")
	p.Set("_position", "5")
	require.Equal(t, []string{"resource"}, p.Keys())
}

func TestCoerceRectPercent(t *testing.T) {
	r := CoerceRect("50% 50% 50% 50%", 100, 200)
	require.InDelta(t, 50, r.X, 1e-9)
	require.InDelta(t, 100, r.Y, 1e-9)
	require.InDelta(t, 50, r.W, 1e-9)
	require.InDelta(t, 100, r.H, 1e-9)
}

func TestCoerceColorHex(t *testing.T) {
	c := CoerceColor("#FF0000")
	require.Equal(t, Color{255, 0, 0, 255}, c)

	c2 := CoerceColor("white")
	require.Equal(t, Color{255, 255, 255, 255}, c2)
}

func TestCoercePositionClock(t *testing.T) {
	pos := CoercePosition("00:00:01.0", 25)
	require.Equal(t, int64(25), pos)
}

func TestCoercePositionSeconds(t *testing.T) {
	require.Equal(t, int64(50), CoercePosition("2s", 25))
}
