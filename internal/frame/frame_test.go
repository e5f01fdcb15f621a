package frame

import (
	"testing"

	"github.com/mltgo/mlt/internal/props"
	"github.com/stretchr/testify/require"
)

func TestNewFrameSetsMetaPosition(t *testing.T) {
	f := New(nil, 42)
	require.Equal(t, int64(42), f.Position())
	require.Equal(t, int64(42), f.Props.GetInt("meta.position"))
}

func TestGetImageIdempotent(t *testing.T) {
	f := New(nil, 0)
	img1, err := f.GetImage(ImageRequest{Width: 4, Height: 4})
	require.NoError(t, err)
	img2, err := f.GetImage(ImageRequest{Width: 4, Height: 4})
	require.NoError(t, err)
	require.Same(t, img1, img2, "repeated reads must return the identical cached buffer")
}

func TestPushGetImageLIFOOrder(t *testing.T) {
	f := New(nil, 0)
	var order []string

	// First attached filter pushes first -> bottom of stack.
	f.PushGetImage(func(f *Frame, req ImageRequest) (*ImageBuffer, error) {
		order = append(order, "filter1")
		return f.NextImage(req)
	})
	// Second attached filter pushes second -> top of stack, runs first.
	f.PushGetImage(func(f *Frame, req ImageRequest) (*ImageBuffer, error) {
		order = append(order, "filter2")
		return f.NextImage(req)
	})

	_, err := f.GetImage(ImageRequest{Width: 2, Height: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"filter2", "filter1"}, order)
}

func TestWritableRequestReturnsFreshCopy(t *testing.T) {
	f := New(nil, 0)
	img1, err := f.GetImage(ImageRequest{Width: 2, Height: 2})
	require.NoError(t, err)

	img2, err := f.GetImage(ImageRequest{Width: 2, Height: 2, Writable: true})
	require.NoError(t, err)

	require.NotSame(t, img1, img2)
	img2.Data[0] = 0xFF
	require.NotEqual(t, img1.Data[0], img2.Data[0])
}

func TestSetImageRunsPreviousDestructor(t *testing.T) {
	f := New(nil, 0)
	released := false
	f.SetImage(&ImageBuffer{Data: []byte{1}}, func() { released = true })
	f.SetImage(&ImageBuffer{Data: []byte{2}}, func() {})
	require.True(t, released)
}

func TestCloseRunsDestructorsInOrder(t *testing.T) {
	f := New(nil, 0)
	var order []string
	f.SetImage(&ImageBuffer{}, func() { order = append(order, "image") })
	f.SetAudio(&AudioBuffer{}, func() { order = append(order, "audio") })
	f.Close()
	require.Equal(t, []string{"image", "audio"}, order)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := New(nil, 0)
	calls := 0
	f.SetImage(&ImageBuffer{}, func() { calls++ })
	f.Close()
	f.Close()
	require.Equal(t, 1, calls)
}

func TestCloneShallowSharesBuffer(t *testing.T) {
	f := New(nil, 5)
	f.SetImage(&ImageBuffer{Data: []byte{9, 9}}, nil)
	clone := f.Clone(false)
	require.Same(t, f.image, clone.image)
}

func TestCloneDeepDuplicatesBuffer(t *testing.T) {
	f := New(nil, 5)
	f.SetImage(&ImageBuffer{Data: []byte{9, 9}}, nil)
	clone := f.Clone(true)
	require.NotSame(t, f.image, clone.image)
	require.Equal(t, f.image.Data, clone.image.Data)
}

func TestFramePropsInheritFromParent(t *testing.T) {
	parent := props.New()
	parent.Set("colorspace", "bt709")
	f := New(parent, 0)
	require.Equal(t, "bt709", f.Props.Get("colorspace"))
}

func TestPushPopService(t *testing.T) {
	f := New(nil, 0)
	require.Nil(t, f.PopService())
	f.PushService("a")
	f.PushService("b")
	require.Equal(t, "b", f.PopService())
	require.Equal(t, "a", f.PopService())
	require.Nil(t, f.PopService())
}
