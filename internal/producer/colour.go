package producer

import (
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/props"
)

// Colour is a solid-colour/silence test generator: the Playlist's blank
// producer (original_source/src/modules/core/producer_colour.c). The
// loader does not fall back to it: Loader.Resolve returns ErrNotFound
// for a resource it cannot resolve.
type Colour struct {
	*Base
	color   props.Color
	profile profile.Profile
}

// NewColour returns a producer of length frames that emits color on
// every read; color defaults to opaque black when colorSpec is empty.
func NewColour(p profile.Profile, colorSpec string, length int64) *Colour {
	if colorSpec == "" {
		colorSpec = "0x000000ff"
	}
	c := &Colour{
		color:   props.CoerceColor(colorSpec),
		profile: p,
	}
	c.Base = NewBase(length, c.emit)
	c.Svc().Properties().Set("resource", colorSpec)
	c.Svc().Properties().Set("mlt_service", "colour")
	return c
}

func (c *Colour) emit(pos int64) (*frame.Frame, error) {
	f := frame.New(c.Svc().Properties(), pos)
	f.Props.Set("test_image", "1")
	f.Props.Set("test_audio", "1")

	w, h := c.profile.Width, c.profile.Height
	data := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		data[i*4+0] = c.color.R
		data[i*4+1] = c.color.G
		data[i*4+2] = c.color.B
		data[i*4+3] = c.color.A
	}
	f.SetImage(&frame.ImageBuffer{
		Data:   data,
		Format: "rgba",
		Width:  w,
		Height: h,
	}, nil)

	freq := c.profile.SampleFrequency
	channels := c.profile.Channels
	samples := int(float64(freq) / c.profile.FPS())
	f.SetAudio(&frame.AudioBuffer{
		Data:      make([]byte, samples*channels*2),
		Format:    "s16",
		Frequency: freq,
		Channels:  channels,
		Samples:   samples,
	}, nil)

	return f, nil
}
