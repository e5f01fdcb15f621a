package filter

import (
	"encoding/binary"
	"math"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/props"
)

// Autofade automatically fades audio and video at the start and end of
// every playlist clip (spec §4.10.3 seam markers), grounded on
// original_source/src/modules/core/filter_autofade.c. It reads the
// meta.playlist.clip_position/clip_length keys a playlist stamps onto
// each frame it emits.
type Autofade struct {
	*Base
	fadeDurationMs int
	fadeColor      props.Color
	fadeAudio      bool
	fadeVideo      bool
	fps            float64

	fadeInCount  int64
	fadeOutCount int64
}

// NewAutofade returns a filter fading fadeDurationMs at each clip
// boundary, toward fadeColor for video.
func NewAutofade(fps float64, fadeDurationMs int, fadeColor props.Color) *Autofade {
	a := &Autofade{
		fadeDurationMs: fadeDurationMs,
		fadeColor:      fadeColor,
		fadeAudio:      true,
		fadeVideo:      true,
		fps:            fps,
	}
	a.Base = NewBase(a.apply)
	return a
}

// FadeInCount returns how many frames have fallen within a fade-in window.
func (a *Autofade) FadeInCount() int64 { return a.fadeInCount }

// FadeOutCount returns how many frames have fallen within a fade-out window.
func (a *Autofade) FadeOutCount() int64 { return a.fadeOutCount }

func decayFactor(position, count int) float64 {
	if count <= 1 {
		return 1
	}
	f := float64(position) / float64(count-1)
	if f < 0 {
		f = 0
	} else if f > 1.0 {
		f = 1.0
	}
	return f
}

// samplesToPosition converts a frame position to a sample offset:
// round(position * frequency / fps).
func samplesToPosition(fps float64, frequency int, position int64) int64 {
	return int64(math.Round(float64(position) * float64(frequency) / fps))
}

func (a *Autofade) apply(f *frame.Frame) (*frame.Frame, error) {
	clipPosition := f.Props.GetInt("meta.playlist.clip_position")
	clipLength := f.Props.GetInt("meta.playlist.clip_length")
	msFromBeginning := float64(clipPosition) * 1000.0 / a.fps
	msFromEnd := float64(clipLength-clipPosition-1) * 1000.0 / a.fps

	fade := false
	if msFromBeginning <= float64(a.fadeDurationMs) {
		fade = true
		a.fadeInCount++
	} else if msFromEnd <= float64(a.fadeDurationMs) {
		fade = true
		a.fadeOutCount++
	}
	if !fade {
		return f, nil
	}

	if a.fadeAudio {
		f.PushAudio(a.resolveAudio)
	}
	if a.fadeVideo {
		f.PushGetImage(a.resolveImage)
	}
	return f, nil
}

func (a *Autofade) resolveAudio(f *frame.Frame, req frame.AudioRequest) (*frame.AudioBuffer, error) {
	buf, err := f.NextAudio(req)
	if err != nil {
		return nil, err
	}
	if buf.Format != "s16" {
		return buf, nil
	}

	clipPosition := f.Props.GetInt("meta.playlist.clip_position")
	clipLength := f.Props.GetInt("meta.playlist.clip_length")
	fadeSamples := int64(a.fadeDurationMs) * int64(buf.Frequency) / 1000
	samplesToFrameBegin := samplesToPosition(a.fps, buf.Frequency, clipPosition)
	samplesInClip := samplesToPosition(a.fps, buf.Frequency, clipLength+1)
	samplesToClipEnd := samplesInClip - samplesToFrameBegin - int64(buf.Samples)

	in := make([]int16, len(buf.Data)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(buf.Data[i*2:]))
	}

	switch {
	case samplesToFrameBegin <= fadeSamples:
		for i := 0; i < buf.Samples; i++ {
			factor := decayFactor(int(samplesToFrameBegin)+i, int(fadeSamples))
			for c := 0; c < buf.Channels; c++ {
				idx := i*buf.Channels + c
				in[idx] = clampS16(float64(in[idx]) * factor)
			}
		}
	case samplesToClipEnd-int64(buf.Samples) <= fadeSamples:
		for i := 0; i < buf.Samples; i++ {
			factor := decayFactor(int(samplesToClipEnd)-i, int(fadeSamples))
			for c := 0; c < buf.Channels; c++ {
				idx := i*buf.Channels + c
				in[idx] = clampS16(float64(in[idx]) * factor)
			}
		}
	}

	data := make([]byte, len(in)*2)
	for i, v := range in {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	dup := *buf
	dup.Data = data
	return &dup, nil
}

func (a *Autofade) resolveImage(f *frame.Frame, req frame.ImageRequest) (*frame.ImageBuffer, error) {
	img, err := f.NextImage(req)
	if err != nil {
		return nil, err
	}
	if img.Format != "rgba" {
		return img, nil
	}

	clipPosition := f.Props.GetInt("meta.playlist.clip_position")
	clipLength := f.Props.GetInt("meta.playlist.clip_length")
	fadeDurationFrames := int(math.Round(float64(a.fadeDurationMs) * a.fps / 1000.0))
	framesFromBeginning := int(clipPosition) + 1
	framesToEnd := int(clipLength-clipPosition) - 1

	imageFactor := 1.0
	switch {
	case framesFromBeginning <= fadeDurationFrames:
		imageFactor = decayFactor(int(clipPosition), fadeDurationFrames)
	case framesToEnd <= fadeDurationFrames:
		imageFactor = decayFactor(framesToEnd, fadeDurationFrames)
	}
	if imageFactor >= 1.0 {
		return img, nil
	}

	colorFactor := 1.0 - imageFactor
	rAdd := float64(a.fadeColor.R) * colorFactor
	gAdd := float64(a.fadeColor.G) * colorFactor
	bAdd := float64(a.fadeColor.B) * colorFactor
	aAdd := float64(a.fadeColor.A) * colorFactor

	data := append([]byte(nil), img.Data...)
	for i := 0; i+3 < len(data); i += 4 {
		data[i+0] = clampU8(float64(data[i+0])*imageFactor + rAdd)
		data[i+1] = clampU8(float64(data[i+1])*imageFactor + gAdd)
		data[i+2] = clampU8(float64(data[i+2])*imageFactor + bAdd)
		data[i+3] = clampU8(float64(data[i+3])*imageFactor + aAdd)
	}
	dup := *img
	dup.Data = data
	return &dup, nil
}

func clampU8(v float64) byte {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return byte(v)
}
