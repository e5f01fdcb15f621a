// Package frame implements the per-instant output carrier that flows
// through the pipeline: a properties bag, an absolute position, and two
// LIFO resolver stacks that defer actual image/audio production until
// the consumer reads from the frame (spec §3.4, §4.4).
package frame

import (
	"sync"

	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/props"
)

// ImageBuffer is a resolved image plane plus its format metadata.
type ImageBuffer struct {
	Data           []byte
	Format         string
	Width, Height  int
	Strides        []int
	Colorspace     profile.Colorspace
	ColorTRC       string
	ColorPrimaries string
}

// AudioBuffer is a resolved audio block plus its format metadata.
type AudioBuffer struct {
	Data          []byte
	Format        string
	Frequency     int
	Channels      int
	Samples       int
	ChannelLayout string
}

// ImageRequest describes the image a caller wants back; Format/Width/
// Height are hints a resolver may honour or override, reporting back
// what it actually produced by mutating the returned ImageBuffer.
type ImageRequest struct {
	Format   string
	Width    int
	Height   int
	Writable bool
}

// AudioRequest is ImageRequest's counterpart for audio.
type AudioRequest struct {
	Format    string
	Frequency int
	Channels  int
	Samples   int
}

// ImageResolver is one stage of the image resolver stack. It may call
// f.NextImage to fetch the previous stage's output before transforming it.
type ImageResolver func(f *Frame, req ImageRequest) (*ImageBuffer, error)

// AudioResolver is ImageResolver's counterpart for audio.
type AudioResolver func(f *Frame, req AudioRequest) (*AudioBuffer, error)

// Frame carries one instant of pipeline output.
type Frame struct {
	Props    *props.Properties
	position int64

	mu            sync.Mutex
	imageStack    []ImageResolver
	audioStack    []AudioResolver
	serviceStack  []interface{}
	image         *ImageBuffer
	alpha         []byte
	audio         *AudioBuffer
	imageResolved bool
	audioResolved bool
	aspectRatio   float64 // 0 means "same as consumer".

	imageDestructor func()
	alphaDestructor func()
	audioDestructor func()
	closed          bool
}

// New returns an empty frame inheriting from parentProps (typically the
// producing service's properties).
func New(parentProps *props.Properties, position int64) *Frame {
	p := props.New()
	if parentProps != nil {
		p.Inherit(parentProps)
	}
	f := &Frame{Props: p, position: position}
	p.SetInt("meta.position", position)
	return f
}

// Position returns the frame's absolute position, set once by the
// producing service before the frame leaves its GetFrame call.
func (f *Frame) Position() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// AspectRatio returns the frame's aspect ratio override, or 0 meaning
// "same as consumer".
func (f *Frame) AspectRatio() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aspectRatio
}

// SetAspectRatio sets the override.
func (f *Frame) SetAspectRatio(ratio float64) {
	f.mu.Lock()
	f.aspectRatio = ratio
	f.mu.Unlock()
}

// PushGetImage registers the next image resolver stage. Filters call
// this during Process, before any read happens; the stack is consumed
// LIFO on the first GetImage call.
func (f *Frame) PushGetImage(r ImageResolver) {
	f.mu.Lock()
	f.imageStack = append(f.imageStack, r)
	f.mu.Unlock()
}

// PushAudio is PushGetImage's counterpart for audio.
func (f *Frame) PushAudio(r AudioResolver) {
	f.mu.Lock()
	f.audioStack = append(f.audioStack, r)
	f.mu.Unlock()
}

// PushService pushes ptr onto a generic auxiliary stack used to thread
// per-call context through a resolver chain without owning ptr.
func (f *Frame) PushService(ptr interface{}) {
	f.mu.Lock()
	f.serviceStack = append(f.serviceStack, ptr)
	f.mu.Unlock()
}

// PopService pops the most recently pushed auxiliary context, or nil if empty.
func (f *Frame) PopService() interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.serviceStack)
	if n == 0 {
		return nil
	}
	top := f.serviceStack[n-1]
	f.serviceStack = f.serviceStack[:n-1]
	return top
}

// GetImage resolves the frame's image. The first call drains the
// resolver stack (LIFO); subsequent calls are idempotent reads of the
// cached buffer (spec P2), except that Writable requests always return
// a fresh copy so a caller that mutates in place never corrupts a
// buffer another holder may still be reading.
func (f *Frame) GetImage(req ImageRequest) (*ImageBuffer, error) {
	f.mu.Lock()
	if f.imageResolved {
		img := f.image
		f.mu.Unlock()
		return writableCopy(img, req.Writable), nil
	}
	f.mu.Unlock()

	img, err := f.NextImage(req)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.image = img
	f.imageResolved = true
	f.mu.Unlock()

	return writableCopy(img, req.Writable), nil
}

// NextImage pops the next image resolver stage and invokes it, or
// returns the cached image / a black test image if the stack is empty.
// Resolvers call this to obtain the previous stage's output.
func (f *Frame) NextImage(req ImageRequest) (*ImageBuffer, error) {
	f.mu.Lock()
	n := len(f.imageStack)
	if n == 0 {
		cached := f.image
		f.mu.Unlock()
		if cached != nil {
			return cached, nil
		}
		return blackTestImage(req), nil
	}
	r := f.imageStack[n-1]
	f.imageStack = f.imageStack[:n-1]
	f.mu.Unlock()

	return r(f, req)
}

// GetAudio is GetImage's counterpart for audio.
func (f *Frame) GetAudio(req AudioRequest) (*AudioBuffer, error) {
	f.mu.Lock()
	if f.audioResolved {
		buf := f.audio
		f.mu.Unlock()
		return buf, nil
	}
	f.mu.Unlock()

	buf, err := f.NextAudio(req)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.audio = buf
	f.audioResolved = true
	f.mu.Unlock()
	return buf, nil
}

// NextAudio is NextImage's counterpart for audio.
func (f *Frame) NextAudio(req AudioRequest) (*AudioBuffer, error) {
	f.mu.Lock()
	n := len(f.audioStack)
	if n == 0 {
		cached := f.audio
		f.mu.Unlock()
		if cached != nil {
			return cached, nil
		}
		return silentTestAudio(req), nil
	}
	r := f.audioStack[n-1]
	f.audioStack = f.audioStack[:n-1]
	f.mu.Unlock()

	return r(f, req)
}

// SetImage replaces the cached image, running the previous buffer's
// destructor (if any).
func (f *Frame) SetImage(buf *ImageBuffer, destructor func()) {
	f.mu.Lock()
	if f.imageDestructor != nil {
		f.imageDestructor()
	}
	f.image = buf
	f.imageDestructor = destructor
	f.mu.Unlock()
}

// SetAlpha replaces the cached alpha mask.
func (f *Frame) SetAlpha(mask []byte, destructor func()) {
	f.mu.Lock()
	if f.alphaDestructor != nil {
		f.alphaDestructor()
	}
	f.alpha = mask
	f.alphaDestructor = destructor
	f.mu.Unlock()
}

// Alpha returns the cached alpha mask, or nil if the frame is opaque.
func (f *Frame) Alpha() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alpha
}

// SetAudio replaces the cached audio buffer.
func (f *Frame) SetAudio(buf *AudioBuffer, destructor func()) {
	f.mu.Lock()
	if f.audioDestructor != nil {
		f.audioDestructor()
	}
	f.audio = buf
	f.audioDestructor = destructor
	f.mu.Unlock()
}

// Clone returns an independent frame. A shallow clone shares the cached
// buffers (no destructor duplication); a deep clone duplicates them so
// the two frames can be closed independently.
func (f *Frame) Clone(deep bool) *Frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := &Frame{
		Props:         props.New(),
		position:      f.position,
		aspectRatio:   f.aspectRatio,
		imageResolved: f.imageResolved,
		audioResolved: f.audioResolved,
	}
	clone.Props.Inherit(f.Props)

	if f.image != nil {
		if deep {
			dup := *f.image
			dup.Data = append([]byte(nil), f.image.Data...)
			clone.image = &dup
		} else {
			clone.image = f.image
		}
	}
	if f.audio != nil {
		if deep {
			dup := *f.audio
			dup.Data = append([]byte(nil), f.audio.Data...)
			clone.audio = &dup
		} else {
			clone.audio = f.audio
		}
	}
	if f.alpha != nil {
		if deep {
			clone.alpha = append([]byte(nil), f.alpha...)
		} else {
			clone.alpha = f.alpha
		}
	}
	return clone
}

// Close runs the cached buffers' destructors (if any) and then the
// property bag's own destructors, in that order, then marks the frame
// closed. Close is idempotent.
func (f *Frame) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	imgDtor, alphaDtor, audioDtor := f.imageDestructor, f.alphaDestructor, f.audioDestructor
	f.mu.Unlock()

	if imgDtor != nil {
		imgDtor()
	}
	if alphaDtor != nil {
		alphaDtor()
	}
	if audioDtor != nil {
		audioDtor()
	}
	f.Props.Close()
}

func writableCopy(img *ImageBuffer, writable bool) *ImageBuffer {
	if img == nil || !writable {
		return img
	}
	dup := *img
	dup.Data = append([]byte(nil), img.Data...)
	return &dup
}

func blackTestImage(req ImageRequest) *ImageBuffer {
	format := req.Format
	if format == "" {
		format = "rgba"
	}
	w, h := req.Width, req.Height
	if w <= 0 {
		w = 16
	}
	if h <= 0 {
		h = 16
	}
	return &ImageBuffer{
		Data:   make([]byte, w*h*4), // zeroed: opaque black in RGBA.
		Format: format,
		Width:  w,
		Height: h,
	}
}

func silentTestAudio(req AudioRequest) *AudioBuffer {
	channels := req.Channels
	if channels <= 0 {
		channels = 2
	}
	samples := req.Samples
	if samples <= 0 {
		samples = 1 // callers typically override via the producer below.
	}
	freq := req.Frequency
	if freq <= 0 {
		freq = 48000
	}
	format := req.Format
	if format == "" {
		format = "s16"
	}
	return &AudioBuffer{
		Data:      make([]byte, samples*channels*2), // zeroed: silence.
		Format:    format,
		Frequency: freq,
		Channels:  channels,
		Samples:   samples,
	}
}
