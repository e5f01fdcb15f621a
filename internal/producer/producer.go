// Package producer implements the Producer service variant: position,
// in/out, speed and eof handling (spec §3.5, §4.6), plus the Cut view
// over a parent producer.
package producer

import (
	"sync"

	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/svc"
)

// EOFPolicy selects behaviour once position runs past Out (or before In
// when running in reverse).
type EOFPolicy int

// End-of-clip policies, spec §3.5.
const (
	EOFPause EOFPolicy = iota
	EOFLoop
	EOFContinue
)

// EmitFunc builds the raw frame content for pos, creating the frame at
// pos; it does not need to apply attached filters, Base.GetFrame does.
type EmitFunc func(pos int64) (*frame.Frame, error)

// Producer is the contract every producer (plain or cut) satisfies.
type Producer interface {
	GetFrame(index int64) (*frame.Frame, error)
	Svc() *svc.Service
	Position() int64
	In() int64
	Out() int64
	Length() int64
	Speed() float64
	SetSpeed(s float64)
	Seek(pos int64)
	Close()
}

// Base implements the shared position/in/out/speed/eof state machine
// (spec §4.6.1). Concrete producers embed Base and supply an EmitFunc.
type Base struct {
	*svc.Service

	mu       sync.Mutex
	position int64
	in       int64
	out      int64
	length   int64
	speed    float64
	eof      EOFPolicy

	emit EmitFunc
}

// NewBase returns a Base of the given length (valid positions are
// 0..length-1) with default in=0, out=length-1, speed=1.
func NewBase(length int64, emit EmitFunc) *Base {
	out := length - 1
	if out < 0 {
		out = 0
	}
	return &Base{
		Service: svc.New(svc.KindProducer),
		out:     out,
		length:  length,
		speed:   1,
		emit:    emit,
	}
}

// Svc returns the embedded Service.
func (b *Base) Svc() *svc.Service { return b.Service }

// Position returns the current cursor.
func (b *Base) Position() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

// In returns the first usable frame.
func (b *Base) In() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.in
}

// Out returns the last usable frame, inclusive.
func (b *Base) Out() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out
}

// Length returns the producer's derived or explicit length.
func (b *Base) Length() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Speed returns the current playback speed.
func (b *Base) Speed() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// SetSpeed sets playback speed. 0 pauses, negative reverses.
func (b *Base) SetSpeed(s float64) {
	b.mu.Lock()
	b.speed = s
	b.mu.Unlock()
}

// SetEOF sets the end-of-clip policy.
func (b *Base) SetEOF(e EOFPolicy) {
	b.mu.Lock()
	b.eof = e
	b.mu.Unlock()
}

// SetInOut sets the clip bounds; bounds that ValidateInOut rejects are
// not clamped but returned as an error, leaving in/out unchanged.
func (b *Base) SetInOut(in, out int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ValidateInOut(in, out, b.length); err != nil {
		return err
	}
	b.in, b.out = in, out
	return nil
}

// ValidateInOut applies the bound rule every in/out setter in this
// package shares: reject if in > out or out is not a valid index into
// [0, length) (spec §4.10's "fail if in > out or out >= parent.length").
func ValidateInOut(in, out, length int64) error {
	if in > out || out >= length {
		return errs.ErrInvalidArgument
	}
	return nil
}

// Seek clamps f into [0, length-1], or wraps modulo length on loop eof.
func (b *Base) Seek(f int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = b.clampLocked(f)
}

func (b *Base) clampLocked(f int64) int64 {
	if b.length <= 0 {
		return 0
	}
	if b.eof == EOFLoop {
		f %= b.length
		if f < 0 {
			f += b.length
		}
		return f
	}
	if f < 0 {
		return 0
	}
	if f > b.length-1 {
		return b.length - 1
	}
	return f
}

// roundSpeed rounds s to the nearest integer frame step, spec §4.6.1.
func roundSpeed(s float64) int64 {
	if s >= 0 {
		return int64(s + 0.5)
	}
	return -int64(-s + 0.5)
}

// prepareNext advances position by round(speed) frames and applies the
// eof policy once position runs past [in, out] (spec §4.6.1).
func (b *Base) prepareNext() {
	b.mu.Lock()
	defer b.mu.Unlock()

	step := roundSpeed(b.speed)
	b.position += step

	if b.position > b.out {
		switch b.eof {
		case EOFPause:
			b.position = b.out
			b.speed = 0
		case EOFLoop:
			span := b.out - b.in + 1
			if span <= 0 {
				b.position = b.in
			} else {
				b.position = b.in + ((b.position - b.in) % span)
			}
		case EOFContinue:
			b.position = b.out + 1
		}
	} else if b.position < b.in {
		switch b.eof {
		case EOFPause:
			b.position = b.in
			b.speed = 0
		case EOFLoop:
			span := b.out - b.in + 1
			if span <= 0 {
				b.position = b.in
			} else {
				m := (b.in - b.position) % span
				b.position = b.out - m + 1
				if b.position > b.out {
					b.position = b.in
				}
			}
		case EOFContinue:
			b.position = b.in - 1
		}
	}
}

// GetFrame seeks to index, emits a frame via the producer's EmitFunc,
// runs attached filters, and advances position for the next call
// (spec §4.6: get_frame then prepare_next).
func (b *Base) GetFrame(index int64) (*frame.Frame, error) {
	b.mu.Lock()
	b.position = b.clampLocked(index)
	pos := b.position
	emit := b.emit
	svcRef := b.Service
	b.mu.Unlock()

	f, err := emit(pos)
	if err != nil {
		return nil, err
	}

	filtered, err := svcRef.ApplyFilters(f, pos, -1)
	if err != nil {
		return filtered, err
	}

	b.prepareNext()
	return filtered, nil
}

// Close releases the producer's properties.
func (b *Base) Close() {
	b.Service.Properties().Close()
}
