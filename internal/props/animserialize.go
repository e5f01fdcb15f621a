package props

import (
	"bytes"
	"fmt"
	"math"

	"github.com/icza/bitio"
)

// SerialiseAnimation bit-packs anim's keyframes: a 32-bit count, then
// per keyframe a 2-bit interpolation tag, a 1-bit percentage-position
// flag, and the position/value as 64-bit IEEE-754 fields. Used when a
// property bag carrying an animation is snapshotted (e.g. into the
// bookmark store) instead of round-tripped through its string form.
func SerialiseAnimation(anim *Animation) ([]byte, error) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	if err := w.WriteBits(uint64(len(anim.Keyframes)), 32); err != nil {
		return nil, fmt.Errorf("write keyframe count: %w", err)
	}
	for _, k := range anim.Keyframes {
		if err := w.WriteBits(uint64(k.Interp), 2); err != nil {
			return nil, fmt.Errorf("write interpolation: %w", err)
		}
		var posPct uint64
		if k.PosPct {
			posPct = 1
		}
		if err := w.WriteBits(posPct, 1); err != nil {
			return nil, fmt.Errorf("write pos-pct flag: %w", err)
		}
		if err := w.WriteBits(math.Float64bits(k.Pos), 64); err != nil {
			return nil, fmt.Errorf("write position: %w", err)
		}
		if err := w.WriteBits(math.Float64bits(k.Value), 64); err != nil {
			return nil, fmt.Errorf("write value: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flush animation bits: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserialiseAnimation reverses SerialiseAnimation, rebuilding an
// Animation of the given nominal length. Keyframes are appended in
// their serialised (already position-sorted) order rather than routed
// back through AddKeyframe's sort.
func DeserialiseAnimation(data []byte, length int64) (*Animation, error) {
	r := bitio.NewReader(bytes.NewReader(data))

	count, err := r.ReadBits(32)
	if err != nil {
		return nil, fmt.Errorf("read keyframe count: %w", err)
	}

	anim := NewAnimation(length)
	anim.Keyframes = make([]Keyframe, 0, count)
	for i := uint64(0); i < count; i++ {
		interp, err := r.ReadBits(2)
		if err != nil {
			return nil, fmt.Errorf("read interpolation: %w", err)
		}
		posPct, err := r.ReadBits(1)
		if err != nil {
			return nil, fmt.Errorf("read pos-pct flag: %w", err)
		}
		posBits, err := r.ReadBits(64)
		if err != nil {
			return nil, fmt.Errorf("read position: %w", err)
		}
		valueBits, err := r.ReadBits(64)
		if err != nil {
			return nil, fmt.Errorf("read value: %w", err)
		}
		anim.Keyframes = append(anim.Keyframes, Keyframe{
			Pos:    math.Float64frombits(posBits),
			Value:  math.Float64frombits(valueBits),
			PosPct: posPct == 1,
			Interp: Interpolation(interp),
		})
	}
	return anim, nil
}
