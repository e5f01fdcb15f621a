package props

import (
	"fmt"
	"sort"
	"strings"
)

// Interpolation is the blend mode a keyframe applies to the segment that
// starts at it.
type Interpolation int

// Interpolation modes, spec §3.1.1.
const (
	Hold Interpolation = iota
	Linear
	SmoothCatmullRom
)

// Keyframe is one control point of an animated property. Pos may be
// negative (counts from the end) or a percentage of length, resolved at
// read time against the animation's declared length.
type Keyframe struct {
	Pos    float64
	Value  float64
	PosPct bool
	Interp Interpolation
}

// Animation is a sorted sequence of keyframes.
type Animation struct {
	Length    int64 // L, for resolving negative/percentage positions.
	Keyframes []Keyframe
}

// NewAnimation returns an Animation with the given nominal length.
func NewAnimation(length int64) *Animation {
	return &Animation{Length: length}
}

// AddKeyframe inserts a keyframe, keeping Keyframes sorted by resolved position.
func (a *Animation) AddKeyframe(k Keyframe) {
	a.Keyframes = append(a.Keyframes, k)
	sort.Slice(a.Keyframes, func(i, j int) bool {
		return a.resolvePos(a.Keyframes[i]) < a.resolvePos(a.Keyframes[j])
	})
}

func (a *Animation) resolvePos(k Keyframe) float64 {
	p := k.Pos
	if k.PosPct {
		p = p / 100 * float64(a.Length)
	}
	if p < 0 {
		p += float64(a.Length)
	}
	return p
}

// ValueAt evaluates the animation at position p (spec §3.1.1 steps 1-5).
func (a *Animation) ValueAt(p float64) float64 {
	n := len(a.Keyframes)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return a.Keyframes[0].Value
	}

	resolved := make([]float64, n)
	for i, k := range a.Keyframes {
		resolved[i] = a.resolvePos(k)
	}

	if p <= resolved[0] {
		return a.Keyframes[0].Value
	}
	if p >= resolved[n-1] {
		return a.Keyframes[n-1].Value
	}

	i := 0
	for i < n-2 && resolved[i+1] <= p {
		i++
	}

	k0, k1 := a.Keyframes[i], a.Keyframes[i+1]
	p0, p1 := resolved[i], resolved[i+1]

	switch k0.Interp {
	case Hold:
		return k0.Value
	case Linear:
		if p1 == p0 {
			return k0.Value
		}
		t := (p - p0) / (p1 - p0)
		return (1-t)*k0.Value + t*k1.Value
	case SmoothCatmullRom:
		var vPrev, vNext float64
		if i > 0 {
			vPrev = a.Keyframes[i-1].Value
		} else {
			vPrev = k0.Value
		}
		if i+2 < n {
			vNext = a.Keyframes[i+2].Value
		} else {
			vNext = k1.Value
		}
		if p1 == p0 {
			return k0.Value
		}
		t := (p - p0) / (p1 - p0)
		return catmullRom(vPrev, k0.Value, k1.Value, vNext, t)
	default:
		return k0.Value
	}
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// StringAt formats ValueAt(p) at position p. length overrides a.Length
// for percentage resolution if non-zero (a frame may carry a different
// nominal length than the animation was declared with).
func (a *Animation) StringAt(p float64, length int64) string {
	if length != 0 {
		a.Length = length
	}
	return formatFloat(a.ValueAt(p))
}

// ParseAnimation parses a semicolon-separated "pos[=value][;interp]"
// description into an Animation of the given length. Accepted tokens:
//
//	"v1;v2;v3"                 — evenly spaced hold keyframes
//	"0=v1;50=v2;100%=v3"       — explicit positions, percentages allowed
//	"0~=v1;50=v2"              — '~' marks smooth (Catmull-Rom) interpolation
//	"0|=v1;50=v2"              — '|' marks linear interpolation (the default)
func ParseAnimation(s string, length int64) (*Animation, error) {
	a := NewAnimation(length)
	tokens := strings.Split(s, ";")
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, err := parseKeyframeToken(tok, i, len(tokens))
		if err != nil {
			return nil, fmt.Errorf("parse animation %q: %w", s, err)
		}
		a.AddKeyframe(k)
	}
	return a, nil
}

func parseKeyframeToken(tok string, index, total int) (Keyframe, error) {
	interp := Linear
	eq := strings.IndexAny(tok, "=")
	if eq < 0 {
		// bare value, evenly spaced.
		return Keyframe{
			Pos:    float64(index) / float64(max(total-1, 1)) * 100,
			PosPct: true,
			Value:  CoerceDouble(tok),
			Interp: Hold,
		}, nil
	}

	posPart := tok[:eq]
	valPart := tok[eq+1:]

	switch {
	case strings.HasSuffix(posPart, "~"):
		interp = SmoothCatmullRom
		posPart = strings.TrimSuffix(posPart, "~")
	case strings.HasSuffix(posPart, "|"):
		interp = Linear
		posPart = strings.TrimSuffix(posPart, "|")
	}

	pct := strings.HasSuffix(posPart, "%")
	posPart = strings.TrimSuffix(posPart, "%")

	return Keyframe{
		Pos:    CoerceDouble(posPart),
		PosPct: pct,
		Value:  CoerceDouble(valPart),
		Interp: interp,
	}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
