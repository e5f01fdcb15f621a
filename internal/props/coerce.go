package props

import (
	"strconv"
	"strings"
	"time"
)

// CoerceInt parses s as a decimal (optional sign) or 0x-prefixed hex
// integer. Empty or non-numeric input yields 0, never an error (spec §4.1).
func CoerceInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	var v int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0
	}
	if neg {
		v = -v
	}
	return v
}

// CoerceDouble parses s with a locale-independent ('.' decimal) float parse.
// Non-numeric input yields 0.0.
func CoerceDouble(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// CoercePosition parses s as a bare integer frame count, a clock timecode
// "HH:MM:SS[.ms]", or "Ns"/"Nf" (seconds/frames), using fps to convert
// seconds to frames. A bare "N" is interpreted as frames.
func CoercePosition(s string, fps float64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if strings.Contains(s, ":") {
		return coerceClock(s, fps)
	}

	if strings.HasSuffix(s, "s") {
		seconds := CoerceDouble(strings.TrimSuffix(s, "s"))
		return int64(seconds*fps + 0.5)
	}
	if strings.HasSuffix(s, "f") {
		return CoerceInt(strings.TrimSuffix(s, "f"))
	}
	return CoerceInt(s)
}

func coerceClock(s string, fps float64) int64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	hours := CoerceInt(parts[0])
	minutes := CoerceInt(parts[1])
	secPart := parts[2]
	var seconds float64
	var millis float64
	if idx := strings.Index(secPart, "."); idx >= 0 {
		seconds = float64(CoerceInt(secPart[:idx]))
		msStr := secPart[idx+1:]
		millis = CoerceDouble("0." + msStr)
	} else {
		seconds = float64(CoerceInt(secPart))
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)) +
		time.Duration(millis*float64(time.Second))
	return int64(total.Seconds()*fps + 0.5)
}

// Rect is a normalised rectangle plus opacity, spec §4.1 rect coercion.
type Rect struct {
	X, Y, W, H float64
	Opacity    float64
}

// CoerceRect parses "x y w h [opacity]" or "x%/y%:wxh:o%", resolving
// percentages against containing width/height/length.
func CoerceRect(s string, containingW, containingH float64) Rect {
	s = strings.TrimSpace(s)
	r := Rect{Opacity: 1}

	if strings.Contains(s, "/") || strings.Contains(s, ":") {
		// x%/y%:wxh:o%
		var xy, wh, op string
		rest := s
		if i := strings.Index(rest, ":"); i >= 0 {
			xy = rest[:i]
			rest = rest[i+1:]
			if j := strings.Index(rest, ":"); j >= 0 {
				wh = rest[:j]
				op = rest[j+1:]
			} else {
				wh = rest
			}
		}
		xyParts := strings.SplitN(xy, "/", 2)
		if len(xyParts) == 2 {
			r.X = resolvePercent(xyParts[0], containingW)
			r.Y = resolvePercent(xyParts[1], containingH)
		}
		whParts := strings.SplitN(wh, "x", 2)
		if len(whParts) == 2 {
			r.W = resolvePercent(whParts[0], containingW)
			r.H = resolvePercent(whParts[1], containingH)
		}
		if op != "" {
			r.Opacity = resolvePercent(op, 1)
		}
		return r
	}

	fields := strings.Fields(s)
	get := func(i int, containing float64) float64 {
		if i >= len(fields) {
			return 0
		}
		return resolvePercent(fields[i], containing)
	}
	r.X = get(0, containingW)
	r.Y = get(1, containingH)
	r.W = get(2, containingW)
	r.H = get(3, containingH)
	if len(fields) > 4 {
		r.Opacity = resolvePercent(fields[4], 1)
	}
	return r
}

func resolvePercent(s string, containing float64) float64 {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		pct := CoerceDouble(strings.TrimSuffix(s, "%"))
		return pct / 100 * containing
	}
	return CoerceDouble(s)
}

// Color is RGBA, each channel in [0,255].
type Color struct {
	R, G, B, A uint8
}

var namedColors = map[string]Color{
	"white": {255, 255, 255, 255},
	"red":   {255, 0, 0, 255},
	"green": {0, 255, 0, 255},
	"blue":  {0, 0, 255, 255},
	"black": {0, 0, 0, 255},
}

// CoerceColor parses "#RRGGBB", "#AARRGGBB", "0xRRGGBBAA", a decimal
// 0xRRGGBBAA value, or a named colour.
func CoerceColor(s string) Color {
	s = strings.TrimSpace(s)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c
	}

	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		switch len(hex) {
		case 6:
			return Color{hexByte(hex, 0), hexByte(hex, 2), hexByte(hex, 4), 255}
		case 8:
			return Color{hexByte(hex, 2), hexByte(hex, 4), hexByte(hex, 6), hexByte(hex, 0)}
		}
		return Color{}
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		hex := s[2:]
		if len(hex) == 8 {
			return Color{hexByte(hex, 0), hexByte(hex, 2), hexByte(hex, 4), hexByte(hex, 6)}
		}
	}

	v := CoerceInt(s)
	return Color{
		R: uint8((v >> 24) & 0xff),
		G: uint8((v >> 16) & 0xff),
		B: uint8((v >> 8) & 0xff),
		A: uint8(v & 0xff),
	}
}

func hexByte(s string, offset int) uint8 {
	if offset+2 > len(s) {
		return 0
	}
	v, err := strconv.ParseUint(s[offset:offset+2], 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}
