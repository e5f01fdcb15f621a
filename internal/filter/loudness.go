package filter

import (
	"encoding/binary"
	"math"

	"github.com/mltgo/mlt/internal/frame"
)

// Loudness normalises audio toward a target integrated loudness,
// grounded on original_source/src/modules/plus/filter_loudness.c and
// filter_dynamic_loudness.c (EBU R128 program loudness normalisation,
// wrapping the ebur128 library's K-weighted measurement). Measurement
// applies the same ITU-R BS.1770 pre-filter (high shelf) + RLB
// high-pass cascade those C filters delegate to ebur128 for.
//
// Unlike filter_loudness.c's two-pass analyze-then-apply (it needs the
// whole clip's audio before it can normalise anything), this follows
// filter_dynamic_loudness.c's progressive style: every call folds its
// samples into a running K-weighted measurement and applies the gain
// implied by the loudness measured so far, which is what a pull
// pipeline that never sees total clip length up front can actually do.
// The measurement itself is a single running block rather than
// filter_dynamic_loudness.c's separate momentary/history windows --
// adequate for gating one program stream toward a target, not for
// reporting short-term/momentary loudness separately.
type Loudness struct {
	*Base
	targetLUFS float64
	minGainDB  float64
	maxGainDB  float64

	pre, rlb biquad
	state    []biquadState

	sumPower float64
	frames   int64

	lastGainFactor float64
}

const (
	kWeightOffset = -0.691
	silenceLUFS   = -120.0
	gateFloorDB   = -90.0
)

// NewLoudness returns a filter driving toward targetLUFS, clamping the
// applied gain to [minGainDB, maxGainDB] (spec S5 / supplemented
// feature; filter_dynamic_loudness.c's "max_gain"/"min_gain").
func NewLoudness(targetLUFS, minGainDB, maxGainDB float64) *Loudness {
	l := &Loudness{targetLUFS: targetLUFS, minGainDB: minGainDB, maxGainDB: maxGainDB}
	l.Base = NewBase(l.apply)
	return l
}

// LastGainFactor returns the linear gain factor applied to the most
// recently processed block, 1.0 before any block has been processed.
func (l *Loudness) LastGainFactor() float64 {
	if l.lastGainFactor == 0 {
		return 1.0
	}
	return l.lastGainFactor
}

func (l *Loudness) apply(f *frame.Frame) (*frame.Frame, error) {
	f.PushAudio(l.resolve)
	return f, nil
}

func (l *Loudness) resolve(f *frame.Frame, req frame.AudioRequest) (*frame.AudioBuffer, error) {
	buf, err := f.NextAudio(req)
	if err != nil {
		return nil, err
	}
	if buf.Format != "s16" || buf.Channels == 0 || buf.Samples == 0 {
		return buf, nil
	}
	if l.state == nil {
		l.pre, l.rlb = kWeightingFilters(buf.Frequency)
		l.state = make([]biquadState, buf.Channels)
	}

	in := make([]int16, len(buf.Data)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(buf.Data[i*2:]))
	}

	measured := l.measure(in, buf.Channels)
	gainDB := clampGainDB(l.targetLUFS-measured, l.minGainDB, l.maxGainDB)
	factor := GainFactor(gainDB)
	l.lastGainFactor = factor

	for i := range in {
		in[i] = clampS16(float64(in[i]) * factor)
	}

	data := make([]byte, len(in)*2)
	for i, v := range in {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	dup := *buf
	dup.Data = data
	return &dup, nil
}

// measure folds interleaved s16 samples into the filter's running
// K-weighted mean square and returns the loudness measured so far, in
// LUFS.
func (l *Loudness) measure(samples []int16, channels int) float64 {
	frames := len(samples) / channels
	for i := 0; i < frames; i++ {
		x := make([]float64, channels)
		for c := 0; c < channels; c++ {
			x[c] = float64(samples[i*channels+c]) / 32768.0
		}
		l.sumPower += kWeightFrame(l.pre, l.rlb, l.state, x)
		l.frames++
	}
	return loudnessFromMeanPower(l.sumPower, l.frames)
}

// MeasureLUFS computes the K-weighted integrated loudness of a single
// interleaved float64 sample block (one value per channel per frame,
// in [-1, 1]), the same -0.691 + 10*log10(mean square) formula ebur128
// reports as EBUR128_MODE_I (spec S5's "reference EBU R128
// implementation" for a single, non-windowed block).
func MeasureLUFS(samples []float64, channels, sampleRate int) float64 {
	if channels <= 0 {
		return silenceLUFS
	}
	pre, rlb := kWeightingFilters(sampleRate)
	state := make([]biquadState, channels)

	frames := len(samples) / channels
	var sumPower float64
	for i := 0; i < frames; i++ {
		sumPower += kWeightFrame(pre, rlb, state, samples[i*channels:(i+1)*channels])
	}
	return loudnessFromMeanPower(sumPower, int64(frames))
}

func loudnessFromMeanPower(sumPower float64, frames int64) float64 {
	if frames == 0 {
		return silenceLUFS
	}
	meanPower := sumPower / float64(frames)
	if meanPower <= 0 {
		return silenceLUFS
	}
	return kWeightOffset + 10*math.Log10(meanPower)
}

// kWeightFrame runs one multi-channel frame through the K-weighting
// cascade (pre-filter then RLB high-pass, per channel) and returns its
// channel-averaged squared output.
func kWeightFrame(pre, rlb biquad, state []biquadState, x []float64) float64 {
	var power float64
	for c := range x {
		y := state[c].process(&pre, x[c])
		y = state[c].process(&rlb, y)
		power += y * y
	}
	return power / float64(len(x))
}

// GainFactor converts a gain in dB to a linear multiplier, per
// filter_loudness.c's apply(): a delta at or below the -90dB gate
// floor yields silence rather than a (numerically valid but
// perceptually meaningless) near-zero multiplier.
func GainFactor(deltaDB float64) float64 {
	if deltaDB <= gateFloorDB {
		return 0
	}
	return math.Pow(10, deltaDB/20)
}

func clampGainDB(db, min, max float64) float64 {
	if db > max {
		return max
	}
	if db < min {
		return min
	}
	return db
}

// biquad holds one IIR stage's coefficients; biquadState is its
// per-channel running state. Grounded on the K-weighting cascade used
// to implement EBU R128/ITU-R BS.1770 loudness metering in Go.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

type biquadState struct {
	z1, z2 float64
}

func (s *biquadState) process(b *biquad, in float64) float64 {
	out := b.b0*in + s.z1
	s.z1 = b.b1*in - b.a1*out + s.z2
	s.z2 = b.b2*in - b.a2*out
	return out
}

// kWeightingFilters returns the ITU-R BS.1770-4 K-weighting pair (high
// shelf pre-filter + RLB high-pass) for sampleRate, derived from the
// standard's analog prototype transfer functions.
func kWeightingFilters(sampleRate int) (pre, rlb biquad) {
	rate := float64(sampleRate)

	centerFreq := 1681.974450955533
	gainDB := 3.999843853973347
	q := 0.7071752369554196

	k := math.Tan(math.Pi * centerFreq / rate)
	v := math.Pow(10, gainDB/20)
	vb := math.Pow(v, 0.4996667741545416)

	norm := 1 + k/q + k*k
	pre.b0 = (v + vb*k/q + k*k) / norm
	pre.b1 = 2 * (k*k - v) / norm
	pre.b2 = (v - vb*k/q + k*k) / norm
	pre.a1 = 2 * (k*k - 1) / norm
	pre.a2 = (1 - k/q + k*k) / norm

	centerFreq = 38.13547087602444
	q = 0.5003270373238773
	k = math.Tan(math.Pi * centerFreq / rate)

	norm = 1 + k/q + k*k
	rlb.b0 = 1 / norm
	rlb.b1 = -2 / norm
	rlb.b2 = 1 / norm
	rlb.a1 = 2 * (k*k - 1) / norm
	rlb.a2 = (1 - k/q + k*k) / norm

	return pre, rlb
}
