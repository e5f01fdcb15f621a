package filter

import (
	"encoding/binary"
	"testing"

	"github.com/mltgo/mlt/internal/frame"
	"github.com/stretchr/testify/require"
)

// TestLoudnessGainFactorMatchesAnalyticalValue reproduces spec S5: a
// stereo filter fed 10000 samples at 48kHz of full-scale input,
// normalised toward -23 LUFS, attenuates its first output sample by
// the gain factor MeasureLUFS/GainFactor compute directly from the
// same K-weighted formula ebur128 (EBU R128) reports, within ±0.001.
func TestLoudnessGainFactorMatchesAnalyticalValue(t *testing.T) {
	const (
		channels   = 2
		sampleRate = 48000
		numSamples = 10000
		target     = -23.0
	)

	src := s16Buffer(numSamples, channels, func(sample, channel int) int16 { return 32767 })
	f := frame.New(nil, 0)
	pushSourceAudio(f, src)

	l := NewLoudness(target, -24, 24)
	_, err := l.apply(f)
	require.NoError(t, err)

	out, err := f.GetAudio(frame.AudioRequest{})
	require.NoError(t, err)

	floatSamples := make([]float64, numSamples*channels)
	for i := range floatSamples {
		floatSamples[i] = 32767.0 / 32768.0
	}
	measured := MeasureLUFS(floatSamples, channels, sampleRate)
	wantDB := clampGainDB(target-measured, -24, 24)
	wantFactor := GainFactor(wantDB)

	require.InDelta(t, wantFactor, l.LastGainFactor(), 0.001)

	first := int16(binary.LittleEndian.Uint16(out.Data[0:]))
	require.InDelta(t, wantFactor*32767.0, float64(first), 1.0)
	require.Less(t, first, int16(32767))
}

func TestLoudnessLastGainFactorDefaultsToUnity(t *testing.T) {
	l := NewLoudness(-23, -24, 24)
	require.Equal(t, 1.0, l.LastGainFactor())
}

func TestGainFactorGatesBelowFloor(t *testing.T) {
	require.Equal(t, 0.0, GainFactor(-90.0))
	require.Equal(t, 0.0, GainFactor(-120.0))
	require.InDelta(t, 1.0, GainFactor(0.0), 1e-9)
}

func TestClampGainDBRespectsBounds(t *testing.T) {
	require.Equal(t, 10.0, clampGainDB(20, -10, 10))
	require.Equal(t, -10.0, clampGainDB(-20, -10, 10))
	require.Equal(t, 3.0, clampGainDB(3, -10, 10))
}

func TestMeasureLUFSOfSilenceIsSilenceFloor(t *testing.T) {
	samples := make([]float64, 4800*2)
	got := MeasureLUFS(samples, 2, 48000)
	require.Equal(t, silenceLUFS, got)
}
