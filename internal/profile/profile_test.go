package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultProfileRatios(t *testing.T) {
	p := Default()
	require.InDelta(t, 1.0, p.SAR(), 1e-9)
	require.InDelta(t, 25.0, p.FPS(), 1e-9)
	require.InDelta(t, float64(1920)/float64(1080), p.DAR(), 1e-9)
}

func TestWithFrameRateClonesIndependently(t *testing.T) {
	p := Default()
	inner := p.WithFrameRate(30, 1)

	require.InDelta(t, 30.0, inner.FPS(), 1e-9)
	require.InDelta(t, 25.0, p.FPS(), 1e-9, "original profile must be unaffected")
}

func TestScaleHelpers(t *testing.T) {
	p := Default()
	require.InDelta(t, 0.5, p.ScaleWidth(960), 1e-9)
	require.InDelta(t, 0.5, p.ScaleHeight(540), 1e-9)
}
