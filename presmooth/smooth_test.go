package presmooth

import (
	"testing"

	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
)

func newTestRadial(values []float64) *data.RadialSet {
	rs := data.NewRadialSet("KTLX", geo.LLH{}, 0.5, 1, len(values))
	for j, v := range values {
		rs.SetValue(0, j, v)
	}
	return rs
}

func TestLakRadialMovingAverageUniform(t *testing.T) {
	rs := newTestRadial([]float64{10, 10, 10, 10, 10, 10, 10, 10})
	LakRadialMovingAverage(rs, 1)

	for j := 0; j < rs.NumGates(); j++ {
		if got := rs.Value(0, j); got != 10 {
			t.Errorf("gate %d = %v, want 10 (uniform input unchanged by averaging)", j, got)
		}
	}
}

func TestLakRadialMovingAverageSkipsGaps(t *testing.T) {
	rs := newTestRadial([]float64{10, 10, data.DataUnavailable, 10, 10, 10})
	LakRadialMovingAverage(rs, 1)

	// The window around the gap still averages only the good samples
	// on either side, so it should stay at 10 rather than being pulled
	// down by the sentinel value.
	if got := rs.Value(0, 3); got != 10 {
		t.Errorf("gate 3 = %v, want 10 (gap skipped, not averaged in)", got)
	}
}

func TestLakRadialMovingAverageHalfSizeZeroIsNoOp(t *testing.T) {
	original := []float64{1, 2, 3, 4, 5}
	rs := newTestRadial(original)
	LakRadialMovingAverage(rs, 0)

	for j, want := range original {
		if got := rs.Value(0, j); got != want {
			t.Errorf("gate %d = %v, want %v (halfSize 0 should be a no-op)", j, got, want)
		}
	}
}

func TestLakRadialMovingAverageSmoothsStep(t *testing.T) {
	rs := newTestRadial([]float64{0, 0, 0, 0, 20, 20, 20, 20})
	LakRadialMovingAverage(rs, 2)

	// A gate straddling the step should land strictly between the two
	// plateaus once the window spans both sides.
	mid := rs.Value(0, 4)
	if mid <= 0 || mid >= 20 {
		t.Errorf("gate 4 = %v, want strictly between 0 and 20", mid)
	}
}
