package resolver

import (
	"testing"

	"github.com/wxfusion/fusion/data"
)

func TestDiagnosticResolvers(t *testing.T) {
	q := &Query{VirtualAzDegs: 123.4, VirtualElevDegs: 1.0, VirtualRangeKMs: 77.7,
		Lower: Layer{Present: true, ElevationDegs: 0.5, TerrainCBBPercent: 0.25}}

	if got := (RangeDiagnostic{}).Calc(q).DataValue; got != 77.7 {
		t.Errorf("RangeDiagnostic = %v, want 77.7", got)
	}
	if got := (AzimuthDiagnostic{}).Calc(q).DataValue; got != 123.4 {
		t.Errorf("AzimuthDiagnostic = %v, want 123.4", got)
	}
	want := 0.25 * 0.25 * 100 * 100
	if got := (TerrainDiagnostic{}).Calc(q).DataValue; got != want {
		t.Errorf("TerrainDiagnostic = %v, want %v", got, want)
	}
}

func TestTerrainDiagnosticBeamHitBottom(t *testing.T) {
	q := &Query{Lower: Layer{Present: true, BeamHitBottom: true}}
	if got := (TerrainDiagnostic{}).Calc(q).DataValue; got != data.DataUnavailable {
		t.Errorf("TerrainDiagnostic with beam-bottom-hit = %v, want DataUnavailable", got)
	}
}

func TestNearestPicksCloserTilt(t *testing.T) {
	q := &Query{
		VirtualElevDegs: 0.8,
		Lower:           Layer{Present: true, Value: 10, ElevationDegs: 0.5},
		Upper:           Layer{Present: true, Value: 20, ElevationDegs: 1.5},
	}
	if got := (Nearest{}).Calc(q).DataValue; got != 10 {
		t.Errorf("Nearest = %v, want the lower tilt's value (closer in elevation)", got)
	}
}

func TestNewUnknownResolver(t *testing.T) {
	if _, err := New("bogus"); err == nil {
		t.Errorf("New with unknown resolver name should error")
	}
}
