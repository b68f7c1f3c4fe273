package data

import (
	"testing"

	"github.com/wxfusion/fusion/geo"
)

func newRadialSetForGate() *RadialSet {
	rs := NewRadialSet("KTLX", geo.LLH{}, 0.5, 4, 10)
	rs.DistanceToFirstGateMeters = 0
	for i := range rs.Azimuth {
		rs.Azimuth[i] = float64(i) * 90 // 0, 90, 180, 270
		rs.GateWidthM[i] = 1000
	}
	return rs
}

func TestRadialSetNearestGate(t *testing.T) {
	rs := newRadialSetForGate()

	radial, gate, ok := rs.NearestGate(2, 3.4)
	if !ok {
		t.Fatalf("NearestGate(2, 3.4) rejected, want ok")
	}
	if radial != 0 {
		t.Errorf("radial = %d, want 0 (closest to azimuth 2)", radial)
	}
	if gate != 3 {
		t.Errorf("gate = %d, want 3 (center at 3.5km within 1km gates)", gate)
	}

	// 350 degrees is 10 degrees from radial 0 (wrapping past 360) and
	// 80 degrees from radial 270: radial 0 should still win.
	radial, _, ok = rs.NearestGate(350, 0.5)
	if !ok || radial != 0 {
		t.Errorf("NearestGate(350, ...) = (%d, ok=%v), want (0, true)", radial, ok)
	}

	// 135 is equidistant from 90 and 180; the scan keeps the first
	// strictly-closer candidate, so radial 1 (90) wins.
	radial, _, ok = rs.NearestGate(135, 0.5)
	if !ok || radial != 1 {
		t.Errorf("NearestGate(135, ...) = (%d, ok=%v), want (1, true)", radial, ok)
	}
}

func TestRadialSetNearestGateOutOfRange(t *testing.T) {
	rs := newRadialSetForGate()
	if _, _, ok := rs.NearestGate(0, 50); ok {
		t.Errorf("NearestGate beyond the last gate should reject, got ok")
	}
}

func TestRadialSetNearestGateEmpty(t *testing.T) {
	rs := NewRadialSet("KTLX", geo.LLH{}, 0.5, 0, 0)
	if _, _, ok := rs.NearestGate(0, 1); ok {
		t.Errorf("NearestGate on an empty RadialSet should reject, got ok")
	}
}

func TestRadialSetIDNonZero(t *testing.T) {
	seen := make(map[byte]bool)
	for i := 0; i < 500; i++ {
		id := NextRadialSetID()
		if id == 0 {
			t.Fatalf("NextRadialSetID returned reserved value 0")
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected IDs to vary across calls")
	}
}

func TestRadialSetValueRoundTrip(t *testing.T) {
	rs := NewRadialSet("KTLX", geo.LLH{LL: geo.LL{LatDegs: 35.3, LonDegs: -97.3}, HeightKMs: 0.4}, 0.5, 360, 10)
	rs.SetValue(90, 5, 42.5)
	if got := rs.Value(90, 5); got != 42.5 {
		t.Errorf("Value(90,5) = %v, want 42.5", got)
	}
	if rs.NumRadials() != 360 || rs.NumGates() != 10 {
		t.Errorf("dims = (%d,%d), want (360,10)", rs.NumRadials(), rs.NumGates())
	}
}

func TestRadialSetTerrainArraysLazy(t *testing.T) {
	rs := NewRadialSet("KTLX", geo.LLH{}, 1.0, 4, 4)
	if rs.HasTerrain() {
		t.Fatalf("terrain arrays should not exist until EnsureTerrainArrays")
	}
	if rs.CBB(0, 0) != 0 {
		t.Errorf("CBB before terrain computed should be 0")
	}
	rs.EnsureTerrainArrays()
	if !rs.HasTerrain() {
		t.Fatalf("EnsureTerrainArrays did not set HasTerrain")
	}
	rs.Array("TerrainCBBPercent").Set(0.75, 2, 2)
	if got := rs.CBB(2, 2); got != 0.75 {
		t.Errorf("CBB(2,2) = %v, want 0.75", got)
	}
}
