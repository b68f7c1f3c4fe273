package terrain

import (
	"math"
	"testing"

	"github.com/wxfusion/fusion/geo"
)

// constantDEM reports the same height (meters) everywhere.
type constantDEM float64

func (d constantDEM) ValueAtLL(_, _ float64) float64 { return float64(d) }

// S3 from the component design: range=60km, beamwidth=1 deg,
// terrain-center = 0 -> a = 60*pi/360 ~= 0.5236km, y=0 -> PBB=0.5.
// Same inputs with y=+a -> PBB=1; y=-a -> PBB=0.
func TestBech2meS3Boundary(t *testing.T) {
	const rangeKMs = 60.0
	const beamWidthDegs = 1.0
	const elevDegs = 0.0
	const stationHeightKMs = 0.0

	wantA := rangeKMs * math.Pi / 360.0

	// y = 0: terrain height at beam center equals the beam-center
	// height exactly, so the DEM must report the beam-center height in
	// meters.
	beamCenterHeightKMs := attenuationHeightKMs(stationHeightKMs, rangeKMs, elevDegs)
	b := NewBech2me(Base{
		DEM:           constantDEM(beamCenterHeightKMs * 1000.0),
		RadarLocation: geo.LLH{LL: geo.LL{LatDegs: 35, LonDegs: -97}},
	})
	_, pbb, _ := b.CalculatePercentBlocked(stationHeightKMs, beamWidthDegs, elevDegs, 0, rangeKMs, 0)
	if math.Abs(pbb-0.5) > 1e-6 {
		t.Errorf("y=0: PBB = %v, want 0.5 (a=%v)", pbb, wantA)
	}

	// y = +a: terrain well above the half-power disk -> fully blocked.
	bHigh := NewBech2me(Base{
		DEM:           constantDEM((beamCenterHeightKMs + wantA) * 1000.0),
		RadarLocation: geo.LLH{LL: geo.LL{LatDegs: 35, LonDegs: -97}},
	})
	_, pbbHigh, _ := bHigh.CalculatePercentBlocked(stationHeightKMs, beamWidthDegs, elevDegs, 0, rangeKMs, 0)
	if math.Abs(pbbHigh-1.0) > 1e-6 {
		t.Errorf("y=+a: PBB = %v, want 1.0", pbbHigh)
	}

	// y = -a: terrain well below the half-power disk -> unblocked.
	bLow := NewBech2me(Base{
		DEM:           constantDEM((beamCenterHeightKMs - wantA) * 1000.0),
		RadarLocation: geo.LLH{LL: geo.LL{LatDegs: 35, LonDegs: -97}},
	})
	_, pbbLow, _ := bLow.CalculatePercentBlocked(stationHeightKMs, beamWidthDegs, elevDegs, 0, rangeKMs, 0)
	if math.Abs(pbbLow-0.0) > 1e-6 {
		t.Errorf("y=-a: PBB = %v, want 0.0", pbbLow)
	}
}

// CBB is a running maximum, so it can never decrease along a radial
// even as terrain height (and therefore PBB) drops back down range.
func TestBech2meCBBNonDecreasing(t *testing.T) {
	dem := constantDEM(5000) // a tall ridge everywhere
	b := NewBech2me(Base{
		DEM:           dem,
		RadarLocation: geo.LLH{LL: geo.LL{LatDegs: 35, LonDegs: -97}},
	})

	cbb := 0.0
	ranges := []float64{10, 20, 30, 1000} // last one far past the ridge's effect at low range
	prevCBB := 0.0
	for _, r := range ranges {
		newCBB, _, _ := b.CalculatePercentBlocked(0, 1.0, 0.5, 0, r, cbb)
		if newCBB < prevCBB {
			t.Errorf("CBB decreased at range %v: %v < %v", r, newCBB, prevCBB)
		}
		cbb = newCBB
		prevCBB = newCBB
	}
}

func TestNullBlockageNeverBlocks(t *testing.T) {
	n := NullBlockage{}
	newCBB, pbb, hit := n.CalculatePercentBlocked(0, 1, 0.5, 10, 50, 0.3)
	if pbb != 0 || hit {
		t.Errorf("NullBlockage should report no blockage, got pbb=%v hit=%v", pbb, hit)
	}
	if newCBB != 0.3 {
		t.Errorf("NullBlockage should leave cbb unchanged, got %v", newCBB)
	}
}

func TestNewMissingDEMReturnsNull(t *testing.T) {
	bl, err := New("2me", Base{})
	if err != nil {
		t.Fatalf("New with nil DEM should not error: %v", err)
	}
	if _, ok := bl.(NullBlockage); !ok {
		t.Errorf("New with nil DEM should return NullBlockage, got %T", bl)
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	_, err := New("bogus", Base{DEM: constantDEM(0)})
	if err == nil {
		t.Errorf("New with unknown algorithm name should error")
	}
}

func TestLakPencilBlockageIncreasesPastRidge(t *testing.T) {
	dem := constantDEM(3000)
	l := NewLak(Base{
		DEM:           dem,
		RadarLocation: geo.LLH{LL: geo.LL{LatDegs: 35, LonDegs: -97}},
	})

	cbb := 0.0
	_, pbbNear, _ := l.CalculatePercentBlocked(0, 1.0, 1.0, 0, 5, cbb)
	_, pbbFar, _ := l.CalculatePercentBlocked(0, 1.0, 1.0, 0, 80, pbbNear)
	if pbbNear < 0 || pbbNear > 1 || pbbFar < 0 || pbbFar > 1 {
		t.Errorf("PBB out of [0,1] range: near=%v far=%v", pbbNear, pbbFar)
	}
}

func TestLakResetsOnNewRadial(t *testing.T) {
	dem := constantDEM(5000)
	l := NewLak(Base{
		DEM:           dem,
		RadarLocation: geo.LLH{LL: geo.LL{LatDegs: 35, LonDegs: -97}},
	})
	l.CalculatePercentBlocked(0, 1.0, 1.0, 10, 50, 0)
	for _, r := range l.blockRangeKMs {
		if math.IsInf(r, 1) {
			t.Fatalf("expected at least some pencils blocked against a tall ridge")
		}
	}
	l.resetIfNewRadial(11) // a new azimuth must clear blockage state
	for _, r := range l.blockRangeKMs {
		if !math.IsInf(r, 1) {
			t.Errorf("resetIfNewRadial did not clear blockage state for the new radial")
		}
	}
}
