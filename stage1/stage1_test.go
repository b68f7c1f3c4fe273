package stage1

import (
	"testing"
	"time"

	"github.com/wxfusion/fusion/container"
	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
	"github.com/wxfusion/fusion/resolver"
)

// testGrid is a single-cell output grid roughly 5km north of the
// radar, small enough that InsetRadarRange never needs to shrink it.
func testGrid() geo.LLCoverageArea {
	g := geo.LLCoverageArea{
		NWLatDegs: 35.045, NWLonDegs: -100.0,
		SELatDegs: 35.035, SELonDegs: -99.99,
		LatSpacingDegs: 0.01, LonSpacingDegs: 0.01,
		NumX: 1, NumY: 1,
		HeightsKM: []float64{1.0},
	}
	g.Sync()
	return g
}

// testTilt builds a single tilt covering every azimuth out to 25km,
// filled with a uniform moment value.
func testTilt(radarName string, elevDegs, value float64) *data.RadialSet {
	rs := data.NewRadialSet(radarName, geo.LLH{LL: geo.LL{LatDegs: 35.0, LonDegs: -100.0}}, elevDegs, 36, 100)
	rs.TypeName = "Reflectivity"
	rs.Attrs["Units"] = "dBZ"
	for i := range rs.Azimuth {
		rs.Azimuth[i] = float64(i) * 10
		rs.BeamWidth[i] = 1.0
		rs.GateWidthM[i] = 250.0
	}
	for radial := 0; radial < rs.NumRadials(); radial++ {
		for gate := 0; gate < rs.NumGates(); gate++ {
			rs.SetValue(radial, gate, value)
		}
	}
	return rs
}

func TestStageLocksOntoFirstSourceAndRejectsOthers(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 50, Resolver: resolver.RangeDiagnostic{}})
	rs := testTilt("KTLX", 0.5, 30)

	if _, err := s.ProcessRadialSet(rs, time.Now()); err != nil {
		t.Fatalf("first ProcessRadialSet: %v", err)
	}
	if s.RadarName() != "KTLX" || s.TypeName() != "Reflectivity" {
		t.Fatalf("Stage locked to (%q,%q), want (KTLX,Reflectivity)", s.RadarName(), s.TypeName())
	}

	other := testTilt("KFWS", 0.5, 30)
	if _, err := s.ProcessRadialSet(other, time.Now()); err == nil {
		t.Errorf("ProcessRadialSet from a different radar should be rejected")
	}
}

func TestStageEmitsOnFirstSweepAndSkipsWhenUnchanged(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 50, Resolver: resolver.RangeDiagnostic{}})
	rs := testTilt("KTLX", 0.5, 30)

	table, err := s.ProcessRadialSet(rs, time.Now())
	if err != nil {
		t.Fatalf("ProcessRadialSet: %v", err)
	}
	if len(table.Values) != 1 {
		t.Fatalf("len(Values) = %d, want 1", len(table.Values))
	}
	v := table.Values[0]
	if v.X != 0 || v.Y != 0 || v.Z != 0 {
		t.Errorf("emitted cell = (%d,%d,%d), want (0,0,0)", v.X, v.Y, v.Z)
	}
	if v.Value <= 0 || v.Value >= 50 {
		t.Errorf("RangeDiagnostic value = %v, want in (0,50)", v.Value)
	}
	if v.Weight != 1 {
		t.Errorf("weight = %v, want 1 (RangeDiagnostic.BottomSum)", v.Weight)
	}
	if len(table.Missings) != 0 {
		t.Errorf("expected no missing runs, got %v", table.Missings)
	}

	// A second sweep of the identical tilt should find every cell's
	// enclosing-tilt identity unchanged and skip the resolver entirely.
	table2, err := s.ProcessRadialSet(rs, time.Now())
	if err != nil {
		t.Fatalf("second ProcessRadialSet: %v", err)
	}
	if len(table2.Values) != 0 {
		t.Errorf("second sweep len(Values) = %d, want 0 (nothing changed)", len(table2.Values))
	}
}

func TestStageOutOfRangeCellIsSkipped(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 1, Resolver: resolver.RangeDiagnostic{}})
	rs := testTilt("KTLX", 0.5, 30)

	table, err := s.ProcessRadialSet(rs, time.Now())
	if err != nil {
		t.Fatalf("ProcessRadialSet: %v", err)
	}
	if len(table.Values) != 0 {
		t.Errorf("a 1km RangeKMs should exclude the ~5km test cell, got %d values", len(table.Values))
	}
}

func TestStageMaskSuppressesEmission(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 50, Resolver: resolver.RangeDiagnostic{}})
	s.SetMask(container.NewBitset(1, 1)) // single cleared bit: no coverage
	rs := testTilt("KTLX", 0.5, 30)

	table, err := s.ProcessRadialSet(rs, time.Now())
	if err != nil {
		t.Fatalf("ProcessRadialSet: %v", err)
	}
	if len(table.Values) != 0 {
		t.Errorf("a cleared mask bit should suppress emission, got %d values", len(table.Values))
	}
}

// missingResolver and unavailableResolver are test-only Resolvers that
// always report one of the two sentinel outcomes, regardless of Query.
type missingResolver struct{}

func (missingResolver) Calc(*resolver.Query) resolver.Result {
	return resolver.Result{DataValue: data.MissingData, TopSum: 0, BottomSum: 1}
}

type unavailableResolver struct{}

func (unavailableResolver) Calc(*resolver.Query) resolver.Result {
	return resolver.Result{DataValue: data.DataUnavailable, TopSum: 0, BottomSum: 1}
}

func TestStageClassifiesMissingAsARun(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 50, Resolver: missingResolver{}})
	rs := testTilt("KTLX", 0.5, 30)

	table, err := s.ProcessRadialSet(rs, time.Now())
	if err != nil {
		t.Fatalf("ProcessRadialSet: %v", err)
	}
	if len(table.Values) != 0 {
		t.Errorf("a MissingData result should not produce a value observation, got %d", len(table.Values))
	}
	if len(table.Missings) != 1 {
		t.Fatalf("len(Missings) = %d, want 1", len(table.Missings))
	}
	m := table.Missings[0]
	if m.X != 0 || m.Y != 0 || m.Z != 0 || m.RunLength != 1 {
		t.Errorf("Missings[0] = %+v, want {0,0,0,1}", m)
	}
}

func TestStageClassifiesUnavailableAsNoEmission(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 50, Resolver: unavailableResolver{}})
	rs := testTilt("KTLX", 0.5, 30)

	table, err := s.ProcessRadialSet(rs, time.Now())
	if err != nil {
		t.Fatalf("ProcessRadialSet: %v", err)
	}
	if len(table.Values) != 0 || len(table.Missings) != 0 {
		t.Errorf("DataUnavailable should produce no emission at all, got Values=%v Missings=%v", table.Values, table.Missings)
	}
}

func TestStageRangeGrid(t *testing.T) {
	s := New(Config{FullGrid: testGrid(), RangeKMs: 50, Resolver: resolver.RangeDiagnostic{}})
	rs := testTilt("KTLX", 0.5, 30)
	if _, err := s.ProcessRadialSet(rs, time.Now()); err != nil {
		t.Fatalf("ProcessRadialSet: %v", err)
	}

	grid := s.RadarGrid()
	want := grid.NumX * grid.NumY * len(testGrid().HeightsKM)
	rg := s.RangeGrid()
	if len(rg) != want {
		t.Fatalf("len(RangeGrid()) = %d, want %d", len(rg), want)
	}
	if rg[0] <= 0 || rg[0] >= 50 {
		t.Errorf("RangeGrid()[0] = %v, want a small positive surface distance", rg[0])
	}
}
