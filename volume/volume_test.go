package volume

import (
	"testing"
	"time"

	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
)

func rsAt(radar string, elevDegs float64) *data.RadialSet {
	return data.NewRadialSet(radar, geo.LLH{}, elevDegs, 4, 4)
}

func TestAddOrdersByElevation(t *testing.T) {
	v := New()
	v.Add(rsAt("KTLX", 1.5))
	v.Add(rsAt("KTLX", 0.5))
	v.Add(rsAt("KTLX", 2.5))

	got := v.Tilts()
	if len(got) != 3 {
		t.Fatalf("Len = %d, want 3", len(got))
	}
	want := []float64{0.5, 1.5, 2.5}
	for i, w := range want {
		if got[i].ElevDegs != w {
			t.Errorf("tilt %d elevation = %v, want %v", i, got[i].ElevDegs, w)
		}
	}
}

func TestAddReplacesSameElevation(t *testing.T) {
	v := New()
	first := rsAt("KTLX", 0.5)
	v.Add(first)
	second := rsAt("KTLX", 0.5)
	v.Add(second)

	if v.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after replace-by-elevation", v.Len())
	}
	if v.Tilts()[0].ID != second.ID {
		t.Errorf("expected the newer tilt to have replaced the older one at the same elevation")
	}
}

func TestAddRejectsMismatchedRadar(t *testing.T) {
	v := New()
	v.Add(rsAt("KTLX", 0.5))
	ok := v.Add(rsAt("KFWS", 1.0))
	if ok {
		t.Errorf("Add should reject a tilt from a different radar than the volume's first")
	}
	if v.Len() != 1 {
		t.Errorf("rejected tilt should not be added, Len = %d", v.Len())
	}
}

func TestGetSpreadLEnclosing(t *testing.T) {
	v := New()
	v.Add(rsAt("KTLX", 0.5))
	v.Add(rsAt("KTLX", 1.5))
	v.Add(rsAt("KTLX", 2.5))
	v.Add(rsAt("KTLX", 3.5))

	e := v.GetSpreadL(2.0)
	if e.Lower == nil || e.Lower.ElevDegs != 1.5 {
		t.Errorf("Lower = %v, want 1.5", e.Lower)
	}
	if e.Upper == nil || e.Upper.ElevDegs != 2.5 {
		t.Errorf("Upper = %v, want 2.5", e.Upper)
	}
	if e.Lower2 == nil || e.Lower2.ElevDegs != 0.5 {
		t.Errorf("Lower2 = %v, want 0.5", e.Lower2)
	}
	if e.Upper2 == nil || e.Upper2.ElevDegs != 3.5 {
		t.Errorf("Upper2 = %v, want 3.5", e.Upper2)
	}
}

func TestGetSpreadLAboveAllTilts(t *testing.T) {
	v := New()
	v.Add(rsAt("KTLX", 0.5))
	v.Add(rsAt("KTLX", 1.5))

	e := v.GetSpreadL(10.0)
	if e.Upper != nil {
		t.Errorf("Upper should be nil when elevDegs is above every tilt")
	}
	if e.Lower == nil || e.Lower.ElevDegs != 1.5 {
		t.Errorf("Lower = %v, want 1.5", e.Lower)
	}
}

func TestExpireRemovesOldTilts(t *testing.T) {
	v := New()
	realNow := now
	defer func() { now = realNow }()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return base }
	v.Add(rsAt("KTLX", 0.5))

	now = func() time.Time { return base.Add(10 * time.Minute) }
	v.Add(rsAt("KTLX", 1.5))

	v.Expire(base.Add(10*time.Minute), 5*time.Minute)

	if v.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after expiring the older tilt", v.Len())
	}
	if v.Tilts()[0].ElevDegs != 1.5 {
		t.Errorf("the surviving tilt should be the newer one, got elevation %v", v.Tilts()[0].ElevDegs)
	}
}
