package partition

import (
	"testing"
	"time"

	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
)

func smallGrid(nw geo.LLH, fill float64) *data.LatLonGrid {
	g := data.NewLatLonGrid("Reflectivity", nw, 1, 1, 2, 2)
	g.Fill(fill)
	return g
}

func TestTileJoinFillsAndFinalizes(t *testing.T) {
	info := NewNone(fullGrid())
	tj := NewTileJoin(info)
	now := time.Unix(1700000000, 0)

	tile := smallGrid(geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 35)
	key, full, ok := tj.Add("Reflectivity", "00.50", now, geo.LL{LatDegs: 35, LonDegs: -95}, tile)
	if !ok {
		t.Fatalf("Add should accept a centroid inside the only partition")
	}
	if !full {
		t.Fatalf("a single-partition entry should be full after one Add")
	}

	out := data.NewLatLonGrid("Reflectivity", geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 1, 1, 2, 2)
	tj.FinalizeEntry(key, out)

	if got := out.Get(0, 0); got != 35 {
		t.Errorf("finalized grid cell = %v, want 35", got)
	}
	if _, stillThere := tj.entries[key]; stillThere {
		t.Errorf("FinalizeEntry should remove the entry")
	}
}

func TestTileJoinAddOutsideEveryPartitionIsDropped(t *testing.T) {
	info := NewNone(fullGrid())
	tj := NewTileJoin(info)
	tile := smallGrid(geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 10)
	_, _, ok := tj.Add("Reflectivity", "00.50", time.Now(), geo.LL{LatDegs: 0, LonDegs: 0}, tile)
	if ok {
		t.Errorf("Add with a centroid outside every partition should be dropped")
	}
}

func TestTileJoinExpiredKeys(t *testing.T) {
	info := NewNone(fullGrid())
	tj := NewTileJoin(info)
	old := time.Unix(1700000000, 0)
	tile := smallGrid(geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 10)
	key, _, _ := tj.Add("Reflectivity", "00.50", old, geo.LL{LatDegs: 35, LonDegs: -95}, tile)

	expired := tj.ExpiredKeys(old.Add(time.Minute))
	if len(expired) != 1 || expired[0] != key {
		t.Errorf("ExpiredKeys = %v, want [%s]", expired, key)
	}
	if len(tj.ExpiredKeys(old.Add(-time.Minute))) != 0 {
		t.Errorf("a key newer than cutoff should not be expired")
	}
}

func TestNearestNeighborRemap(t *testing.T) {
	src := smallGrid(geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 42)
	dst := data.NewLatLonGrid("Reflectivity", geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 1, 1, 2, 2)
	NearestNeighborRemap(src, dst)
	if got := dst.Get(0, 0); got != 42 {
		t.Errorf("remapped cell = %v, want 42", got)
	}
}
