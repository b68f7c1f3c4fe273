package data

import (
	"reflect"
	"testing"

	"github.com/wxfusion/fusion/geo"
)

func TestLatLonGridGetSet(t *testing.T) {
	g := NewLatLonGrid("Reflectivity", geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 0.01, 0.01, 5, 5)
	g.Set(2, 3, 35.5)
	if got := g.Get(2, 3); got != 35.5 {
		t.Errorf("Get(2,3) = %v, want 35.5", got)
	}
	if got := g.Get(0, 0); got != DataUnavailable {
		t.Errorf("unset cell = %v, want DataUnavailable", got)
	}
}

func TestSparsePixelRoundTrip(t *testing.T) {
	g := NewLatLonGrid("Reflectivity", geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 0.01, 0.01, 4, 6)
	g.Set(0, 1, 20)
	g.Set(0, 2, 20)
	g.Set(0, 3, 20)
	g.Set(2, 0, 45)
	g.Set(3, 5, 10)

	runs := g.EncodeSparsePixels(DataUnavailable)

	g2 := NewLatLonGrid("Reflectivity", geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 0.01, 0.01, 4, 6)
	g2.DecodeSparsePixels(runs, DataUnavailable)

	for lat := 0; lat < g.NumLat(); lat++ {
		for lon := 0; lon < g.NumLon(); lon++ {
			want := g.Get(lat, lon)
			got := g2.Get(lat, lon)
			if want != got {
				t.Errorf("cell (%d,%d): got %v, want %v", lat, lon, got, want)
			}
		}
	}
}

func TestLLHGridN2DLayerNeverNil(t *testing.T) {
	g := NewLLHGridN2D("MergedReflectivityQC", geo.LLH{LL: geo.LL{LatDegs: 40, LonDegs: -100}}, 0.01, 0.01, 3, 3, []int{500, 1000, 1500})
	layer := g.LatLonGrid(1000)
	if layer == nil {
		t.Fatalf("LatLonGrid(1000) returned nil")
	}
	// Second access must return the same stored layer, not a fresh one.
	layer.Set(0, 0, 42)
	layer2 := g.LatLonGrid(1000)
	if layer2.Get(0, 0) != 42 {
		t.Errorf("second LatLonGrid(1000) access lost prior writes; got %v", layer2.Get(0, 0))
	}
	if !reflect.DeepEqual(layer, layer2) {
		t.Errorf("LatLonGrid(1000) did not return the same cached layer")
	}
}

func TestLLHGridN2DHasLayer(t *testing.T) {
	g := NewLLHGridN2D("MergedReflectivityQC", geo.LLH{}, 0.01, 0.01, 2, 2, []int{500})
	if g.HasLayer(500) {
		t.Errorf("layer should not exist before first access")
	}
	g.LatLonGrid(500)
	if !g.HasLayer(500) {
		t.Errorf("layer should exist after first access")
	}
}
