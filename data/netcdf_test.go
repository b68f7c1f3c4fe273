package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wxfusion/fusion/geo"
)

func TestRadialSetNetCDFRoundTrip(t *testing.T) {
	rs := NewRadialSet("KTLX", geo.LLH{LL: geo.LL{LatDegs: 35.3, LonDegs: -97.3}, HeightKMs: 0.417}, 0.5, 3, 4)
	rs.DistanceToFirstGateMeters = 2125
	for i := 0; i < rs.NumRadials(); i++ {
		rs.Azimuth[i] = float64(i) * 120
		rs.BeamWidth[i] = 0.95
		rs.GateWidthM[i] = 250
		rs.AzimuthSpacing[i] = 1.0
	}
	for radial := 0; radial < rs.NumRadials(); radial++ {
		for gate := 0; gate < rs.NumGates(); gate++ {
			rs.SetValue(radial, gate, float64(radial*10+gate))
		}
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "tilt.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := WriteRadialSetNetCDF(w, rs); err != nil {
		t.Fatalf("WriteRadialSetNetCDF: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := ReadRadialSetNetCDF(r)
	if err != nil {
		t.Fatalf("ReadRadialSetNetCDF: %v", err)
	}

	if got.RadarName != rs.RadarName {
		t.Errorf("RadarName = %q, want %q", got.RadarName, rs.RadarName)
	}
	if got.ElevDegs != rs.ElevDegs {
		t.Errorf("ElevDegs = %v, want %v", got.ElevDegs, rs.ElevDegs)
	}
	if got.DistanceToFirstGateMeters != rs.DistanceToFirstGateMeters {
		t.Errorf("DistanceToFirstGateMeters = %v, want %v", got.DistanceToFirstGateMeters, rs.DistanceToFirstGateMeters)
	}
	if got.Location.LatDegs != rs.Location.LatDegs || got.Location.LonDegs != rs.Location.LonDegs {
		t.Errorf("Location = %+v, want %+v", got.Location, rs.Location)
	}
	if got.NumRadials() != rs.NumRadials() || got.NumGates() != rs.NumGates() {
		t.Fatalf("dims = (%d,%d), want (%d,%d)", got.NumRadials(), got.NumGates(), rs.NumRadials(), rs.NumGates())
	}
	for i := 0; i < rs.NumRadials(); i++ {
		if got.Azimuth[i] != rs.Azimuth[i] {
			t.Errorf("Azimuth[%d] = %v, want %v", i, got.Azimuth[i], rs.Azimuth[i])
		}
		if got.GateWidthM[i] != rs.GateWidthM[i] {
			t.Errorf("GateWidthM[%d] = %v, want %v", i, got.GateWidthM[i], rs.GateWidthM[i])
		}
	}
	for radial := 0; radial < rs.NumRadials(); radial++ {
		for gate := 0; gate < rs.NumGates(); gate++ {
			want := rs.Value(radial, gate)
			if got.Value(radial, gate) != want {
				t.Errorf("Value(%d,%d) = %v, want %v", radial, gate, got.Value(radial, gate), want)
			}
		}
	}
}

func TestLatLonGridNetCDFRoundTrip(t *testing.T) {
	g := NewLatLonGrid("DEM", geo.LLH{LL: geo.LL{LatDegs: 40.0, LonDegs: -105.0}}, 0.01, 0.01, 3, 2)
	g.Set(0, 0, 1600)
	g.Set(1, 1, 2300.5)

	dir := t.TempDir()
	path := filepath.Join(dir, "dem.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := WriteLatLonGridNetCDF(w, g); err != nil {
		t.Fatalf("WriteLatLonGridNetCDF: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := ReadLatLonGridNetCDF(r)
	if err != nil {
		t.Fatalf("ReadLatLonGridNetCDF: %v", err)
	}
	if got.NumLat() != g.NumLat() || got.NumLon() != g.NumLon() {
		t.Fatalf("dims = (%d,%d), want (%d,%d)", got.NumLat(), got.NumLon(), g.NumLat(), g.NumLon())
	}
	if got.Get(0, 0) != 1600 || got.Get(1, 1) != 2300.5 {
		t.Errorf("round-tripped values = (%v,%v), want (1600,2300.5)", got.Get(0, 0), got.Get(1, 1))
	}
	if got.NWLocation.LatDegs != g.NWLocation.LatDegs || got.NWLocation.LonDegs != g.NWLocation.LonDegs {
		t.Errorf("NWLocation = %+v, want %+v", got.NWLocation, g.NWLocation)
	}
}

func TestReadRadialSetNetCDFRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.nc")
	if err := os.WriteFile(path, []byte("not a netcdf file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if _, err := ReadRadialSetNetCDF(r); err == nil {
		t.Errorf("ReadRadialSetNetCDF(garbage) = nil error, want error")
	}
}
