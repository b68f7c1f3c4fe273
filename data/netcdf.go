/*
Copyright © 2013 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package data

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/wxfusion/fusion/geo"
)

// radialSetNetCDFVersion guards against reading a file laid out by an
// incompatible writer, the same way InMAPDataVersion guards CTM files.
const radialSetNetCDFVersion = "fusion-radialset-v1"

// ReadRadialSetNetCDF loads a single tilt's polar moment data and
// per-radial metadata from a netcdf file written by WriteRadialSetNetCDF
// or an equivalent ingest tool.
func ReadRadialSetNetCDF(rw cdf.ReaderWriterAt) (*RadialSet, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("data.ReadRadialSetNetCDF: %v", err)
	}

	version, _ := f.Header.GetAttribute("", "data_version").(string)
	if version != radialSetNetCDFVersion {
		return nil, fmt.Errorf("data.ReadRadialSetNetCDF: data version %q is incompatible "+
			"with the required version %q", version, radialSetNetCDFVersion)
	}

	radarName := f.Header.GetAttribute("", "radar_name").(string)
	elevDegs := f.Header.GetAttribute("", "elev_degs").([]float64)[0]
	distFirstGate := f.Header.GetAttribute("", "distance_to_first_gate_m").([]float64)[0]
	loc := geo.LLH{
		LL: geo.LL{
			LatDegs: f.Header.GetAttribute("", "radar_lat").([]float64)[0],
			LonDegs: f.Header.GetAttribute("", "radar_lon").([]float64)[0],
		},
		HeightKMs: f.Header.GetAttribute("", "radar_height_km").([]float64)[0],
	}

	lens := f.Header.Lengths("value")
	if len(lens) != 2 {
		return nil, fmt.Errorf("data.ReadRadialSetNetCDF: value variable has %d dims, want 2", len(lens))
	}
	numRadials, numGates := lens[0], lens[1]

	rs := NewRadialSet(radarName, loc, elevDegs, numRadials, numGates)
	rs.DistanceToFirstGateMeters = distFirstGate
	if typeName, ok := f.Header.GetAttribute("", "moment_type").(string); ok && typeName != "" {
		rs.TypeName = typeName
	}
	if units, ok := f.Header.GetAttribute("", "units").(string); ok {
		rs.Attrs["Units"] = units
	}

	if err := readFloat64Var(f, "Azimuth", rs.Azimuth); err != nil {
		return nil, err
	}
	if err := readFloat64Var(f, "BeamWidth", rs.BeamWidth); err != nil {
		return nil, err
	}
	if err := readFloat64Var(f, "GateWidthM", rs.GateWidthM); err != nil {
		return nil, err
	}
	if err := readFloat64Var(f, "AzimuthSpacing", rs.AzimuthSpacing); err != nil {
		return nil, err
	}

	valueReader := f.Reader("value", nil, nil)
	tmp := make([]float32, numRadials*numGates)
	if _, err := valueReader.Read(tmp); err != nil {
		return nil, fmt.Errorf("data.ReadRadialSetNetCDF: reading value: %v", err)
	}
	for radial := 0; radial < numRadials; radial++ {
		for gate := 0; gate < numGates; gate++ {
			rs.SetValue(radial, gate, float64(tmp[radial*numGates+gate]))
		}
	}
	return rs, nil
}

func readFloat64Var(f *cdf.File, name string, dst []float64) error {
	r := f.Reader(name, nil, nil)
	tmp := make([]float32, len(dst))
	if _, err := r.Read(tmp); err != nil {
		return fmt.Errorf("data.ReadRadialSetNetCDF: reading %s: %v", name, err)
	}
	for i, v := range tmp {
		dst[i] = float64(v)
	}
	return nil
}

// WriteRadialSetNetCDF writes rs to netcdf file w, in the layout
// ReadRadialSetNetCDF expects.
func WriteRadialSetNetCDF(w *os.File, rs *RadialSet) error {
	numRadials, numGates := rs.NumRadials(), rs.NumGates()

	h := cdf.NewHeader(
		[]string{"Azimuth", "Gate"},
		[]int{numRadials, numGates},
	)
	h.AddAttribute("", "comment", "fusion radial set (single tilt polar moment data)")
	h.AddAttribute("", "data_version", radialSetNetCDFVersion)
	h.AddAttribute("", "radar_name", rs.RadarName)
	h.AddAttribute("", "moment_type", rs.TypeName)
	h.AddAttribute("", "units", rs.Attrs.String("Units"))
	h.AddAttribute("", "radar_lat", []float64{rs.Location.LatDegs})
	h.AddAttribute("", "radar_lon", []float64{rs.Location.LonDegs})
	h.AddAttribute("", "radar_height_km", []float64{rs.Location.HeightKMs})
	h.AddAttribute("", "elev_degs", []float64{rs.ElevDegs})
	h.AddAttribute("", "distance_to_first_gate_m", []float64{rs.DistanceToFirstGateMeters})

	h.AddVariable("Azimuth", []string{"Azimuth"}, []float32{0})
	h.AddVariable("BeamWidth", []string{"Azimuth"}, []float32{0})
	h.AddVariable("GateWidthM", []string{"Azimuth"}, []float32{0})
	h.AddVariable("AzimuthSpacing", []string{"Azimuth"}, []float32{0})
	h.AddVariable("value", []string{"Azimuth", "Gate"}, []float32{0})
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("data.WriteRadialSetNetCDF: %v", err)
	}

	if err := writeFloat64Var(f, "Azimuth", rs.Azimuth); err != nil {
		return err
	}
	if err := writeFloat64Var(f, "BeamWidth", rs.BeamWidth); err != nil {
		return err
	}
	if err := writeFloat64Var(f, "GateWidthM", rs.GateWidthM); err != nil {
		return err
	}
	if err := writeFloat64Var(f, "AzimuthSpacing", rs.AzimuthSpacing); err != nil {
		return err
	}

	values := make([]float32, numRadials*numGates)
	for radial := 0; radial < numRadials; radial++ {
		for gate := 0; gate < numGates; gate++ {
			values[radial*numGates+gate] = float32(rs.Value(radial, gate))
		}
	}
	valueWriter := f.Writer("value", make([]int, 2), []int{numRadials, numGates})
	if _, err := valueWriter.Write(values); err != nil {
		return fmt.Errorf("data.WriteRadialSetNetCDF: writing value: %v", err)
	}

	return cdf.UpdateNumRecs(w)
}

func writeFloat64Var(f *cdf.File, name string, src []float64) error {
	data32 := make([]float32, len(src))
	for i, v := range src {
		data32[i] = float32(v)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data32); err != nil {
		return fmt.Errorf("data.WriteRadialSetNetCDF: writing %s: %v", name, err)
	}
	return nil
}

// ReadLatLonGridNetCDF loads a DEM (or any other single-layer lat/lon
// field) from a netcdf file whose "value" variable is dimensioned
// (Lat, Lon), with nw_lat/nw_lon/lat_spacing/lon_spacing global
// attributes locating it. Used by cmd/stage1's -dem flag to build a
// terrain.DEMFromGrid.
func ReadLatLonGridNetCDF(rw cdf.ReaderWriterAt) (*LatLonGrid, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("data.ReadLatLonGridNetCDF: %v", err)
	}

	lens := f.Header.Lengths("value")
	if len(lens) != 2 {
		return nil, fmt.Errorf("data.ReadLatLonGridNetCDF: value variable has %d dims, want 2", len(lens))
	}
	numLat, numLon := lens[0], lens[1]

	nw := geo.LLH{LL: geo.LL{
		LatDegs: f.Header.GetAttribute("", "nw_lat").([]float64)[0],
		LonDegs: f.Header.GetAttribute("", "nw_lon").([]float64)[0],
	}}
	latSpacing := f.Header.GetAttribute("", "lat_spacing").([]float64)[0]
	lonSpacing := f.Header.GetAttribute("", "lon_spacing").([]float64)[0]

	typeName, _ := f.Header.GetAttribute("", "type_name").(string)
	if typeName == "" {
		typeName = "DEM"
	}
	g := NewLatLonGrid(typeName, nw, latSpacing, lonSpacing, numLat, numLon)

	r := f.Reader("value", nil, nil)
	tmp := make([]float32, numLat*numLon)
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("data.ReadLatLonGridNetCDF: reading value: %v", err)
	}
	for lat := 0; lat < numLat; lat++ {
		for lon := 0; lon < numLon; lon++ {
			g.Set(lat, lon, float64(tmp[lat*numLon+lon]))
		}
	}
	return g, nil
}

// WriteLatLonGridNetCDF writes g to netcdf file w, in the layout
// ReadLatLonGridNetCDF expects.
func WriteLatLonGridNetCDF(w *os.File, g *LatLonGrid) error {
	numLat, numLon := g.NumLat(), g.NumLon()

	h := cdf.NewHeader([]string{"Lat", "Lon"}, []int{numLat, numLon})
	h.AddAttribute("", "comment", "fusion lat/lon grid (DEM or single-layer field)")
	h.AddAttribute("", "type_name", g.TypeName)
	h.AddAttribute("", "nw_lat", []float64{g.NWLocation.LatDegs})
	h.AddAttribute("", "nw_lon", []float64{g.NWLocation.LonDegs})
	h.AddAttribute("", "lat_spacing", []float64{g.LatSpacing})
	h.AddAttribute("", "lon_spacing", []float64{g.LonSpacing})
	h.AddVariable("value", []string{"Lat", "Lon"}, []float32{0})
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("data.WriteLatLonGridNetCDF: %v", err)
	}

	values := make([]float32, numLat*numLon)
	for lat := 0; lat < numLat; lat++ {
		for lon := 0; lon < numLon; lon++ {
			values[lat*numLon+lon] = float32(g.Get(lat, lon))
		}
	}
	valueWriter := f.Writer("value", make([]int, 2), []int{numLat, numLon})
	if _, err := valueWriter.Write(values); err != nil {
		return fmt.Errorf("data.WriteLatLonGridNetCDF: writing value: %v", err)
	}
	return cdf.UpdateNumRecs(w)
}
