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
	"math"

	"github.com/wxfusion/fusion/geo"
)

// MissingData marks a cell that should have a value but does not
// (masked, or outside the radar's range in a way that still implies
// coverage). DataUnavailable marks a cell no radar ever claimed to
// cover. Both are negative and distinguishable from any real moment
// value (dBZ, m/s, etc. are never this negative in practice).
const (
	MissingData     = -99000.0
	DataUnavailable = -99001.0
)

// LatLonGrid is a 2-D DataGrid on a fixed lat/lon grid at one height.
type LatLonGrid struct {
	*DataGrid
	NWLocation geo.LLH
	LatSpacing float64
	LonSpacing float64
}

// NewLatLonGrid allocates a numLat x numLon LatLonGrid with a primary
// "value" array, initialized to DataUnavailable.
func NewLatLonGrid(typeName string, nw geo.LLH, latSpacing, lonSpacing float64, numLat, numLon int) *LatLonGrid {
	g := NewDataGrid(typeName,
		Dimension{Name: "Lat", Size: numLat},
		Dimension{Name: "Lon", Size: numLon},
	)
	_ = g.AddArray("value", "Lat", "Lon")
	llg := &LatLonGrid{DataGrid: g, NWLocation: nw, LatSpacing: latSpacing, LonSpacing: lonSpacing}
	llg.Fill(DataUnavailable)
	return llg
}

// NumLat returns the Lat dimension size.
func (g *LatLonGrid) NumLat() int { return g.DimSize("Lat") }

// NumLon returns the Lon dimension size.
func (g *LatLonGrid) NumLon() int { return g.DimSize("Lon") }

// Get returns the value at (latIdx, lonIdx).
func (g *LatLonGrid) Get(latIdx, lonIdx int) float64 {
	return g.Array("value").Get(latIdx, lonIdx)
}

// Set stores v at (latIdx, lonIdx).
func (g *LatLonGrid) Set(latIdx, lonIdx int, v float64) {
	g.Array("value").Set(v, latIdx, lonIdx)
}

// Fill sets every cell to v.
func (g *LatLonGrid) Fill(v float64) {
	arr := g.Array("value")
	for lat := 0; lat < g.NumLat(); lat++ {
		for lon := 0; lon < g.NumLon(); lon++ {
			arr.Set(v, lat, lon)
		}
	}
}

// LatLonOf returns the geographic coordinate of cell (latIdx, lonIdx).
func (g *LatLonGrid) LatLonOf(latIdx, lonIdx int) geo.LL {
	return geo.LL{
		LatDegs: g.NWLocation.LatDegs - float64(latIdx)*g.LatSpacing,
		LonDegs: g.NWLocation.LonDegs + float64(lonIdx)*g.LonSpacing,
	}
}

// PixelRun is one run-length-encoded non-background value, from the
// MRMS-style sparse pixel encoding: a run starting at (x,y[,z]) of
// length count, all holding value.
type PixelRun struct {
	X, Y, Z int
	Count   int
	Value   float64
}

// EncodeSparsePixels scans the grid row-major (lon inner, lat outer)
// and emits one PixelRun per maximal horizontal run of equal
// non-background values, where background is any value equal to bg (typically
// DataUnavailable). This is the DataGrid "preWrite" hook rewriting a
// grid into pixel_x/y/z/count/value form before serialization.
func (g *LatLonGrid) EncodeSparsePixels(bg float64) []PixelRun {
	var runs []PixelRun
	arr := g.Array("value")
	for lat := 0; lat < g.NumLat(); lat++ {
		x := 0
		for x < g.NumLon() {
			v := arr.Get(lat, x)
			if v == bg {
				x++
				continue
			}
			start := x
			for x < g.NumLon() && arr.Get(lat, x) == v {
				x++
			}
			runs = append(runs, PixelRun{X: start, Y: lat, Count: x - start, Value: v})
		}
	}
	return runs
}

// DecodeSparsePixels is the inverse of EncodeSparsePixels: it fills
// every cell named by runs, leaving all other cells at bg.
func (g *LatLonGrid) DecodeSparsePixels(runs []PixelRun, bg float64) {
	g.Fill(bg)
	arr := g.Array("value")
	for _, r := range runs {
		for i := 0; i < r.Count; i++ {
			arr.Set(r.Value, r.Y, r.X+i)
		}
	}
}

// LatLonHeightGrid is a dense 3-D Cartesian grid: a stack of numHeight
// LatLonGrid-shaped layers backed by a single 3-D array.
type LatLonHeightGrid struct {
	*DataGrid
	NWLocation geo.LLH
	LatSpacing float64
	LonSpacing float64
	HeightsKM  []float64
}

// NewLatLonHeightGrid allocates a numLat x numLon x numHeight dense
// grid, initialized to DataUnavailable.
func NewLatLonHeightGrid(typeName string, nw geo.LLH, latSpacing, lonSpacing float64, numLat, numLon int, heightsKM []float64) *LatLonHeightGrid {
	g := NewDataGrid(typeName,
		Dimension{Name: "Lat", Size: numLat},
		Dimension{Name: "Lon", Size: numLon},
		Dimension{Name: "Height", Size: len(heightsKM)},
	)
	_ = g.AddArray("value", "Lat", "Lon", "Height")
	hg := &LatLonHeightGrid{DataGrid: g, NWLocation: nw, LatSpacing: latSpacing, LonSpacing: lonSpacing, HeightsKM: append([]float64(nil), heightsKM...)}
	arr := hg.Array("value")
	for i := range arr.Elements {
		arr.Elements[i] = DataUnavailable
	}
	return hg
}

// NumLat, NumLon, NumHeight return the grid's cell counts.
func (g *LatLonHeightGrid) NumLat() int    { return g.DimSize("Lat") }
func (g *LatLonHeightGrid) NumLon() int    { return g.DimSize("Lon") }
func (g *LatLonHeightGrid) NumHeight() int { return g.DimSize("Height") }

// Get returns the value at (latIdx, lonIdx, heightIdx).
func (g *LatLonHeightGrid) Get(latIdx, lonIdx, heightIdx int) float64 {
	return g.Array("value").Get(latIdx, lonIdx, heightIdx)
}

// Set stores v at (latIdx, lonIdx, heightIdx).
func (g *LatLonHeightGrid) Set(latIdx, lonIdx, heightIdx int, v float64) {
	g.Array("value").Set(v, latIdx, lonIdx, heightIdx)
}

// LLHGridN2D is a 3-D grid represented as a lazily-materialized stack
// of 2-D LatLonGrid layers, preserving integer height-in-meters keys.
// This avoids allocating the full dense cube when only a few layers
// are ever touched, which is the common case for a single radar's
// contribution to a CONUS-scale grid.
type LLHGridN2D struct {
	NWLocation geo.LLH
	LatSpacing float64
	LonSpacing float64
	NumLatV    int
	NumLonV    int

	// heightsM are the ordered layer heights in meters, matching the
	// source's choice to key layers by integer meters rather than the
	// floating-point kilometer value used elsewhere.
	heightsM []int
	layers   map[int]*LatLonGrid
	typeName string
}

// NewLLHGridN2D allocates an LLHGridN2D over the given integer height
// layers (meters). No layer is materialized until first accessed.
func NewLLHGridN2D(typeName string, nw geo.LLH, latSpacing, lonSpacing float64, numLat, numLon int, heightsM []int) *LLHGridN2D {
	return &LLHGridN2D{
		NWLocation: nw,
		LatSpacing: latSpacing,
		LonSpacing: lonSpacing,
		NumLatV:    numLat,
		NumLonV:    numLon,
		heightsM:   append([]int(nil), heightsM...),
		layers:     make(map[int]*LatLonGrid),
		typeName:   typeName,
	}
}

// HeightsM returns the ordered layer heights in meters.
func (g *LLHGridN2D) HeightsM() []int { return g.heightsM }

// LatLonGrid returns the 2-D layer at heightM, materializing and
// caching it on first access. Per the design notes, the source
// implementation has a branch that returns nullptr after assigning
// the new layer into its lazy cache; here the stored pointer is always
// what gets returned, never nil, which is the corrected behavior.
func (g *LLHGridN2D) LatLonGrid(heightM int) *LatLonGrid {
	if layer, ok := g.layers[heightM]; ok {
		return layer
	}
	layer := NewLatLonGrid(g.typeName, g.NWLocation, g.LatSpacing, g.LonSpacing, g.NumLatV, g.NumLonV)
	g.layers[heightM] = layer
	return layer
}

// HasLayer reports whether heightM has been materialized, without
// creating it.
func (g *LLHGridN2D) HasLayer(heightM int) bool {
	_, ok := g.layers[heightM]
	return ok
}

// nearestHeightIndex returns the index into heightsM closest to
// heightM, used when looking up a layer by a height that may not
// fall exactly on the table.
func (g *LLHGridN2D) nearestHeightIndex(heightM int) int {
	best, bestDiff := 0, math.MaxInt64
	for i, h := range g.heightsM {
		d := h - heightM
		if d < 0 {
			d = -d
		}
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

// NearestHeightM returns the table height in meters closest to
// heightM.
func (g *LLHGridN2D) NearestHeightM(heightM int) int {
	if len(g.heightsM) == 0 {
		return heightM
	}
	return g.heightsM[g.nearestHeightIndex(heightM)]
}
