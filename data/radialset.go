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
	"sync/atomic"

	"github.com/wxfusion/fusion/geo"
)

// radialSetIDCounter is the process-wide rolling ID source for
// RadialSets, per the "ID counter with a documented wrap-around rule"
// design note: IDs wrap at 255 back to 1, skipping the reserved 0.
var radialSetIDCounter uint32

// NextRadialSetID returns the next rolling 1-byte RadialSet ID,
// skipping the reserved value 0.
func NextRadialSetID() byte {
	for {
		n := atomic.AddUint32(&radialSetIDCounter, 1)
		id := byte(n % 256)
		if id != 0 {
			return id
		}
	}
}

// RadialSet is a polar DataGrid: dims {Azimuth, Gate}, with per-radial
// azimuth/beamwidth/gatewidth metadata, a primary value array, and
// optional per-gate terrain-blockage overlays.
type RadialSet struct {
	*DataGrid

	// ID is this tilt's unique, rolling, non-zero identity used by the
	// enclosing-tilt-identity cache (LevelSameCache).
	ID byte

	RadarName string
	Location  geo.LLH
	ElevDegs  float64

	DistanceToFirstGateMeters float64

	// Derived, cached once at ingest.
	TanElev float64
	CosElev float64

	Azimuth        []float64 // degrees, radial start
	BeamWidth      []float64 // degrees
	GateWidthM     []float64 // meters
	AzimuthSpacing []float64 // degrees

	hasTerrain bool
}

// NumRadials returns the Azimuth dimension size.
func (r *RadialSet) NumRadials() int { return r.DimSize("Azimuth") }

// NumGates returns the Gate dimension size.
func (r *RadialSet) NumGates() int { return r.DimSize("Gate") }

// NewRadialSet allocates a RadialSet with numRadials x numGates
// dimensions, the primary "value" array, and the per-radial metadata
// arrays. elevDegs caches Tan/Cos of the elevation angle, since both
// are used repeatedly by the projection and resolver code.
func NewRadialSet(radarName string, loc geo.LLH, elevDegs float64, numRadials, numGates int) *RadialSet {
	g := NewDataGrid("RadialSet",
		Dimension{Name: "Azimuth", Size: numRadials},
		Dimension{Name: "Gate", Size: numGates},
	)
	_ = g.AddArray("value", "Azimuth", "Gate")

	elevRad := elevDegs * math.Pi / 180
	return &RadialSet{
		DataGrid:       g,
		ID:             NextRadialSetID(),
		RadarName:      radarName,
		Location:       loc,
		ElevDegs:       elevDegs,
		TanElev:        math.Tan(elevRad),
		CosElev:        math.Cos(elevRad),
		Azimuth:        make([]float64, numRadials),
		BeamWidth:      make([]float64, numRadials),
		GateWidthM:     make([]float64, numRadials),
		AzimuthSpacing: make([]float64, numRadials),
	}
}

// Value returns the moment value at (radial, gate).
func (r *RadialSet) Value(radial, gate int) float64 {
	return r.Array("value").Get(radial, gate)
}

// SetValue stores the moment value at (radial, gate).
func (r *RadialSet) SetValue(radial, gate int, v float64) {
	r.Array("value").Set(v, radial, gate)
}

// EnsureTerrainArrays allocates the optional TerrainCBBPercent,
// TerrainPBBPercent, and TerrainBeamBottomHit arrays, idempotently.
func (r *RadialSet) EnsureTerrainArrays() {
	if r.hasTerrain {
		return
	}
	_ = r.AddArray("TerrainCBBPercent", "Azimuth", "Gate")
	_ = r.AddArray("TerrainPBBPercent", "Azimuth", "Gate")
	_ = r.AddArray("TerrainBeamBottomHit", "Azimuth", "Gate")
	r.hasTerrain = true
}

// HasTerrain reports whether the terrain overlay arrays are present.
func (r *RadialSet) HasTerrain() bool { return r.hasTerrain }

// CBB returns the cumulative beam blockage fraction at (radial, gate),
// or 0 if terrain has not been computed for this RadialSet.
func (r *RadialSet) CBB(radial, gate int) float64 {
	if !r.hasTerrain {
		return 0
	}
	return r.Array("TerrainCBBPercent").Get(radial, gate)
}

// PBB returns the partial beam blockage fraction at (radial, gate).
func (r *RadialSet) PBB(radial, gate int) float64 {
	if !r.hasTerrain {
		return 0
	}
	return r.Array("TerrainPBBPercent").Get(radial, gate)
}

// BeamBottomHit reports whether the beam bottom struck terrain at
// (radial, gate).
func (r *RadialSet) BeamBottomHit(radial, gate int) bool {
	if !r.hasTerrain {
		return false
	}
	return r.Array("TerrainBeamBottomHit").Get(radial, gate) != 0
}

// GateRangeKMs returns the slant range in kilometers to the center of
// gate index g on any radial, given the radial's gate width.
func (r *RadialSet) GateRangeKMs(radial, gate int) float64 {
	gw := r.GateWidthM[radial]
	return (r.DistanceToFirstGateMeters + (float64(gate)+0.5)*gw) / 1000.0
}

// NearestGate projects a virtual (azimuth, range) back onto this
// tilt's polar array: the radial whose start azimuth is closest
// (by the shortest angular distance, wrapping at 360) to azDegs, and
// the gate whose center range is closest to rangeKMs. ok is false if
// the set has no radials/gates, the chosen radial's gate width is not
// positive, or rangeKMs lies before the first gate or at or past the
// far edge of the last gate.
func (r *RadialSet) NearestGate(azDegs, rangeKMs float64) (radial, gate int, ok bool) {
	n := r.NumRadials()
	if n == 0 || r.NumGates() == 0 {
		return 0, 0, false
	}

	bestRadial, bestDelta := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		d := math.Abs(azDegs - r.Azimuth[i])
		if d > 180 {
			d = 360 - d
		}
		if d < bestDelta {
			bestRadial, bestDelta = i, d
		}
	}

	gw := r.GateWidthM[bestRadial]
	if gw <= 0 {
		return 0, 0, false
	}
	g := int(math.Round((rangeKMs*1000.0-r.DistanceToFirstGateMeters)/gw - 0.5))
	if g < 0 || g >= r.NumGates() {
		return 0, 0, false
	}
	return bestRadial, g, true
}
