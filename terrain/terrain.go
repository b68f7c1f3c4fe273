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

// Package terrain computes polar cumulative/partial beam blockage
// (CBB/PBB) against a DEM, with two pluggable algorithms: "2me" (Bech
// et al. 2003 half-power disk) and "lak" (pencil-ray).
package terrain

import (
	"math"

	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
)

// Gate is the per-gate blockage result produced by a Blockage
// implementation.
type Gate struct {
	CBB           float64
	PBB           float64
	BeamBottomHit bool
}

// Blockage computes beam-blockage fractions for a single radar against
// a fixed DEM. Implementations are registered by name in Registry.
type Blockage interface {
	// CalculatePercentBlocked computes PBB (and updates the running
	// cbb maximum) for one polar gate, given the station height, beam
	// width, elevation, center azimuth and center range.
	CalculatePercentBlocked(stationHeightKMs, beamWidthDegs, elevDegs, centerAzDegs, centerRangeKMs float64, cbb float64) (newCBB, pbb float64, hit bool)
}

// DEMLookup resolves a terrain height in meters at a lat/lon point. A
// LatLonGrid (heights in meters) from the data package satisfies this
// directly via DEMFromGrid.
type DEMLookup interface {
	ValueAtLL(latDegs, lonDegs float64) float64
}

// DEMFromGrid adapts a data.LatLonGrid of terrain heights (meters) to
// DEMLookup via nearest-cell lookup.
type DEMFromGrid struct {
	Grid *data.LatLonGrid
}

// ValueAtLL returns the DEM height (meters) at the grid cell nearest
// (latDegs, lonDegs), or 0 if outside the grid.
func (d DEMFromGrid) ValueAtLL(latDegs, lonDegs float64) float64 {
	g := d.Grid
	latIdx := int(math.Round((g.NWLocation.LatDegs - latDegs) / g.LatSpacing))
	lonIdx := int(math.Round((lonDegs - g.NWLocation.LonDegs) / g.LonSpacing))
	if latIdx < 0 || latIdx >= g.NumLat() || lonIdx < 0 || lonIdx >= g.NumLon() {
		return 0
	}
	v := g.Get(latIdx, lonIdx)
	if v == data.DataUnavailable || v == data.MissingData {
		return 0
	}
	return v
}

// NullBlockage is the "missing DEM" fallback: terrain is always 0 and
// blockage is never marked, per §4.4's failure semantics.
type NullBlockage struct{}

// CalculatePercentBlocked always reports zero blockage, no hit, and an
// unchanged cbb.
func (NullBlockage) CalculatePercentBlocked(_, _, _, _, _, cbb float64) (float64, float64, bool) {
	return cbb, 0, false
}

// Base holds the fields common to every concrete Blockage
// implementation: the DEM, radar geometry, and the minimum terrain
// clearance/elevation parameters.
type Base struct {
	DEM              DEMLookup
	RadarLocation    geo.LLH
	RadarRangeKMs    float64
	MinTerrainKMs    float64 // default 0
	MinElevationDegs float64 // default 0.1
}

// PerGatePass decorates rs with CBB, PBB and beam-bottom-hit arrays
// for every (radial, gate), using alg to compute the per-gate fraction
// blocked. CBB accumulates as a running max along each radial, which
// makes it non-decreasing with range (§8 invariant 4).
func PerGatePass(rs *data.RadialSet, alg Blockage, stationHeightKMs float64) {
	rs.EnsureTerrainArrays()
	cbbArr := rs.Array("TerrainCBBPercent")
	pbbArr := rs.Array("TerrainPBBPercent")
	hitArr := rs.Array("TerrainBeamBottomHit")

	for radial := 0; radial < rs.NumRadials(); radial++ {
		cbb := 0.0
		centerAz := rs.Azimuth[radial] + rs.AzimuthSpacing[radial]/2.0
		beamWidth := rs.BeamWidth[radial]
		for gate := 0; gate < rs.NumGates(); gate++ {
			rangeKMs := rs.GateRangeKMs(radial, gate)
			newCBB, pbb, hit := alg.CalculatePercentBlocked(stationHeightKMs, beamWidth, rs.ElevDegs, centerAz, rangeKMs, cbb)
			cbb = newCBB
			cbbArr.Set(cbb, radial, gate)
			pbbArr.Set(pbb, radial, gate)
			h := 0.0
			if hit {
				h = 1.0
			}
			hitArr.Set(h, radial, gate)
		}
	}
}

// Registry maps a configured name to a Blockage factory, the static
// equivalent of the source's dynamic {name -> factory} Factory table
// (dynamic shared-library loading is out of scope per the design
// notes; everything here links statically).
var Registry = map[string]func(Base) Blockage{
	"2me": func(b Base) Blockage { return NewBech2me(b) },
	"lak": func(b Base) Blockage { return NewLak(b) },
}

// New constructs the named Blockage implementation, or NullBlockage if
// b.DEM is nil (missing DEM, per §4.4's failure semantics: a null
// implementation that reports terrain=0 and never marks blockage).
func New(name string, b Base) (Blockage, error) {
	if b.DEM == nil {
		return NullBlockage{}, nil
	}
	factory, ok := Registry[name]
	if !ok {
		return nil, errUnknownBlockage(name)
	}
	return factory(b), nil
}

type errUnknownBlockage string

func (e errUnknownBlockage) Error() string { return "terrain: unknown blockage algorithm " + string(e) }
