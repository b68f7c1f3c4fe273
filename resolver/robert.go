/*
Copyright © 2016 the InMAP authors.
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

package resolver

import "github.com/wxfusion/fusion/data"

// Robert is the "silly simple" resolver: linear interpolation between
// the two enclosing tilts in height space, after half-beamwidth
// inclusion tests and a cumulative-blockage correction.
type Robert struct{}

// heightForDegreeShift returns the beam height at q's range shifted by
// deltaDegs off the tilt's elevation, the height a half-beamwidth
// boundary of l would reach at this query point. l.HeightKMs already
// holds the beam height at l's own elevation, so the shift is modeled
// as a proportional adjustment via the tangent ratio implicit in
// l.ElevationDegs - a cheap, good-enough local linearization since
// deltaDegs is always a small fraction of a degree.
func heightForDegreeShift(l Layer, deltaDegs float64) float64 {
	if l.ElevationDegs == 0 {
		return l.HeightKMs
	}
	ratio := (l.ElevationDegs + deltaDegs) / l.ElevationDegs
	return l.HeightKMs * ratio
}

// Calc implements the RobertLinear1Resolver algorithm: mask logic
// first (MissingData when both tilts are present, or when the only
// present tilt's half-beamwidth covers the layer height; otherwise
// DataUnavailable), then terrain/beam-bottom
// value suppression, then height-weighted linear interpolation (or a
// single-sided value when only one tilt's beamwidth covers the
// point).
func (r *Robert) Calc(q *Query) Result {
	haveLower := q.Lower.Present
	haveUpper := q.Upper.Present

	var lowerHeightKMs, upperHeightKMs float64
	inLowerBeamwidth, inUpperBeamwidth := false, false

	if haveLower {
		lowerHeightKMs = heightForDegreeShift(q.Lower, q.Lower.BeamWidthDegs/2.0)
		inLowerBeamwidth = q.LayerHeightKMs <= lowerHeightKMs
	}
	if haveUpper {
		upperHeightKMs = heightForDegreeShift(q.Upper, -(q.Upper.BeamWidthDegs / 2.0))
		inUpperBeamwidth = q.LayerHeightKMs >= upperHeightKMs
	}

	v := data.DataUnavailable
	switch {
	case haveUpper && haveLower:
		v = data.MissingData
	case haveUpper:
		if inUpperBeamwidth {
			v = data.MissingData
		}
	case haveLower:
		if inLowerBeamwidth {
			v = data.MissingData
		}
	}

	lValue := q.Lower.Value
	uValue := q.Upper.Value
	if q.Upper.TerrainCBBPercent > terrainPercent {
		uValue = data.DataUnavailable
	}
	if q.Lower.TerrainCBBPercent > terrainPercent {
		lValue = data.DataUnavailable
	}
	if q.Lower.BeamHitBottom {
		lValue = data.DataUnavailable
	}
	if q.Upper.BeamHitBottom {
		uValue = data.DataUnavailable
	}

	switch {
	case data.IsGood(lValue) && data.IsGood(uValue):
		wt := (q.LayerHeightKMs - q.Lower.HeightKMs) / (q.Upper.HeightKMs - q.Lower.HeightKMs)
		wt = clamp01(wt)
		nwt := 1.0 - wt

		lTerrain := lValue * (1 - q.Lower.TerrainCBBPercent)
		uTerrain := uValue * (1 - q.Upper.TerrainCBBPercent)
		v = nwt*lTerrain + wt*uTerrain
	case inLowerBeamwidth:
		if data.IsGood(lValue) {
			v = lValue * (1 - q.Lower.TerrainCBBPercent)
		} else {
			v = lValue
		}
	case inUpperBeamwidth:
		if data.IsGood(uValue) {
			v = uValue * (1 - q.Upper.TerrainCBBPercent)
		} else {
			v = uValue
		}
	}

	return Result{DataValue: v, TopSum: v, BottomSum: q.VirtualRangeKMs}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
