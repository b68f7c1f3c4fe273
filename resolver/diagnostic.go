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

// RangeDiagnostic is a test-pattern resolver: it outputs the virtual
// range in km from the radar center, useful for sanity-checking the
// projection cache rather than the moment data itself.
type RangeDiagnostic struct{}

// Calc reports q.VirtualRangeKMs as the cell's value.
func (RangeDiagnostic) Calc(q *Query) Result {
	return Result{DataValue: q.VirtualRangeKMs, TopSum: q.VirtualRangeKMs, BottomSum: 1}
}

// AzimuthDiagnostic is a test-pattern resolver: it outputs the virtual
// azimuth in degrees.
type AzimuthDiagnostic struct{}

// Calc reports q.VirtualAzDegs as the cell's value.
func (AzimuthDiagnostic) Calc(q *Query) Result {
	return Result{DataValue: q.VirtualAzDegs, TopSum: q.VirtualAzDegs, BottomSum: 1}
}

// TerrainDiagnostic is a test-pattern resolver: it outputs the lower
// tilt's cumulative blockage percent, scaled to a 0-10000 range
// (percent squared), or DataUnavailable if the beam hit bottom.
type TerrainDiagnostic struct{}

// Calc reports scaled terrainCBBPercent^2 * 100^2 of the lower tilt,
// or data.DataUnavailable if its beam hit bottom.
func (TerrainDiagnostic) Calc(q *Query) Result {
	if !q.Lower.Present || q.Lower.BeamHitBottom {
		return Result{DataValue: data.DataUnavailable, TopSum: data.DataUnavailable, BottomSum: 1}
	}
	pct := q.Lower.TerrainCBBPercent
	v := pct * pct * 100 * 100
	return Result{DataValue: v, TopSum: v, BottomSum: 1}
}

// Nearest picks whichever of the lower/upper tilt is elevation-closer
// to the virtual elevation, a simple diagnostic/fallback resolver.
type Nearest struct{}

// Calc reports the closer-in-elevation tilt's raw value, or
// DataUnavailable if neither tilt is present.
func (Nearest) Calc(q *Query) Result {
	switch {
	case q.Lower.Present && q.Upper.Present:
		dLower := q.VirtualElevDegs - q.Lower.ElevationDegs
		if dLower < 0 {
			dLower = -dLower
		}
		dUpper := q.Upper.ElevationDegs - q.VirtualElevDegs
		if dUpper < 0 {
			dUpper = -dUpper
		}
		if dLower <= dUpper {
			return Result{DataValue: q.Lower.Value, TopSum: q.Lower.Value, BottomSum: 1}
		}
		return Result{DataValue: q.Upper.Value, TopSum: q.Upper.Value, BottomSum: 1}
	case q.Lower.Present:
		return Result{DataValue: q.Lower.Value, TopSum: q.Lower.Value, BottomSum: 1}
	case q.Upper.Present:
		return Result{DataValue: q.Upper.Value, TopSum: q.Upper.Value, BottomSum: 1}
	default:
		return Result{DataValue: data.DataUnavailable, TopSum: data.DataUnavailable, BottomSum: 1}
	}
}
