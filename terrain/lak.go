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

package terrain

import (
	"math"

	"github.com/wxfusion/fusion/geo"
)

// numPencils is the number of sub-elevation "pencil rays" spanning the
// beam that Lak's algorithm integrates over, per O'Bannon (1997)'s
// hybrid-scan approach of sampling across the beam cross-section
// rather than the single-ray Bech model.
const numPencils = 7

// Lak implements the pencil-ray beam blockage model: a collection of
// sub-elevation rays spanning the beamwidth is tracked per radial.
// Once a pencil's terrain-intersection range is found, later gates on
// that ray score a "fraction passed" via an inverse-square power
// density curve centered on the blockage point, and the final PBB is
// one minus the average fraction passed across all pencils.
type Lak struct {
	Base

	lastAzDegs    float64
	haveLastAz    bool
	blockRangeKMs []float64
}

// NewLak constructs a Lak pencil-ray blockage calculator over b.DEM.
func NewLak(b Base) *Lak {
	return &Lak{
		Base:          b,
		blockRangeKMs: make([]float64, numPencils),
	}
}

// resetIfNewRadial clears the per-pencil blockage-range state when
// centerAzDegs indicates we have moved to a new radial (pencil ranges
// are only valid for gates marching outward along the same ray).
func (l *Lak) resetIfNewRadial(centerAzDegs float64) {
	if l.haveLastAz && math.Abs(centerAzDegs-l.lastAzDegs) < 1e-9 {
		return
	}
	l.haveLastAz = true
	l.lastAzDegs = centerAzDegs
	for i := range l.blockRangeKMs {
		l.blockRangeKMs[i] = math.Inf(1)
	}
}

// getPowerDensity is the Lak fraction-passed curve: as dist grows past
// a pencil's first terrain-intersection range, the beam's remaining
// power density follows this diffraction-style falloff.
func getPowerDensity(dist float64) float64 {
	x := math.Pi * 1.27 * dist
	x2 := x * x
	if x2 < 1e-12 {
		// limit of (1-exp(-x^2/8.5))/x^2 as x -> 0 is 1/8.5.
		return (1.0 / 8.5) * (1.0 / 8.5)
	}
	pd := (1 - math.Exp(-x2/8.5)) / x2
	return pd * pd
}

// CalculatePercentBlocked marches numPencils sub-elevation rays across
// the beamwidth, records the first range at which each ray's terrain
// height exceeds its beam height, and averages the fraction-passed
// across all pencils to obtain PBB. hit reports whether the lowest
// pencil (closest to the beam bottom) has found terrain.
func (l *Lak) CalculatePercentBlocked(stationHeightKMs, beamWidthDegs, elevDegs, centerAzDegs, centerRangeKMs, cbb float64) (newCBB, pbb float64, hit bool) {
	l.resetIfNewRadial(centerAzDegs)

	passedSum := 0.0
	bottomBlocked := false

	for i := 0; i < numPencils; i++ {
		frac := float64(i)/float64(numPencils-1) - 0.5 // -0.5..+0.5
		subElevDegs := elevDegs + frac*beamWidthDegs

		heightKMs, surfaceKMs := geo.BeamPathRangeElevToHeightSurface(centerRangeKMs, subElevDegs)
		beamHeightKMs := stationHeightKMs + heightKMs

		outLatDegs, outLonDegs := geo.LLBearingDistance(l.RadarLocation.LatDegs, l.RadarLocation.LonDegs, centerAzDegs, surfaceKMs)
		terrainM := l.DEM.ValueAtLL(outLatDegs, outLonDegs)
		terrainKMs := terrainM / 1000.0

		if math.IsInf(l.blockRangeKMs[i], 1) && terrainKMs >= beamHeightKMs {
			l.blockRangeKMs[i] = centerRangeKMs
		}

		var passed float64
		if math.IsInf(l.blockRangeKMs[i], 1) {
			passed = 1.0
		} else {
			dist := centerRangeKMs - l.blockRangeKMs[i]
			if dist <= 0 {
				passed = 1.0
			} else {
				passed = getPowerDensity(dist)
			}
		}
		passedSum += passed

		if i == 0 && !math.IsInf(l.blockRangeKMs[i], 1) {
			bottomBlocked = true
		}
	}

	avgPassed := passedSum / float64(numPencils)
	pbb = clamp(1.0-avgPassed, 0, 1)
	newCBB = math.Max(cbb, pbb)
	hit = bottomBlocked

	return newCBB, pbb, hit
}
