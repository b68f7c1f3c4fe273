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

// Bech2me implements the Bech et al. (2003) half-power disk model: the
// beam cross-section at a given range is treated as a disk of radius
// a = range*beamwidth(rad)/2, and the fraction of that disk below the
// terrain height is computed analytically as a circular-segment area.
type Bech2me struct {
	Base
}

// NewBech2me constructs a Bech2me blockage calculator over b.DEM.
func NewBech2me(b Base) *Bech2me {
	return &Bech2me{Base: b}
}

// attenuationHeightKMs returns the beam height in km above mean sea
// level at rangeKMs along a ray of elevation elevDegs from a station
// at stationHeightKMs, using the standard 4/3-earth beam-path
// equation.
func attenuationHeightKMs(stationHeightKMs, rangeKMs, elevDegs float64) float64 {
	h, _ := geo.BeamPathRangeElevToHeightSurface(rangeKMs, elevDegs)
	return stationHeightKMs + h
}

// CalculatePercentBlocked implements the half-power-disk algorithm: it
// samples terrain height at the bottom-of-beam angle, models the beam
// as a disk of radius a centered on the beam axis, and computes the
// fraction of that disk's area below the terrain as a circular-segment
// area ratio.
func (b *Bech2me) CalculatePercentBlocked(stationHeightKMs, beamWidthDegs, elevDegs, centerAzDegs, centerRangeKMs, cbb float64) (newCBB, pbb float64, hit bool) {
	bottomDegs := elevDegs - 0.5*beamWidthDegs

	c := attenuationHeightKMs(stationHeightKMs, centerRangeKMs, elevDegs)

	surfaceKMs, _ := surfaceDistanceForBottomBeam(bottomDegs, centerRangeKMs)
	outLatDegs, outLonDegs := geo.LLBearingDistance(b.RadarLocation.LatDegs, b.RadarLocation.LonDegs, centerAzDegs, surfaceKMs)
	d := attenuationHeightKMs(stationHeightKMs, centerRangeKMs, bottomDegs)

	aBotTerrainHeightM := b.DEM.ValueAtLL(outLatDegs, outLonDegs)
	terrainKMs := aBotTerrainHeightM / 1000.0

	a := (centerRangeKMs * (beamWidthDegs * math.Pi / 180.0)) / 2.0
	y := terrainKMs - c

	var fractionBlocked float64
	switch {
	case y >= a:
		fractionBlocked = 1.0
	case y <= -a:
		fractionBlocked = 0.0
	default:
		a2 := a * a
		y2 := y * y
		num := y*math.Sqrt(a2-y2) + a2*math.Asin(y/a) + math.Pi*a2/2
		dem := math.Pi * a2
		fractionBlocked = num / dem
	}

	pbb = clamp(fractionBlocked, 0, 1)
	newCBB = math.Max(cbb, pbb)

	hit = (d - terrainKMs) <= b.MinTerrainKMs

	return newCBB, pbb, hit
}

// surfaceDistanceForBottomBeam recovers the great-circle surface
// distance corresponding to a ray at elevDegs and slant range
// rangeKMs, used to locate the ground point under the bottom of the
// beam.
func surfaceDistanceForBottomBeam(elevDegs, rangeKMs float64) (surfaceKMs, heightKMs float64) {
	heightKMs, surfaceKMs = geo.BeamPathRangeElevToHeightSurface(rangeKMs, elevDegs)
	return surfaceKMs, heightKMs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
