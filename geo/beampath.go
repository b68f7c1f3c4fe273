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

package geo

import "math"

// EffectiveEarthRadiusKMs is Re = (4/3) * true earth radius, the
// standard "4/3 earth" approximation used to account for atmospheric
// refraction when projecting a radar beam.
const EffectiveEarthRadiusKMs = (4.0 / 3.0) * earthRadiusKM

// BeamPathRangeElevToHeightSurface projects a slant range (km) and
// elevation angle (degrees) along a radar beam into a height above the
// radar (km) and a great-circle surface distance from the radar (km),
// using the 4/3-effective-earth-radius beam-path model.
func BeamPathRangeElevToHeightSurface(rangeKMs, elevDegs float64) (heightKMs, surfaceKMs float64) {
	el := elevDegs * math.Pi / 180
	ae := EffectiveEarthRadiusKMs

	heightKMs = math.Sqrt(rangeKMs*rangeKMs+ae*ae+2*rangeKMs*ae*math.Sin(el)) - ae
	surfaceKMs = ae * math.Asin(clamp(rangeKMs*math.Cos(el)/(ae+heightKMs), -1, 1))
	return
}

// BeamPathSurfaceHeightToRangeElev is the inverse of
// BeamPathRangeElevToHeightSurface: given a great-circle surface
// distance from the radar (km) and a height above the radar (km), it
// returns the slant range (km) and elevation angle (degrees) of the
// beam that reaches that point. This is the core of the virtual
// azimuth/elevation/range cache (AzRanElevCache): each output grid
// cell's height layer and ground distance from the radar are known, so
// this recovers the "virtual" elevation a radar would need to reach
// that cell.
func BeamPathSurfaceHeightToRangeElev(surfaceKMs, heightKMs float64) (rangeKMs, elevDegs float64) {
	ae := EffectiveEarthRadiusKMs
	r := ae + heightKMs
	theta := surfaceKMs / ae

	rangeKMs = math.Sqrt(ae*ae + r*r - 2*ae*r*math.Cos(theta))
	num := r*math.Cos(theta) - ae
	den := r * math.Sin(theta)
	elevDegs = math.Atan2(num, den) * 180 / math.Pi
	return
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
