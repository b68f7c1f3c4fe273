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

// Package geo implements the earth-model geometry primitives that the
// fusion engine projects radar and grid coordinates through: LL/LLH
// points, the LLCoverageArea grid description (with its mini grammar),
// and the 4/3-earth-radius beam path equations.
package geo

import (
	"math"
)

const earthRadiusKM = 6371.0088

// LL is a latitude/longitude point in degrees.
type LL struct {
	LatDegs, LonDegs float64
}

// SurfaceDistanceToKMs returns the great-circle surface distance in
// kilometers between p and other, via the haversine formula.
func (p LL) SurfaceDistanceToKMs(other LL) float64 {
	lat1 := p.LatDegs * math.Pi / 180
	lat2 := other.LatDegs * math.Pi / 180
	dLat := (other.LatDegs - p.LatDegs) * math.Pi / 180
	dLon := (other.LonDegs - p.LonDegs) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// LLH is a latitude/longitude/height point; height is kilometers
// above mean sea level.
type LLH struct {
	LL
	HeightKMs float64
}

// LLBearingDistance projects from (lat, lon) along bearing (degrees
// clockwise from north) for the given distance in kilometers, and
// returns the resulting point. This mirrors Project::LLBearingDistance
// used by LLCoverageArea.insetRadarRange.
func LLBearingDistance(latDegs, lonDegs, bearingDegs, distanceKMs float64) (outLatDegs, outLonDegs float64) {
	lat1 := latDegs * math.Pi / 180
	lon1 := lonDegs * math.Pi / 180
	brng := bearingDegs * math.Pi / 180
	d := distanceKMs / earthRadiusKM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return lat2 * 180 / math.Pi, lon2 * 180 / math.Pi
}
