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

// Package projcache holds the three per-(radar, output grid) caches
// that make Stage-1's per-frame sweep cheap: SinCosLatLonCache (the
// height-invariant great-circle angle), AzRanElevCache (the per-layer
// virtual azimuth/elevation/range), and LevelSameCache (the
// change-detector that lets the resolver be skipped when a cell's
// enclosing tilts have not changed since the last frame).
package projcache

import (
	"math"

	"github.com/wxfusion/fusion/geo"
)

// SinCosLatLonCache precomputes, for every cell of a numX*numY output
// grid, the sine and cosine of the great-circle central angle from the
// radar center to that cell. It is height-invariant, so one cache
// serves every height layer of a radar's output grid.
type SinCosLatLonCache struct {
	NumX, NumY int
	sin, cos   []float64
}

// NewSinCosLatLonCache builds the cache for a radar centered at
// (cLat, cLon) against outg, a grid already inset to the radar's
// range.
func NewSinCosLatLonCache(cLatDegs, cLonDegs float64, outg *geo.LLCoverageArea) *SinCosLatLonCache {
	c := &SinCosLatLonCache{NumX: outg.NumX, NumY: outg.NumY}
	n := outg.NumX * outg.NumY
	c.sin = make([]float64, n)
	c.cos = make([]float64, n)
	center := geo.LL{LatDegs: cLatDegs, LonDegs: cLonDegs}
	for y := 0; y < outg.NumY; y++ {
		for x := 0; x < outg.NumX; x++ {
			lat := outg.NWLatDegs - float64(y)*outg.LatSpacingDegs
			lon := outg.NWLonDegs + float64(x)*outg.LonSpacingDegs
			surfaceKMs := center.SurfaceDistanceToKMs(geo.LL{LatDegs: lat, LonDegs: lon})
			theta := surfaceKMs / geo.EffectiveEarthRadiusKMs
			i := y*outg.NumX + x
			c.sin[i] = math.Sin(theta)
			c.cos[i] = math.Cos(theta)
		}
	}
	return c
}

// SurfaceAngle returns the precomputed central angle (radians) for
// cell (x,y), recovered from the cached sin/cos via atan2 so callers
// needing the raw angle don't need to re-derive it from lat/lon.
func (c *SinCosLatLonCache) SurfaceAngle(x, y int) float64 {
	i := y*c.NumX + x
	return math.Atan2(c.sin[i], c.cos[i])
}

// SurfaceKMs returns the cached great-circle surface distance (km)
// from the radar center to cell (x,y).
func (c *SinCosLatLonCache) SurfaceKMs(x, y int) float64 {
	return c.SurfaceAngle(x, y) * geo.EffectiveEarthRadiusKMs
}

// AzRanElevCache precomputes, for one height layer, the virtual
// (azimuth, elevation, range) a radar would need to reach each output
// grid cell, using the cached surface distance and the standard
// 4/3-earth-radius beam-path equations.
type AzRanElevCache struct {
	NumX, NumY int
	azDegs     []float64
	elevDegs   []float64
	rangeKMs   []float64
}

// NewAzRanElevCache builds the per-layer cache for height layer
// heightKMs above the radar, using sc (the radar's height-invariant
// sin/cos cache) to recover each cell's ground bearing and surface
// distance, plus the radar's own center for the azimuth bearing.
func NewAzRanElevCache(cLatDegs, cLonDegs, heightKMs float64, outg *geo.LLCoverageArea, sc *SinCosLatLonCache) *AzRanElevCache {
	c := &AzRanElevCache{NumX: outg.NumX, NumY: outg.NumY}
	n := outg.NumX * outg.NumY
	c.azDegs = make([]float64, n)
	c.elevDegs = make([]float64, n)
	c.rangeKMs = make([]float64, n)

	for y := 0; y < outg.NumY; y++ {
		for x := 0; x < outg.NumX; x++ {
			i := y*outg.NumX + x
			lat := outg.NWLatDegs - float64(y)*outg.LatSpacingDegs
			lon := outg.NWLonDegs + float64(x)*outg.LonSpacingDegs

			surfaceKMs := sc.SurfaceKMs(x, y)
			rangeKMs, elevDegs := geo.BeamPathSurfaceHeightToRangeElev(surfaceKMs, heightKMs)
			az := bearingDegs(cLatDegs, cLonDegs, lat, lon)

			c.azDegs[i] = az
			c.elevDegs[i] = elevDegs
			c.rangeKMs[i] = rangeKMs
		}
	}
	return c
}

// At returns the virtual (azimuth degs, elevation degs, range km) at
// cell (x,y).
func (c *AzRanElevCache) At(x, y int) (azDegs, elevDegs, rangeKMs float64) {
	i := y*c.NumX + x
	return c.azDegs[i], c.elevDegs[i], c.rangeKMs[i]
}

func bearingDegs(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(theta+360, 360)
}

// tiltIDs is the 4-tilt enclosing set (lower, upper, 2nd-lower,
// 2nd-upper) identified by their RadialSet.ID, 0 meaning absent.
type tiltIDs struct {
	lower, upper, lower2, upper2 byte
}

// LevelSameCache remembers, per output grid cell, the enclosing-tilt
// identity observed the last time that cell was evaluated. It is the
// central Stage-1 optimization: Set reports whether anything changed,
// and callers use that to skip re-invoking the resolver when the
// answer could not have changed.
type LevelSameCache struct {
	NumX, NumY int
	ids        []tiltIDs
}

// NewLevelSameCache allocates a cache for a numX*numY grid, with every
// cell initially "unseen" (all IDs zero).
func NewLevelSameCache(numX, numY int) *LevelSameCache {
	return &LevelSameCache{NumX: numX, NumY: numY, ids: make([]tiltIDs, numX*numY)}
}

// Set records the enclosing tilt IDs observed for cell (x,y) and
// reports true iff any of the four IDs differs from what was recorded
// last time, meaning the resolver must be re-invoked.
func (c *LevelSameCache) Set(x, y int, lower, upper, lower2, upper2 byte) bool {
	i := y*c.NumX + x
	next := tiltIDs{lower, upper, lower2, upper2}
	changed := c.ids[i] != next
	c.ids[i] = next
	return changed
}
