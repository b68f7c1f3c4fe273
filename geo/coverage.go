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

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxHeightsAllowed caps a parsed height list, matching the source
// grammar's integrity check against runaway incr/upto tables.
const maxHeightsAllowed = 100

// heightTable is a named incr/upto height-generation profile, as used
// by the W2-style grid language's h(low,high,profile) clause.
type heightTable struct {
	incr []int
	upto []int
}

var namedHeightTables = map[string]heightTable{
	"ARPS":       {incr: []int{250, 500, 1000, 1000}, upto: []int{4000, 9000, 18000, 99999}},
	"WISH":       {incr: []int{250, 500, 1000, 2000}, upto: []int{3000, 9000, 16000, 99999}},
	"NMQWD":      {incr: []int{250, 500, 1000}, upto: []int{3000, 9000, 99999}},
	"Uniform1Km": {incr: []int{1000}, upto: []int{99999}},
	"XVision":    {incr: []int{500, 1000}, upto: []int{99999}},
}

// LLCoverageArea is a rectangular lat/lon grid description: a
// northwest/southeast bounding box, spacing, an offset into a parent
// grid, cell counts, and an ordered list of height layers in
// kilometers.
type LLCoverageArea struct {
	NWLatDegs, NWLonDegs float64
	SELatDegs, SELonDegs float64
	LatSpacingDegs       float64
	LonSpacingDegs       float64
	StartX, StartY       int
	NumX, NumY           int
	HeightsKM            []float64

	// LatKMPerPixel and LonKMPerPixel are derived by Sync from the
	// cross mid-point surface distance across the area.
	LatKMPerPixel, LonKMPerPixel float64

	// heightParse is the canonicalized height-clause string used by
	// GetParseUniqueString, distinguishing e.g. a named profile from a
	// numerically-equal explicit increment.
	heightParse string
}

// NumZ returns the number of height layers.
func (g *LLCoverageArea) NumZ() int { return len(g.HeightsKM) }

// Sync recomputes LatKMPerPixel/LonKMPerPixel from the cross mid-point
// surface distances of the area. Must be called after any corner or
// spacing mutation.
func (g *LLCoverageArea) Sync() {
	midLat := (g.NWLatDegs - g.SELatDegs) / 2.0
	midLon := (g.SELonDegs - g.NWLonDegs) / 2.0

	midTop := LL{g.NWLatDegs, midLon}
	midBot := LL{g.SELatDegs, midLon}
	leftMid := LL{midLat, g.NWLonDegs}
	rightMid := LL{midLat, g.SELonDegs}

	d1 := midTop.SurfaceDistanceToKMs(midBot)
	d2 := leftMid.SurfaceDistanceToKMs(rightMid)

	if g.NumY > 0 {
		g.LatKMPerPixel = math.Abs(d1 / float64(g.NumY))
	}
	if g.NumX > 0 {
		g.LonKMPerPixel = math.Abs(d2 / float64(g.NumX))
	}
}

// Set assigns the grid's corners, spacing and cell counts directly,
// swapping corners if given in the wrong order, then syncs derived
// fields.
func (g *LLCoverageArea) Set(northDegs, westDegs, southDegs, eastDegs, latSpacing, lonSpacing float64, numX, numY int) {
	if northDegs < southDegs {
		northDegs, southDegs = southDegs, northDegs
	}
	if eastDegs < westDegs {
		eastDegs, westDegs = westDegs, eastDegs
	}
	g.NWLatDegs, g.NWLonDegs = northDegs, westDegs
	g.SELatDegs, g.SELonDegs = southDegs, eastDegs
	g.LatSpacingDegs, g.LonSpacingDegs = latSpacing, lonSpacing
	g.StartX, g.StartY = 0, 0
	g.NumX, g.NumY = numX, numY
	g.Sync()
}

// Equal reports structural equality, excluding the height-parse
// string (per the source's operator==, which intentionally omits it).
func (g *LLCoverageArea) Equal(other *LLCoverageArea) bool {
	if g.NWLatDegs != other.NWLatDegs || g.NWLonDegs != other.NWLonDegs ||
		g.SELatDegs != other.SELatDegs || g.SELonDegs != other.SELonDegs ||
		g.LatSpacingDegs != other.LatSpacingDegs || g.LonSpacingDegs != other.LonSpacingDegs ||
		g.StartX != other.StartX || g.StartY != other.StartY ||
		g.NumX != other.NumX || g.NumY != other.NumY ||
		g.LatKMPerPixel != other.LatKMPerPixel || g.LonKMPerPixel != other.LonKMPerPixel ||
		len(g.HeightsKM) != len(other.HeightsKM) {
		return false
	}
	for i := range g.HeightsKM {
		if g.HeightsKM[i] != other.HeightsKM[i] {
			return false
		}
	}
	return true
}

// InsetRadarRange clips the area to the bounding box of a circular
// radar range around (cLat, cLon), independently insetting each of
// the four sides. A radar whose range circle does not reach a side
// leaves that side unchanged; a radar entirely outside the grid
// produces NumX==0 or NumY==0.
func (g *LLCoverageArea) InsetRadarRange(cLatDegs, cLonDegs, rangeKMs float64) LLCoverageArea {
	out := *g
	out.HeightsKM = append([]float64(nil), g.HeightsKM...)

	north, _ := LLBearingDistance(cLatDegs, cLonDegs, 0, rangeKMs)
	_, east := LLBearingDistance(cLatDegs, cLonDegs, 90, rangeKMs)
	south, _ := LLBearingDistance(cLatDegs, cLonDegs, 180, rangeKMs)
	_, west := LLBearingDistance(cLatDegs, cLonDegs, 270, rangeKMs)

	if g.NWLatDegs > north { // inset the top
		deltaY := int(math.Floor((out.NWLatDegs - north) / g.LatSpacingDegs))
		out.StartY += deltaY
		if out.NumY >= deltaY {
			out.NumY -= deltaY
		} else {
			out.NumY = 0
		}
		out.NWLatDegs -= float64(out.StartY) * g.LatSpacingDegs
	}

	if west > g.NWLonDegs { // inset the left
		deltaX := int(math.Floor((west - out.NWLonDegs) / g.LonSpacingDegs))
		out.StartX += deltaX
		if out.NumX >= deltaX {
			out.NumX -= deltaX
		} else {
			out.NumX = 0
		}
		out.NWLonDegs += float64(out.StartX) * g.LonSpacingDegs
	}

	if south > g.SELatDegs { // inset the bottom
		deltaY := int(math.Floor((south - out.SELatDegs) / g.LatSpacingDegs))
		if out.NumY >= deltaY {
			out.NumY -= deltaY
		} else {
			out.NumY = 0
		}
		out.SELatDegs = out.NWLatDegs - float64(out.NumY)*g.LatSpacingDegs
	}

	if g.SELonDegs > east { // inset the right
		deltaX := int(math.Floor((out.SELonDegs - east) / g.LonSpacingDegs))
		if out.NumX >= deltaX {
			out.NumX -= deltaX
		} else {
			out.NumX = 0
		}
		out.SELonDegs = out.NWLonDegs + float64(out.NumX)*g.LonSpacingDegs
	}

	out.Sync()
	return out
}

// Tile splits the area into x*y rectangular sub-areas, row-major
// north-to-south then west-to-east, distributing any cells left over
// from integer division across the first tiles in each row/column.
// Refuses (returns false, nil) if x or y is <= 0 or larger than the
// area's own cell counts.
func (g *LLCoverageArea) Tile(x, y int) ([]LLCoverageArea, bool) {
	if x < 1 || y < 1 {
		return nil, false
	}
	if g.NumX/x < 1 || g.NumY/y < 1 {
		return nil, false
	}

	xBaseSize := g.NumX / x
	yBaseSize := g.NumY / y
	extraY := g.NumY % y

	var tiles []LLCoverageArea
	cellY := 0
	for atY := 0; atY < y; atY++ {
		cellYSize := yBaseSize
		if extraY > 0 {
			cellYSize++
			extraY--
		}
		newNWLat := g.NWLatDegs - float64(cellY)*g.LatSpacingDegs
		newSELat := newNWLat - float64(cellYSize)*g.LatSpacingDegs

		cellX := 0
		extraX := g.NumX % x
		for atX := 0; atX < x; atX++ {
			cellXSize := xBaseSize
			if extraX > 0 {
				cellXSize++
				extraX--
			}
			newNWLon := g.NWLonDegs + float64(cellX)*g.LonSpacingDegs
			newSELon := newNWLon + float64(cellXSize)*g.LonSpacingDegs

			tile := *g
			tile.HeightsKM = append([]float64(nil), g.HeightsKM...)
			tile.StartX, tile.StartY = cellX, cellY
			tile.NumX, tile.NumY = cellXSize, cellYSize
			tile.NWLatDegs, tile.SELatDegs = newNWLat, newSELat
			tile.NWLonDegs, tile.SELonDegs = newNWLon, newSELon
			tile.Sync()
			tiles = append(tiles, tile)

			cellX += cellXSize
		}
		cellY += cellYSize
	}
	return tiles, true
}

// GetParseUniqueString returns a stable fingerprint string identifying
// this area's geometry (corners, spacing, offsets, cell counts, and
// the original height-parse clause), used to key the roster's
// per-grid cache directory.
func (g *LLCoverageArea) GetParseUniqueString() string {
	const d = "_"
	return fmt.Sprintf("%v%s%v%s%v%s%v%s%v%s%v%s%v%s%v%s%v%s%v%s%v%s%s",
		g.NWLatDegs, d, g.NWLonDegs, d, g.SELatDegs, d, g.SELonDegs, d,
		g.LatSpacingDegs, d, g.LonSpacingDegs, d,
		g.StartX, d, g.StartY, d, g.NumX, d, g.NumY, d, g.NumZ(), d,
		g.heightParse)
}

// ParseGrid parses the grid language string
// "nw(lat,lon) se(lat,lon) s(dLat,dLon) h(lowKm,highKm,profile)" (in
// any clause order) into an LLCoverageArea. h() is optional; if
// omitted the area is 2-D with a single 0 km height layer.
func ParseGrid(grid string) (*LLCoverageArea, error) {
	functions, err := parseFunctions(grid)
	if err != nil {
		return nil, err
	}
	if len(functions) < 1 {
		return nil, fmt.Errorf("geo: unrecognized grid language: %q", grid)
	}

	nwLat, nwLon := 55.0, -130.0
	seLat, seLon := 20.0, -60.0
	latSpacing, lonSpacing := 0.01, 0.01
	var heights []float64
	var haveNW, haveSE, haveS, haveH bool
	var heightParse string

	for f, p := range functions {
		switch f {
		case "nw":
			lat, lon, err := parseDegrees(p)
			if err != nil {
				return nil, fmt.Errorf("geo: nw: %w", err)
			}
			nwLat, nwLon = lat, lon
			haveNW = true
		case "se":
			lat, lon, err := parseDegrees(p)
			if err != nil {
				return nil, fmt.Errorf("geo: se: %w", err)
			}
			seLat, seLon = lat, lon
			haveSE = true
		case "s":
			lat, lon, err := parseDegrees(p)
			if err != nil {
				return nil, fmt.Errorf("geo: s: %w", err)
			}
			latSpacing, lonSpacing = lat, lon
			haveS = true
		case "h":
			hs, parse, err := parseHeights(p)
			if err != nil {
				return nil, fmt.Errorf("geo: h: %w", err)
			}
			heights = hs
			heightParse = parse
			haveH = true
		default:
			return nil, fmt.Errorf("geo: unrecognized grid clause %q", f)
		}
	}

	if !haveNW {
		return nil, fmt.Errorf("geo: missing nw() grid corner")
	}
	if !haveSE {
		return nil, fmt.Errorf("geo: missing se() grid corner")
	}
	if !haveS {
		return nil, fmt.Errorf("geo: missing s() grid spacing")
	}
	if !haveH {
		heights = []float64{0.0}
	}

	if nwLat <= seLat {
		return nil, fmt.Errorf("geo: nw latitude must be greater than se latitude")
	}
	if nwLon >= seLon {
		return nil, fmt.Errorf("geo: nw longitude must be less than se longitude")
	}

	x := int(math.Abs((seLon - nwLon) / lonSpacing))
	y := int(math.Abs((nwLat - seLat) / latSpacing))

	g := &LLCoverageArea{}
	g.Set(nwLat, nwLon, seLat, seLon, latSpacing, lonSpacing, x, y)
	g.HeightsKM = heights
	g.heightParse = heightParse
	return g, nil
}

// parseFunctions runs the grid-language DFA: "function(params) function(params) ..."
func parseFunctions(grid string) (map[string]string, error) {
	functions := make(map[string]string)
	var function, params strings.Builder
	state := 0
	for _, c := range grid {
		switch state {
		case 0:
			if c == '(' {
				state = 1
			} else {
				function.WriteRune(c)
			}
		case 1:
			if c == ')' {
				state = 0
				functions[strings.TrimSpace(function.String())] = strings.TrimSpace(params.String())
				function.Reset()
				params.Reset()
			} else {
				params.WriteRune(c)
			}
		}
	}
	if state == 1 {
		functions[strings.TrimSpace(function.String())] = strings.TrimSpace(params.String())
	}
	return functions, nil
}

func parseDegrees(p string) (a, b float64, err error) {
	pieces := strings.Split(p, ",")
	if len(pieces) != 2 {
		return 0, 0, fmt.Errorf("expected 2 comma-separated values, got %q", p)
	}
	a, err = strconv.ParseFloat(strings.TrimSpace(pieces[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	b, err = strconv.ParseFloat(strings.TrimSpace(pieces[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// parseHeights parses an h() clause "lowKm,highKm,profile" into a
// sorted-ascending list of heights in kilometers, and returns the
// canonical string used for fingerprinting.
func parseHeights(p string) ([]float64, string, error) {
	pieces := strings.Split(p, ",")
	if len(pieces) != 3 {
		return nil, "", fmt.Errorf("expected 3 comma-separated values, got %q", p)
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(pieces[0]), 64)
	if err != nil {
		return nil, "", err
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(pieces[1]), 64)
	if err != nil {
		return nil, "", err
	}
	low *= 1000 // meters
	high *= 1000
	if high < low {
		low, high = high, low
	}

	const d = "_"
	var hs strings.Builder
	fmt.Fprintf(&hs, "%v%s%v%s", low, d, high, d)

	var incr, upto []int
	key := strings.TrimSpace(pieces[2])
	if table, ok := namedHeightTables[key]; ok {
		incr, upto = table.incr, table.upto
		hs.WriteString(key)
	} else {
		up, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return nil, "", fmt.Errorf("unrecognized height profile %q", key)
		}
		incrInt := int(up * 1000.0)
		incr = []int{incrInt}
		upto = []int{99999}
		fmt.Fprintf(&hs, "%d%s%d", incrInt, d, 99999)
	}

	heightsM, err := generateHeightList(low, high, incr, upto)
	if err != nil {
		return nil, "", err
	}
	heightsKM := make([]float64, len(heightsM))
	for i, h := range heightsM {
		heightsKM[i] = h / 1000.0
	}
	return heightsKM, hs.String(), nil
}

func generateHeightList(low, high float64, incr, upto []int) ([]float64, error) {
	var heights []float64
	atHeight := low
	done := false
	count := 0
	for !done {
		count++
		if count >= maxHeightsAllowed {
			return nil, fmt.Errorf("generated more than %d heights from grid spec", count)
		}
		heights = append(heights, atHeight)
		for i := range incr {
			if atHeight < float64(upto[i]) {
				atHeight += float64(incr[i])
				if atHeight > high {
					done = true
				}
				break
			}
		}
	}
	return heights, nil
}
