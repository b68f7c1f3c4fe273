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

// Package partition splits a full output grid into one or more
// sub-areas that Stage-1 routes its emitted values into, and joins
// partitioned tiles back into a single grid for downstream consumers.
package partition

import (
	"fmt"

	"github.com/wxfusion/fusion/geo"
)

// Type selects how a grid is partitioned.
type Type int

const (
	// None is a single partition equal to the full grid.
	None Type = iota
	// Tile splits the grid into a TilesX x TilesY uniform grid of
	// sub-areas, each expanded by a small shared fudge margin so a
	// value near a tile boundary is never silently dropped by both
	// neighboring tiles.
	Tile
)

// Info is either a single none-partition or an m x n tile partition
// of a full grid, plus a lookup from geographic coordinate to owning
// partition index.
type Info struct {
	Kind       Type
	FullGrid   geo.LLCoverageArea
	TilesX     int
	TilesY     int
	FudgeDegs  float64
	partitions []geo.LLCoverageArea
}

// NewNone returns a single-partition Info equal to the full grid.
func NewNone(full geo.LLCoverageArea) *Info {
	return &Info{Kind: None, FullGrid: full, partitions: []geo.LLCoverageArea{full}}
}

// NewTile splits full into tilesX x tilesY uniform partitions, each
// expanded by fudgeDegs on every side (clipped back to full's own
// bounds) to avoid edge loss at tile seams.
func NewTile(full geo.LLCoverageArea, tilesX, tilesY int, fudgeDegs float64) (*Info, error) {
	tiles, ok := full.Tile(tilesX, tilesY)
	if !ok {
		return nil, fmt.Errorf("partition: cannot split a %dx%d grid into %dx%d tiles", full.NumX, full.NumY, tilesX, tilesY)
	}
	if fudgeDegs > 0 {
		for i := range tiles {
			tiles[i] = expand(tiles[i], full, fudgeDegs)
		}
	}
	return &Info{Kind: Tile, FullGrid: full, TilesX: tilesX, TilesY: tilesY, FudgeDegs: fudgeDegs, partitions: tiles}, nil
}

// expand grows tile's bounding box by fudgeDegs on every side,
// clipped to full's bounds, and recomputes NumX/NumY from the new
// span at the tile's own spacing.
func expand(tile, full geo.LLCoverageArea, fudgeDegs float64) geo.LLCoverageArea {
	out := tile
	out.HeightsKM = append([]float64(nil), tile.HeightsKM...)

	north := tile.NWLatDegs + fudgeDegs
	if north > full.NWLatDegs {
		north = full.NWLatDegs
	}
	south := tile.SELatDegs - fudgeDegs
	if south < full.SELatDegs {
		south = full.SELatDegs
	}
	west := tile.NWLonDegs - fudgeDegs
	if west < full.NWLonDegs {
		west = full.NWLonDegs
	}
	east := tile.SELonDegs + fudgeDegs
	if east > full.SELonDegs {
		east = full.SELonDegs
	}

	out.NWLatDegs, out.SELatDegs = north, south
	out.NWLonDegs, out.SELonDegs = west, east
	if tile.LatSpacingDegs > 0 {
		out.NumX = int((east - west) / tile.LonSpacingDegs)
		out.NumY = int((north - south) / tile.LatSpacingDegs)
	}
	out.Sync()
	return out
}

// Size returns the number of partitions.
func (p *Info) Size() int { return len(p.partitions) }

// Partitions returns every partition's bounding area, in stable
// routing-index order.
func (p *Info) Partitions() []geo.LLCoverageArea { return p.partitions }

// PartitionNumber returns the index of the partition whose bounding
// box contains ll, or -1 if ll falls outside every partition (can
// happen at None's or a tile's exact grid edge due to floating-point
// comparisons; callers should treat -1 as "drop this value, log it").
func (p *Info) PartitionNumber(ll geo.LL) int {
	for i, part := range p.partitions {
		if ll.LatDegs <= part.NWLatDegs && ll.LatDegs >= part.SELatDegs &&
			ll.LonDegs >= part.NWLonDegs && ll.LonDegs <= part.SELonDegs {
			return i
		}
	}
	return -1
}
