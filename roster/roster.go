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

// Package roster coordinates which of several radars' Stage-1 output
// grids should actually be computed for each cell of the full
// coverage grid: it ingests every source's per-cell range cache,
// insertion-sort merges them into a small "nearest N" table per cell,
// and from that table derives one coverage bitmask per source.
package roster

import (
	"math"
	"sort"

	"github.com/wxfusion/fusion/container"
)

// MaxContributing is the number of nearest sources tracked per cell
// (FUSION_MAX_CONTRIBUTING in the source); sources beyond this count
// at a given cell never contribute and are not computed there.
const MaxContributing = 4

// nearestSlot is one of the MaxContributing (range, sourceID) pairs
// kept per cell, sorted ascending by range. id 0 is reserved to mean
// "empty slot".
type nearestSlot struct {
	id    int
	rangeKMs float64
}

// SourceInfo is the per-source bookkeeping Roster accumulates while
// ingesting range caches: a stable non-zero ID, the subgrid this
// source's cache covers, and the coverage mask being built for it.
type SourceInfo struct {
	ID             int
	Name           string
	StartX, StartY int
	NumX, NumY     int
	Mask           *container.Bitset
}

// Roster merges per-source range caches into per-cell nearest-N
// tables and derives one coverage bitmask per source, over a NumX x
// NumY x NumZ full grid.
type Roster struct {
	NumX, NumY, NumZ int

	nearest   [][MaxContributing]nearestSlot
	infos     []*SourceInfo
	nameToIdx map[string]int
}

// New allocates a Roster over the given full-grid dimensions, with
// every cell's nearest-N table empty: every slot's rangeKMs set to
// +Inf so insertNearest's ">=" scan always finds room for the first
// MaxContributing real (finite) ranges it sees, matching the source's
// NearestIDs() ctor setting range[] to
// std::numeric_limits<float>::max() before running the nearest
// algorithm.
func New(numX, numY, numZ int) *Roster {
	nearest := make([][MaxContributing]nearestSlot, numX*numY*numZ)
	for i := range nearest {
		for k := range nearest[i] {
			nearest[i][k].rangeKMs = math.Inf(1)
		}
	}
	r := &Roster{
		NumX: numX, NumY: numY, NumZ: numZ,
		nearest:   nearest,
		nameToIdx: make(map[string]int),
	}
	// id 0 is reserved as "no source"; register a padding entry so
	// real sources start at id 1, matching the source's reserved-zero
	// convention.
	r.infos = append(r.infos, &SourceInfo{})
	return r
}

func (r *Roster) index3D(x, y, z int) int {
	return (z*r.NumY+y)*r.NumX + x
}

// Ingest merges one source's per-cell range readings (row-major over
// its startX..startX+numX, startY..startY+numY, all Z) into the
// roster's nearest-N tables, registering the source (with a
// freshly-cleared mask) on first sight. A reading that is not a
// positive range marks a cell the source does not cover and is not
// inserted.
func (r *Roster) Ingest(sourceName string, startX, startY, numX, numY int, ranges []float64) *SourceInfo {
	info, ok := r.nameToIdx[sourceName]
	var src *SourceInfo
	if ok {
		src = r.infos[info]
	} else {
		id := len(r.infos)
		src = &SourceInfo{
			ID: id, Name: sourceName,
			StartX: startX, StartY: startY, NumX: numX, NumY: numY,
			Mask: container.NewBitset(numX*numY*r.NumZ, 1),
		}
		r.infos = append(r.infos, src)
		r.nameToIdx[sourceName] = id
	}

	counter := 0
	for z := 0; z < r.NumZ; z++ {
		for y := startY; y < startY+numY; y++ {
			for x := startX; x < startX+numX; x++ {
				v := ranges[counter]
				counter++
				if !(v > 0) {
					continue
				}
				r.insertNearest(r.index3D(x, y, z), v, src.ID)
			}
		}
	}
	return src
}

// insertNearest does the linear-scan insertion sort into cell i's
// nearest-N table: find the first slot whose range is greater than v, shift
// everything from there rightward (dropping whatever falls off the
// end), and place (v, id) at that slot. Ties (v equal to an existing
// slot's range) insert after the existing entry, matching the
// source's ">=" comparison.
func (r *Roster) insertNearest(i int, v float64, id int) {
	c := &r.nearest[i]
	index := 0
	for index < MaxContributing && v >= c[index].rangeKMs {
		index++
	}
	if index >= MaxContributing {
		return
	}
	for k := MaxContributing - 1; k > index; k-- {
		c[k] = c[k-1]
	}
	c[index] = nearestSlot{id: id, rangeKMs: v}
}

// GenerateMasks rebuilds every source's coverage mask from the current
// nearest-N tables: a source's mask bit is set at a cell iff that
// source appears anywhere in the cell's (non-empty) nearest-N slots.
// Because slots are insertion-sorted by range with id 0 meaning empty,
// the first empty slot in a cell implies every slot after it is also
// empty.
func (r *Roster) GenerateMasks() {
	for _, s := range r.infos[1:] {
		s.Mask.ClearAllBits()
	}

	for z := 0; z < r.NumZ; z++ {
		for y := 0; y < r.NumY; y++ {
			for x := 0; x < r.NumX; x++ {
				c := r.nearest[r.index3D(x, y, z)]
				for k := 0; k < MaxContributing; k++ {
					if c[k].id == 0 {
						break
					}
					info := r.infos[c[k].id]
					lx := x - info.StartX
					ly := y - info.StartY
					li := (z*info.NumY+ly)*info.NumX + lx
					info.Mask.Set(li, 1)
				}
			}
		}
	}
}

// Sources returns every registered source, in registration order
// (excluding the reserved id-0 padding entry).
func (r *Roster) Sources() []*SourceInfo {
	return r.infos[1:]
}

// NearestAt returns the sorted (by range ascending) non-empty
// (sourceID, range) pairs for cell (x,y,z), for diagnostics and tests.
func (r *Roster) NearestAt(x, y, z int) []struct {
	SourceID int
	RangeKMs float64
} {
	c := r.nearest[r.index3D(x, y, z)]
	out := make([]struct {
		SourceID int
		RangeKMs float64
	}, 0, MaxContributing)
	for _, slot := range c {
		if slot.id == 0 {
			continue
		}
		out = append(out, struct {
			SourceID int
			RangeKMs float64
		}{slot.id, slot.rangeKMs})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RangeKMs < out[j].RangeKMs })
	return out
}
