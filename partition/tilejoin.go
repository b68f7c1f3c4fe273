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

package partition

import (
	"math"
	"time"

	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
)

// tileEntry is one (typeName, subType, time) key's in-progress tile
// cache: a fixed Size()-length slot vector, one slot per partition
// index, filled in as each partition's grid arrives.
type tileEntry struct {
	tiles []*data.LatLonGrid
	time  time.Time
}

func (e *tileEntry) full() bool {
	for _, t := range e.tiles {
		if t == nil {
			return false
		}
	}
	return true
}

// TileJoin composites per-partition LatLonGrid outputs, keyed by
// (typeName, subType, time), back into one full-grid LatLonGrid via a
// nearest-neighbor remap, once every partition's tile has arrived or
// the key has aged out of the history window.
type TileJoin struct {
	Info    *Info
	entries map[string]*tileEntry
}

// NewTileJoin creates a TileJoin over the given partitioning.
func NewTileJoin(info *Info) *TileJoin {
	return &TileJoin{Info: info, entries: make(map[string]*tileEntry)}
}

// Key derives the database key for one incoming tile, assuming (per
// the source's own assumption) each partition's output carries a
// matching, unique time for a given (typeName, subType).
func Key(typeName, subType string, t time.Time) string {
	return typeName + "\x00" + subType + "\x00" + t.UTC().Format(time.RFC3339Nano)
}

// Add places grid into the slot for its owning partition (found from
// centroid), creating the key's entry on first sight. It returns the
// entry's key and whether every partition slot is now filled.
// Centroid-outside-every-partition data is dropped (returns ok=false).
func (tj *TileJoin) Add(typeName, subType string, t time.Time, centroid geo.LL, grid *data.LatLonGrid) (key string, full bool, ok bool) {
	partNum := tj.Info.PartitionNumber(centroid)
	if partNum < 0 {
		return "", false, false
	}

	key = Key(typeName, subType, t)
	e, exists := tj.entries[key]
	if !exists {
		e = &tileEntry{tiles: make([]*data.LatLonGrid, tj.Info.Size()), time: t}
		tj.entries[key] = e
	}
	e.tiles[partNum] = grid
	return key, e.full(), true
}

// ExpiredKeys returns every resident key whose time is older than
// cutoff, for early (incomplete) finalization when the history window
// has passed.
func (tj *TileJoin) ExpiredKeys(cutoff time.Time) []string {
	var out []string
	for k, e := range tj.entries {
		if e.time.Before(cutoff) {
			out = append(out, k)
		}
	}
	return out
}

// FinalizeEntry composites every non-nil tile held for key into out
// via nearest-neighbor remap (missing tiles leave out's cells at
// data.DataUnavailable), then drops the entry. Does nothing if key is
// not resident.
func (tj *TileJoin) FinalizeEntry(key string, out *data.LatLonGrid) {
	e, ok := tj.entries[key]
	if !ok {
		return
	}

	out.Fill(data.DataUnavailable)
	for _, tile := range e.tiles {
		if tile == nil {
			continue
		}
		NearestNeighborRemap(tile, out)
	}
	delete(tj.entries, key)
}

// NearestNeighborRemap copies every non-background cell of src into
// the nearest cell of dst, by lat/lon coordinate rather than matching
// index -- the two grids need not share an origin or even spacing.
// This is the array remapper the source's RemapInto(out,
// NearestNeighbor) performs when stitching tile partitions back into
// the full grid.
func NearestNeighborRemap(src, dst *data.LatLonGrid) {
	for latIdx := 0; latIdx < src.NumLat(); latIdx++ {
		for lonIdx := 0; lonIdx < src.NumLon(); lonIdx++ {
			v := src.Get(latIdx, lonIdx)
			if v == data.DataUnavailable {
				continue
			}
			ll := src.LatLonOf(latIdx, lonIdx)

			dLat := int(math.Round((dst.NWLocation.LatDegs - ll.LatDegs) / dst.LatSpacing))
			dLon := int(math.Round((ll.LonDegs - dst.NWLocation.LonDegs) / dst.LonSpacing))
			if dLat < 0 || dLat >= dst.NumLat() || dLon < 0 || dLon >= dst.NumLon() {
				continue
			}
			dst.Set(dLat, dLon, v)
		}
	}
}
