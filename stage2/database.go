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

// Package stage2 is the point-cloud merge database: every Stage-1
// source's resolved (value, weight) observations land here keyed by
// source and by destination cell, and mergeTo folds everything
// currently stored at a cell into one weighted-average moment value
// for the output grid.
package stage2

import (
	"time"

	"github.com/wxfusion/fusion/container"
	"github.com/wxfusion/fusion/data"
)

// valueObs is one stored (value, weight) observation, timestamped by
// the ingest that produced it so time-based expiry and union-merge
// restoration can reason about it.
type valueObs struct {
	X, Y  int
	Value, Weight float64
	Time  time.Time
}

// missingObs is one stored explicit-missing mark.
type missingObs struct {
	X, Y int
	Time time.Time
}

// sourceStore is one radar/typeName source's currently-resident
// observations, one slice per Z layer.
type sourceStore struct {
	Name     string
	TypeName string
	Units    string
	Values   [][]valueObs
	Missing  [][]missingObs
}

// Database is the Stage-2 point-cloud store: a per-source table of
// resident observations plus two cell-indexed tracking structures
// shared across all sources -- haves (cells touched by the frame
// currently being ingested) and missings (the most recent time any
// source reported a cell as explicitly masked).
type Database struct {
	NumX, NumY, NumZ int

	sources map[string]*sourceStore
	order   []string

	haves    *container.Bitset1
	missings []time.Time

	purged int
}

// NewDatabase allocates an empty point-cloud store over a NumX x NumY
// x NumZ grid.
func NewDatabase(numX, numY, numZ int) *Database {
	return &Database{
		NumX: numX, NumY: numY, NumZ: numZ,
		sources:  make(map[string]*sourceStore),
		haves:    container.NewBitset1(numX * numY * numZ),
		missings: make([]time.Time, numX*numY*numZ),
	}
}

func (d *Database) index3D(x, y, z int) int {
	return (z*d.NumY+y)*d.NumX + x
}

func (d *Database) inBounds(x, y, z int) bool {
	return x >= 0 && x < d.NumX && y >= 0 && y < d.NumY && z >= 0 && z < d.NumZ
}

func (d *Database) sourceFor(name, typeName, units string) *sourceStore {
	if s, ok := d.sources[name]; ok {
		return s
	}
	s := &sourceStore{
		Name: name, TypeName: typeName, Units: units,
		Values:  make([][]valueObs, d.NumZ),
		Missing: make([][]missingObs, d.NumZ),
	}
	d.sources[name] = s
	d.order = append(d.order, name)
	return s
}

// PurgedCount returns the number of resident observations dropped so
// far by union-merge expiry or TimePurge, for diagnostics.
func (d *Database) PurgedCount() int { return d.purged }

// Ingest merges one source's new frame (rebased to the full-grid
// coordinate system by xBase/yBase) into the database, at obsTime,
// expiring anything this source previously held that the new frame
// didn't touch and that is older than cutoff.
//
// Union-merge: a cell this frame touched (haves=1) always gets the
// new frame's point, replacing whatever the source held there before.
// A cell this frame did NOT touch (haves=0) keeps its prior point if
// that point's time is >= cutoff ("restored"); older points are
// dropped.
func (d *Database) Ingest(t *Table, obsTime, cutoff time.Time) {
	src := d.sourceFor(t.RadarName, t.TypeName, t.Units)

	d.haves.ClearAllBits()

	newValues := make([][]valueObs, d.NumZ)
	newMissing := make([][]missingObs, d.NumZ)

	for _, v := range t.Values {
		x, y, z := v.X+t.XBase, v.Y+t.YBase, v.Z
		if !d.inBounds(x, y, z) {
			continue
		}
		newValues[z] = append(newValues[z], valueObs{X: x, Y: y, Value: v.Value, Weight: v.Weight, Time: obsTime})
		d.haves.Set1(d.index3D(x, y, z))
	}

	for _, m := range t.Missings {
		z := m.Z
		for k := 0; k < m.RunLength; k++ {
			x, y := m.X+k+t.XBase, m.Y+t.YBase
			if !d.inBounds(x, y, z) {
				continue
			}
			newMissing[z] = append(newMissing[z], missingObs{X: x, Y: y, Time: obsTime})
			idx := d.index3D(x, y, z)
			d.haves.Set1(idx)
			if obsTime.After(d.missings[idx]) {
				d.missings[idx] = obsTime
			}
		}
	}

	for z := 0; z < d.NumZ; z++ {
		kept := src.Values[z][:0]
		for _, o := range src.Values[z] {
			idx := d.index3D(o.X, o.Y, z)
			if d.haves.Get(idx) {
				continue // replaced by this frame's new point
			}
			if o.Time.Before(cutoff) {
				d.purged++
				continue
			}
			kept = append(kept, o)
		}
		src.Values[z] = append(kept, newValues[z]...)

		keptM := src.Missing[z][:0]
		for _, o := range src.Missing[z] {
			idx := d.index3D(o.X, o.Y, z)
			if d.haves.Get(idx) {
				continue
			}
			if o.Time.Before(cutoff) {
				d.purged++
				continue
			}
			keptM = append(keptM, o)
		}
		src.Missing[z] = append(keptM, newMissing[z]...)
	}
}

// TimePurge drops every resident observation older than now-window
// across all sources, independent of any particular ingest's cutoff.
func (d *Database) TimePurge(now time.Time, window time.Duration) {
	oldest := now.Add(-window)
	for _, name := range d.order {
		src := d.sources[name]
		for z := 0; z < d.NumZ; z++ {
			kept := src.Values[z][:0]
			for _, o := range src.Values[z] {
				if o.Time.Before(oldest) {
					d.purged++
					continue
				}
				kept = append(kept, o)
			}
			src.Values[z] = kept

			keptM := src.Missing[z][:0]
			for _, o := range src.Missing[z] {
				if o.Time.Before(oldest) {
					d.purged++
					continue
				}
				keptM = append(keptM, o)
			}
			src.Missing[z] = keptM
		}
	}
}

// MergeTo finalizes every z-layer of cache from the database's
// currently-resident observations: each cell's output is the
// weight-weighted average of every source's value at that cell
// (sum(value*weight)/sum(weight)), or a mask sentinel when no source
// contributed weight there. offsetX/offsetY translate full-grid
// coordinates into cache's own local index space, so a partition's
// cache can be merged from the full-grid-indexed database.
func (d *Database) MergeTo(cache *data.LLHGridN2D, cutoff time.Time, offsetX, offsetY int) {
	heights := cache.HeightsM()
	for z := 0; z < d.NumZ && z < len(heights); z++ {
		layer := cache.LatLonGrid(heights[z])
		numLat, numLon := layer.NumLat(), layer.NumLon()

		sum := make([][]float64, numLat)
		wsum := make([][]float64, numLat)
		for i := range sum {
			sum[i] = make([]float64, numLon)
			wsum[i] = make([]float64, numLon)
		}

		for _, name := range d.order {
			src := d.sources[name]
			for _, o := range src.Values[z] {
				lx, ly := o.X-offsetX, o.Y-offsetY
				if lx < 0 || lx >= numLon || ly < 0 || ly >= numLat {
					continue
				}
				sum[ly][lx] += o.Value * o.Weight
				wsum[ly][lx] += o.Weight
			}
		}

		for y := 0; y < numLat; y++ {
			for x := 0; x < numLon; x++ {
				if wsum[y][x] < 1e-7 {
					idx := d.index3D(x+offsetX, y+offsetY, z)
					if d.inBounds(x+offsetX, y+offsetY, z) && !d.missings[idx].IsZero() && !d.missings[idx].Before(cutoff) {
						layer.Set(y, x, data.MissingData)
					} else {
						layer.Set(y, x, data.DataUnavailable)
					}
					continue
				}
				layer.Set(y, x, sum[y][x]/wsum[y][x])
			}
		}
	}
}
