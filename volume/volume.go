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

// Package volume holds the virtual elevation volume: the small,
// elevation-ordered collection of a single radar's live tilts that
// Stage-1 queries for the 2-4 RadialSets enclosing a cell's virtual
// elevation angle.
package volume

import (
	"time"

	"github.com/wxfusion/fusion/data"
)

// tiltRef is one live tilt together with its links to its
// elevation-order neighbors, mirroring the cellRef/cellList linked-list
// idiom: a doubly linked list kept in elevation order, with an index
// map for O(1) lookup and eviction by ID.
type tiltRef struct {
	rs             *data.RadialSet
	next, previous *tiltRef
	addedAt        time.Time
}

// Volume is the ordered-by-elevation tilt collection for one radar.
// Elevations are unique within a Volume and RadialSet IDs are unique
// across its live tilts.
type Volume struct {
	radarName string
	first     *tiltRef
	len       int
	byID      map[byte]*tiltRef
}

// New constructs an empty Volume. The first RadialSet added fixes the
// radar name every subsequent Add must match.
func New() *Volume {
	return &Volume{byID: make(map[byte]*tiltRef)}
}

// RadarName returns the radar name this volume was first populated
// with, or "" if still empty.
func (v *Volume) RadarName() string { return v.radarName }

// Len returns the number of live tilts.
func (v *Volume) Len() int { return v.len }

// Add inserts rs in elevation order, replacing any existing tilt at
// the same elevation. A RadialSet whose RadarName does not match the
// volume's first tilt is rejected per the "reject a tilt belonging to
// a different radar" failure semantics.
func (v *Volume) Add(rs *data.RadialSet) bool {
	if v.radarName == "" {
		v.radarName = rs.RadarName
	} else if rs.RadarName != v.radarName {
		return false
	}

	// Replace-by-elevation: if an existing tilt shares this elevation,
	// evict it first so the volume never holds two tilts at the same
	// angle.
	for c := v.first; c != nil; c = c.next {
		if c.rs.ElevDegs == rs.ElevDegs {
			v.evict(c)
			break
		}
	}

	nr := &tiltRef{rs: rs, addedAt: now()}
	v.byID[rs.ID] = nr

	if v.first == nil || rs.ElevDegs < v.first.rs.ElevDegs {
		nr.next = v.first
		if v.first != nil {
			v.first.previous = nr
		}
		v.first = nr
		v.len++
		return true
	}

	c := v.first
	for c.next != nil && c.next.rs.ElevDegs < rs.ElevDegs {
		c = c.next
	}
	nr.next = c.next
	nr.previous = c
	if c.next != nil {
		c.next.previous = nr
	}
	c.next = nr
	v.len++
	return true
}

// evict removes c from the list and ID index without decrementing a
// caller's in-progress iteration.
func (v *Volume) evict(c *tiltRef) {
	if c.previous != nil {
		c.previous.next = c.next
	} else {
		v.first = c.next
	}
	if c.next != nil {
		c.next.previous = c.previous
	}
	delete(v.byID, c.rs.ID)
	v.len--
}

// now is a seam so tests can avoid wall-clock flakiness; production
// code always calls the real clock.
var now = time.Now

// Expire removes every tilt older than maxAge as of asOf. Eviction of
// the lowest/highest tilt invalidates only the LevelSameCache entries
// that referenced its ID: since that ID is no longer considered "seen"
// by Set (it is simply absent from future GetSpreadL results), the next
// cache comparison naturally detects the change, so Expire itself does
// not need to touch projcache.
func (v *Volume) Expire(asOf time.Time, maxAge time.Duration) {
	c := v.first
	for c != nil {
		next := c.next
		if asOf.Sub(c.addedAt) > maxAge {
			v.evict(c)
		}
		c = next
	}
}

// Enclosing is the result of GetSpreadL: the up-to-four tilts
// enclosing a query elevation. Any field may be nil if no such
// neighbor exists (e.g. the query elevation is above every live tilt).
type Enclosing struct {
	Lower, Upper   *data.RadialSet
	Lower2, Upper2 *data.RadialSet
}

// GetSpreadL performs the linear scan for the tilts enclosing
// elevDegs: Lower is the highest-elevation tilt at or below elevDegs,
// Upper is the lowest-elevation tilt above it, and Lower2/Upper2 are
// their next-further neighbors (used by the lak resolver's
// second-neighbor spread fallback). The scan is linear because volumes
// are small (rarely more than 20 tilts), matching the source's own
// comment that a linear scan over an ordered, small N beats the
// complexity of a binary search here.
func (v *Volume) GetSpreadL(elevDegs float64) Enclosing {
	var e Enclosing
	var lowerRef, upperRef *tiltRef

	for c := v.first; c != nil; c = c.next {
		if c.rs.ElevDegs <= elevDegs {
			lowerRef = c
		} else if upperRef == nil {
			upperRef = c
		}
	}

	if lowerRef != nil {
		e.Lower = lowerRef.rs
		if lowerRef.previous != nil {
			e.Lower2 = lowerRef.previous.rs
		}
	}
	if upperRef != nil {
		e.Upper = upperRef.rs
		if upperRef.next != nil {
			e.Upper2 = upperRef.next.rs
		}
	}
	return e
}

// Tilts returns the live tilts in elevation order, lowest first.
func (v *Volume) Tilts() []*data.RadialSet {
	out := make([]*data.RadialSet, 0, v.len)
	for c := v.first; c != nil; c = c.next {
		out = append(out, c.rs)
	}
	return out
}
