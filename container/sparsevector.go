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

package container

import "unsafe"

// SparseVector maps a dense index (0..maxSize-1) to an optional value
// of type T via a compact lookup Bitset sized to the minimum number of
// bits needed to index the backing storage, plus a growing backing
// slice. This keeps CONUS-scale 3-D coverage arrays cheap when most
// cells never receive a value: an empty cell costs only
// SmallestBitsToStore(maxSize) bits rather than a full slice slot.
type SparseVector[T any] struct {
	lookup  *Bitset
	storage []T
	missing uint64
}

// NewSparseVector allocates a SparseVector over maxSize dense indices.
// Every index starts unset (missing).
func NewSparseVector[T any](maxSize int) *SparseVector[T] {
	bitsPerKey := SmallestBitsToStore(uint64(maxSize))
	sv := &SparseVector[T]{
		lookup: NewBitset(maxSize, bitsPerKey),
	}
	sv.lookup.SetAllBits()
	sv.missing = sv.lookup.MaxValue()
	return sv
}

// Get returns the value at dense index i and whether it was present.
func (s *SparseVector[T]) Get(i int) (T, bool) {
	offset := s.lookup.Get(i)
	if offset == s.missing {
		var zero T
		return zero, false
	}
	return s.storage[offset], true
}

// Set stores value at dense index i, replacing any prior value there.
func (s *SparseVector[T]) Set(i int, value T) {
	offset := s.lookup.Get(i)
	if offset == s.missing {
		offset = uint64(len(s.storage))
		s.lookup.Set(i, offset)
		s.storage = append(s.storage, value)
	} else {
		s.storage[offset] = value
	}
}

// Len returns the dense index range the vector covers.
func (s *SparseVector[T]) Len() int { return s.lookup.Size() }

// PercentFull reports how much of the dense index range has a stored
// value, as a percentage. Values near 100 indicate a dense, not
// sparse, vector would be more memory-efficient.
func (s *SparseVector[T]) PercentFull() float64 {
	if s.lookup.Size() == 0 {
		return 0
	}
	return float64(len(s.storage)) / float64(s.lookup.Size()) * 100
}

// DeepSize estimates resident memory in bytes, for diagnostics.
func (s *SparseVector[T]) DeepSize() int {
	var zero T
	return s.lookup.DeepSize() + len(s.storage)*int(unsafe.Sizeof(zero))
}
