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

// StaticVector stores a fixed-size vector of numeric values, trimmed
// to the smallest number of bits that can hold maxValue if trim is
// requested; otherwise it falls back to a plain slice of float64s.
// This mirrors the factory choice in the original C++ StaticVector
// between a Bitset-backed and a std::vector-backed implementation.
type StaticVector struct {
	bitset *Bitset
	plain  []float64
	size   int
}

// NewStaticVector returns a StaticVector of length size. If trim is
// true and maxValue is small enough to benefit from packing, the
// vector is Bitset-backed with SmallestBitsToStore(maxValue) bits per
// element; otherwise it is backed by a plain float64 slice.
func NewStaticVector(size int, maxValue uint64, trim bool) *StaticVector {
	sv := &StaticVector{size: size}
	if trim {
		bits := SmallestBitsToStore(maxValue)
		if bits < 64 {
			sv.bitset = NewBitset(size, bits)
			return sv
		}
	}
	sv.plain = make([]float64, size)
	return sv
}

// Size returns the number of elements.
func (s *StaticVector) Size() int { return s.size }

// Get returns the element at index i.
func (s *StaticVector) Get(i int) float64 {
	if s.bitset != nil {
		return float64(s.bitset.Get(i))
	}
	return s.plain[i]
}

// Set stores v at index i.
func (s *StaticVector) Set(i int, v float64) {
	if s.bitset != nil {
		s.bitset.Set(i, uint64(v))
		return
	}
	s.plain[i] = v
}
