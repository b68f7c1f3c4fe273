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

// Package data implements the fusion engine's DataType hierarchy:
// DataGrid (named dimensions, typed arrays, and an attribute bag),
// RadialSet (polar), and LatLonGrid/LatLonHeightGrid/LLHGridN2D
// (Cartesian). Rather than the source repository's inheritance chain,
// each type is its own struct embedding a DataGrid, matching the
// re-architecture guidance to use tagged composition over a class
// hierarchy.
package data

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Dimension is a named axis with a fixed size.
type Dimension struct {
	Name string
	Size int
}

// Attributes is the keyed bag of scalar metadata every DataGrid
// carries: TypeName, Units, Latitude, Longitude, Height, Time,
// FractionalTime are well-known keys, but the bag accepts any string
// key with a string, float64, int, or int64 value.
type Attributes map[string]interface{}

// String returns the string attribute named key, or "" if absent or
// of a different type.
func (a Attributes) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the float64 attribute named key, or 0 if absent or of
// a different type.
func (a Attributes) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// DataGrid is a named, versioned bag of dimensions, named dense
// arrays bound to those dimensions, and scalar attributes. It is the
// base composed into every concrete grid/radial type in this package.
type DataGrid struct {
	TypeName   string
	Attrs      Attributes
	dims       []Dimension
	dimIndex   map[string]int
	arrays     map[string]*sparse.DenseArray
	arrayDims  map[string][]string
}

// NewDataGrid constructs an empty DataGrid with the given ordered
// dimensions.
func NewDataGrid(typeName string, dims ...Dimension) *DataGrid {
	idx := make(map[string]int, len(dims))
	for i, d := range dims {
		idx[d.Name] = i
	}
	return &DataGrid{
		TypeName:  typeName,
		Attrs:     make(Attributes),
		dims:      dims,
		dimIndex:  idx,
		arrays:    make(map[string]*sparse.DenseArray),
		arrayDims: make(map[string][]string),
	}
}

// Dimensions returns the grid's ordered dimension list.
func (g *DataGrid) Dimensions() []Dimension { return g.dims }

// DimSize returns the size of the named dimension, or 0 if it is not
// part of this grid.
func (g *DataGrid) DimSize(name string) int {
	if i, ok := g.dimIndex[name]; ok {
		return g.dims[i].Size
	}
	return 0
}

// AddArray binds a new named array over the given (already-declared)
// dimension names, in the given order. An error is returned if any
// dimension name was not declared when the DataGrid was constructed,
// which is the "dimension references resolved at create time"
// invariant.
func (g *DataGrid) AddArray(name string, dimNames ...string) error {
	shape := make([]int, len(dimNames))
	for i, dn := range dimNames {
		idx, ok := g.dimIndex[dn]
		if !ok {
			return fmt.Errorf("data: DataGrid.AddArray(%s): dimension %q is not declared on this grid", name, dn)
		}
		shape[i] = g.dims[idx].Size
	}
	g.arrays[name] = sparse.ZerosDense(shape...)
	g.arrayDims[name] = dimNames
	return nil
}

// Array returns the named array, or nil if it was never added.
func (g *DataGrid) Array(name string) *sparse.DenseArray {
	return g.arrays[name]
}

// ArrayNames returns the names of all arrays bound to this grid.
func (g *DataGrid) ArrayNames() []string {
	names := make([]string, 0, len(g.arrays))
	for n := range g.arrays {
		names = append(names, n)
	}
	return names
}
