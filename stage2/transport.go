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

package stage2

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ValueObs is one resolved, non-missing Stage-1 cell crossing the
// wire to Stage-2: a resolver's (value, weight) pair at a source-local
// (x, y, z).
type ValueObs struct {
	X, Y, Z int
	Value, Weight float64
}

// MissingRun is one run-length-encoded span of explicitly-masked
// cells: the run starts at (x, y, z) in source-local coordinates and
// covers RunLength consecutive cells along x. Encoding missing cells
// as runs rather than one bit per cell is a large win since weather
// coverage gaps clump into horizontal swaths.
type MissingRun struct {
	X, Y, Z   int
	RunLength int
}

// Table is the wire form Stage-1 sends and Stage-2 receives: the
// source's identity and local grid placement, plus the two parallel
// streams described in the merge database -- resolved values, and
// run-length-encoded missing spans.
type Table struct {
	RadarName string
	TypeName  string
	Units     string
	NumX, NumY, NumZ int
	XBase, YBase     int

	Values   []ValueObs
	Missings []MissingRun
}

// NewTable allocates an empty Table for a source covering numX x numY
// x numZ cells starting at (xBase, yBase) in the full output grid.
func NewTable(radarName, typeName, units string, numX, numY, numZ, xBase, yBase int) *Table {
	return &Table{
		RadarName: radarName, TypeName: typeName, Units: units,
		NumX: numX, NumY: numY, NumZ: numZ, XBase: xBase, YBase: yBase,
	}
}

// AddValue records a resolved, non-missing (value, weight) observation.
func (t *Table) AddValue(value, weight float64, x, y, z int) {
	t.Values = append(t.Values, ValueObs{X: x, Y: y, Z: z, Value: value, Weight: weight})
}

// AddMissingRun records a run of runLength explicitly-masked cells
// starting at (x, y, z).
func (t *Table) AddMissingRun(x, y, z, runLength int) {
	t.Missings = append(t.Missings, MissingRun{X: x, Y: y, Z: z, RunLength: runLength})
}

// EncodeMissing scans a flat row-major (x fastest, then y, then z)
// boolean missing mask over the table's local grid and appends one
// MissingRun per maximal horizontal run of set bits, matching the
// decoder's "expand each run horizontally in x" contract.
func (t *Table) EncodeMissing(missing []bool) {
	for z := 0; z < t.NumZ; z++ {
		for y := 0; y < t.NumY; y++ {
			x := 0
			for x < t.NumX {
				base := (z*t.NumY+y)*t.NumX + x
				if !missing[base] {
					x++
					continue
				}
				start := x
				for x < t.NumX && missing[(z*t.NumY+y)*t.NumX+x] {
					x++
				}
				t.AddMissingRun(start, y, z, x-start)
			}
		}
	}
}

// Write serializes t to w in the binary form Stage-2 expects: a
// string/int header, then the value stream, then the RLE missing
// stream.
func (t *Table) Write(w io.Writer) error {
	for _, s := range []string{t.RadarName, t.TypeName, t.Units} {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	for _, h := range []int64{int64(t.NumX), int64(t.NumY), int64(t.NumZ), int64(t.XBase), int64(t.YBase)} {
		if err := binary.Write(w, binary.BigEndian, h); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.BigEndian, int64(len(t.Values))); err != nil {
		return err
	}
	for _, v := range t.Values {
		if err := binary.Write(w, binary.BigEndian, v.Value); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, v.Weight); err != nil {
			return err
		}
		for _, c := range []int32{int32(v.X), int32(v.Y), int32(v.Z)} {
			if err := binary.Write(w, binary.BigEndian, c); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.BigEndian, int64(len(t.Missings))); err != nil {
		return err
	}
	for _, m := range t.Missings {
		for _, c := range []int32{int32(m.X), int32(m.Y), int32(m.Z), int32(m.RunLength)} {
			if err := binary.Write(w, binary.BigEndian, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read deserializes a Table written by Write.
func Read(r io.Reader) (*Table, error) {
	t := &Table{}
	var err error
	if t.RadarName, err = readString(r); err != nil {
		return nil, err
	}
	if t.TypeName, err = readString(r); err != nil {
		return nil, err
	}
	if t.Units, err = readString(r); err != nil {
		return nil, err
	}

	var numX, numY, numZ, xBase, yBase int64
	for _, p := range []*int64{&numX, &numY, &numZ, &xBase, &yBase} {
		if err := binary.Read(r, binary.BigEndian, p); err != nil {
			return nil, err
		}
	}
	t.NumX, t.NumY, t.NumZ, t.XBase, t.YBase = int(numX), int(numY), int(numZ), int(xBase), int(yBase)

	var numValues int64
	if err := binary.Read(r, binary.BigEndian, &numValues); err != nil {
		return nil, err
	}
	t.Values = make([]ValueObs, numValues)
	for i := range t.Values {
		var value, weight float64
		if err := binary.Read(r, binary.BigEndian, &value); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &weight); err != nil {
			return nil, err
		}
		var x, y, z int32
		for _, p := range []*int32{&x, &y, &z} {
			if err := binary.Read(r, binary.BigEndian, p); err != nil {
				return nil, err
			}
		}
		t.Values[i] = ValueObs{X: int(x), Y: int(y), Z: int(z), Value: value, Weight: weight}
	}

	var numMissings int64
	if err := binary.Read(r, binary.BigEndian, &numMissings); err != nil {
		return nil, err
	}
	t.Missings = make([]MissingRun, numMissings)
	for i := range t.Missings {
		var x, y, z, runLength int32
		for _, p := range []*int32{&x, &y, &z, &runLength} {
			if err := binary.Read(r, binary.BigEndian, p); err != nil {
				return nil, err
			}
		}
		t.Missings[i] = MissingRun{X: int(x), Y: int(y), Z: int(z), RunLength: int(runLength)}
	}
	return t, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if n < 0 || n > 1<<20 {
		return "", fmt.Errorf("stage2: implausible string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
