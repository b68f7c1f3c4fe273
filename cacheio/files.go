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

// Package cacheio reads and writes the two durable artifacts that
// stand in for an RPC between Stage-1 and Roster: a source's `.cache`
// range grid, and the `.mask` coverage bitset Roster hands back.
// Writers always create a temp file alongside the target and rename
// it into place, so a reader never observes a half-written file.
package cacheio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wxfusion/fusion/container"
)

// GridDir returns the roster directory for a grid fingerprint:
// <rosterDir>/GRID_<fingerprint>.
func GridDir(rosterDir, fingerprint string) string {
	return filepath.Join(rosterDir, "GRID_"+fingerprint)
}

// CachePath returns the path of a source's range cache file.
func CachePath(rosterDir, fingerprint, sourceName string) string {
	return filepath.Join(GridDir(rosterDir, fingerprint), "active", sourceName+".cache")
}

// MaskPath returns the path of a source's coverage mask file.
func MaskPath(rosterDir, fingerprint, sourceName string) string {
	return filepath.Join(GridDir(rosterDir, fingerprint), "mask", sourceName+".mask")
}

// RangeCache is a source's per-cell range grid: a numX x numY x numZ
// row-major (x fastest) array of great-circle surface distances (km)
// from the source to each cell, placed at (startX, startY) in the
// full output grid.
type RangeCache struct {
	StartX, StartY   int
	NumX, NumY, NumZ int
	Ranges           []float64
}

// WriteCache atomically writes c to path, creating parent directories
// as needed.
func WriteCache(path string, c *RangeCache) error {
	return atomicWrite(path, func(w io.Writer) error {
		hdr := []int64{int64(c.StartX), int64(c.StartY), int64(c.NumX), int64(c.NumY), int64(c.NumZ)}
		for _, h := range hdr {
			if err := binary.Write(w, binary.BigEndian, h); err != nil {
				return err
			}
		}
		return binary.Write(w, binary.BigEndian, c.Ranges)
	})
}

// ReadCache reads a `.cache` file written by WriteCache.
func ReadCache(path string) (*RangeCache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var startX, startY, numX, numY, numZ int64
	for _, p := range []*int64{&startX, &startY, &numX, &numY, &numZ} {
		if err := binary.Read(f, binary.BigEndian, p); err != nil {
			return nil, err
		}
	}
	c := &RangeCache{
		StartX: int(startX), StartY: int(startY),
		NumX: int(numX), NumY: int(numY), NumZ: int(numZ),
		Ranges: make([]float64, numX*numY*numZ),
	}
	if err := binary.Read(f, binary.BigEndian, c.Ranges); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteMask atomically writes mask to path.
func WriteMask(path string, mask *container.Bitset) error {
	return atomicWrite(path, func(w io.Writer) error {
		_, err := mask.WriteTo(w)
		return err
	})
}

// ReadMask reads a `.mask` file written by WriteMask.
func ReadMask(path string) (*container.Bitset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return container.ReadBitset(f)
}

// ModTime reports the modification time of a `.cache`/`.mask` file.
// cmd/roster does not consult it: every `.cache` file in the active
// directory is ingested regardless of its age.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ListSources returns every "<name>" for which <dir>/<name>.cache (or
// .mask, via suffix) exists directly inside dir, sorted by name.
func ListSources(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if filepath.Ext(n) == suffix {
			names = append(names, n[:len(n)-len(suffix)])
		}
	}
	return names, nil
}

func atomicWrite(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cacheio: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
