package cacheio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wxfusion/fusion/container"
)

func TestWriteReadCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := CachePath(dir, "abc123", "KTLX")

	c := &RangeCache{
		StartX: 3, StartY: 4,
		NumX: 2, NumY: 2, NumZ: 1,
		Ranges: []float64{1.5, 2.5, 3.5, 4.5},
	}
	if err := WriteCache(path, c); err != nil {
		t.Fatalf("WriteCache: %v", err)
	}

	got, err := ReadCache(path)
	if err != nil {
		t.Fatalf("ReadCache: %v", err)
	}
	if got.StartX != c.StartX || got.StartY != c.StartY || got.NumX != c.NumX || got.NumY != c.NumY || got.NumZ != c.NumZ {
		t.Fatalf("ReadCache header = %+v, want %+v", got, c)
	}
	for i := range c.Ranges {
		if got.Ranges[i] != c.Ranges[i] {
			t.Errorf("Ranges[%d] = %v, want %v", i, got.Ranges[i], c.Ranges[i])
		}
	}
}

func TestWriteReadMaskRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := MaskPath(dir, "abc123", "KTLX")

	mask := container.NewBitset(8, 1)
	mask.Set(1, 1)
	mask.Set(6, 1)
	if err := WriteMask(path, mask); err != nil {
		t.Fatalf("WriteMask: %v", err)
	}

	got, err := ReadMask(path)
	if err != nil {
		t.Fatalf("ReadMask: %v", err)
	}
	for i := 0; i < 8; i++ {
		want := uint64(0)
		if i == 1 || i == 6 {
			want = 1
		}
		if got.Get(i) != want {
			t.Errorf("mask bit %d = %d, want %d", i, got.Get(i), want)
		}
	}
}

func TestAtomicWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "GRID_abc", "active", "KTLX.cache")

	c := &RangeCache{NumX: 1, NumY: 1, NumZ: 1, Ranges: []float64{9}}
	if err := WriteCache(path, c); err != nil {
		t.Fatalf("WriteCache: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "KTLX.cache" {
			t.Errorf("unexpected leftover file %q after WriteCache", e.Name())
		}
	}
}

func TestListSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"KTLX.cache", "KFWS.cache", "ignored.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	names, err := ListSources(dir, ".cache")
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ListSources = %v, want 2 entries", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["KTLX"] || !seen["KFWS"] {
		t.Errorf("ListSources = %v, want KTLX and KFWS", names)
	}
}

func TestListSourcesMissingDir(t *testing.T) {
	names, err := ListSources(filepath.Join(t.TempDir(), "nope"), ".cache")
	if err != nil {
		t.Fatalf("ListSources on a missing dir should not error, got %v", err)
	}
	if names != nil {
		t.Errorf("ListSources on a missing dir = %v, want nil", names)
	}
}

func TestModTime(t *testing.T) {
	dir := t.TempDir()
	path := CachePath(dir, "abc123", "KTLX")
	c := &RangeCache{NumX: 1, NumY: 1, NumZ: 1, Ranges: []float64{1}}
	if err := WriteCache(path, c); err != nil {
		t.Fatalf("WriteCache: %v", err)
	}
	if _, err := ModTime(path); err != nil {
		t.Errorf("ModTime: %v", err)
	}
}
