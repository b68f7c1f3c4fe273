/*
Copyright © 2017 the InMAP authors.
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

// Command tilejoin composites the per-partition merged tiles several
// Stage-2 processes emit back into one full-grid output, the way
// rTileJoin stitches a partitioned fusion run's per-tile NetCDF
// outputs into a single CONUS-scale product.
package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wxfusion/fusion"
	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
	"github.com/wxfusion/fusion/internal/config"
	"github.com/wxfusion/fusion/partition"
)

var log = logrus.New()

var cfg = config.New()

var options = []config.Option{
	{Name: "config", Usage: "path to a TOML configuration file"},
	{Name: "in", Usage: "directory every partition's Stage-2 process writes its .merged.pixels tiles into"},
	{Name: "out", Usage: "directory to write the joined full-grid netcdf output into"},
	{Name: "llg", Usage: "full output grid language string, matching every partition's own -llg subset"},
	{Name: "tilesx", Usage: "number of tile columns to split the full grid into, 1 means no partitioning", Default: 1},
	{Name: "tilesy", Usage: "number of tile rows to split the full grid into, 1 means no partitioning", Default: 1},
	{Name: "fudgedegs", Usage: "tile overlap margin in degrees, matching every partition's own -llg fudge", Default: 0.0},
	{Name: "expiremin", Usage: "finalize an incomplete composite frame after this many minutes", Default: 10.0},
	{Name: "tick", Usage: "seconds between scans of -in", Default: 15.0},
}

var rootCmd = &cobra.Command{
	Use:   "tilejoin",
	Short: "Join per-partition Stage-2 tiles into one full-grid output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ReadFile(cfg.GetString("config")); err != nil {
			return fusion.Wrap(fusion.Configuration, "cmd/tilejoin", err)
		}
		return run()
	},
	DisableAutoGenTag: true,
}

func init() {
	cfg.BindOptions(rootCmd, options)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fields := logrus.Fields{}
	if fe, ok := err.(*fusion.Error); ok {
		fields["kind"] = fe.Kind.String()
		fields["component"] = fe.Component
	}
	log.WithFields(fields).Error(err)
	os.Exit(1)
}

func run() error {
	llg := cfg.GetString("llg")
	if llg == "" {
		return fusion.Newf(fusion.Configuration, "cmd/tilejoin", "missing required -llg grid string")
	}
	fullGrid, err := geo.ParseGrid(llg)
	if err != nil {
		return fusion.Wrap(fusion.Configuration, "cmd/tilejoin", err)
	}

	inDir := cfg.GetString("in")
	outDir := cfg.GetString("out")
	if inDir == "" || outDir == "" {
		return fusion.Newf(fusion.Configuration, "cmd/tilejoin", "both -in and -out are required")
	}

	tilesX, tilesY := cfg.GetInt("tilesx"), cfg.GetInt("tilesy")
	var info *partition.Info
	if tilesX <= 1 && tilesY <= 1 {
		info = partition.NewNone(*fullGrid)
	} else {
		info, err = partition.NewTile(*fullGrid, tilesX, tilesY, cfg.GetFloat64("fudgedegs"))
		if err != nil {
			return fusion.Wrap(fusion.Configuration, "cmd/tilejoin", err)
		}
	}
	tj := partition.NewTileJoin(info)

	expiry := time.Duration(cfg.GetFloat64("expiremin") * float64(time.Minute))
	tick := time.Duration(cfg.GetFloat64("tick") * float64(time.Second))
	if tick <= 0 {
		tick = 15 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	lastFileTime := make(map[string]time.Time)

	for {
		now := time.Now()
		if err := scanTick(tj, info, inDir, outDir, now, lastFileTime); err != nil {
			log.Warn(err)
		}
		finalizeExpired(tj, info, outDir, now.Add(-expiry))
		<-ticker.C
	}
}

// tile is one decoded partition tile pulled off disk, ready to Add to
// a TileJoin.
type tile struct {
	partitionIdx int
	heightM      int
	obsTime      time.Time
	grid         *data.LatLonGrid
}

// scanTick lists every new .merged.pixels file under inDir, decodes
// it against its owning partition's geometry, and folds it into tj.
// A composite frame that becomes full after this tick's Add calls is
// finalized and written immediately.
func scanTick(tj *partition.TileJoin, info *partition.Info, inDir, outDir string, now time.Time, lastFileTime map[string]time.Time) error {
	var entries []os.DirEntry
	op := func() error {
		e, err := os.ReadDir(inDir)
		if err != nil {
			if os.IsNotExist(err) {
				entries = nil
				return nil
			}
			return err
		}
		entries = e
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/tilejoin", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".merged.pixels") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(inDir, name)
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !fi.ModTime().After(lastFileTime[name]) {
			continue
		}

		t, err := parseTileName(name)
		if err != nil {
			log.Warn(fusion.Wrap(fusion.Input, "cmd/tilejoin", err))
			lastFileTime[name] = fi.ModTime()
			continue
		}
		if t.partitionIdx < 0 || t.partitionIdx >= info.Size() {
			log.Warnf("cmd/tilejoin: %s names partition %d outside the configured %d-way split", name, t.partitionIdx, info.Size())
			lastFileTime[name] = fi.ModTime()
			continue
		}
		part := info.Partitions()[t.partitionIdx]

		f, err := os.Open(path)
		if err != nil {
			log.Warn(fusion.Wrap(fusion.IPC, "cmd/tilejoin", err))
			continue
		}
		grid := data.NewLatLonGrid("stage2", geo.LLH{LL: geo.LL{LatDegs: part.NWLatDegs, LonDegs: part.NWLonDegs}},
			part.LatSpacingDegs, part.LonSpacingDegs, part.NumY, part.NumX)
		err = readSparsePixels(f, grid)
		f.Close()
		if err != nil {
			log.Warn(fusion.Wrap(fusion.Input, "cmd/tilejoin", err))
			continue
		}
		t.grid = grid
		lastFileTime[name] = fi.ModTime()

		centroid := geo.LL{
			LatDegs: (part.NWLatDegs + part.SELatDegs) / 2.0,
			LonDegs: (part.NWLonDegs + part.SELonDegs) / 2.0,
		}
		key, full, ok := tj.Add("stage2", strconv.Itoa(t.heightM), t.obsTime, centroid, t.grid)
		if !ok {
			log.Warnf("cmd/tilejoin: %s's partition centroid fell outside every configured partition", name)
			continue
		}
		if full {
			if err := finalizeAndWrite(tj, info, outDir, key, t.heightM, t.obsTime); err != nil {
				log.Warn(err)
			}
		}
	}
	return nil
}

// finalizeExpired writes out, with whatever partitions arrived,
// every composite frame older than cutoff that never became full.
func finalizeExpired(tj *partition.TileJoin, info *partition.Info, outDir string, cutoff time.Time) {
	for _, key := range tj.ExpiredKeys(cutoff) {
		heightM, obsTime, ok := parseKey(key)
		if !ok {
			continue
		}
		if err := finalizeAndWrite(tj, info, outDir, key, heightM, obsTime); err != nil {
			log.Warn(err)
		}
	}
}

func finalizeAndWrite(tj *partition.TileJoin, info *partition.Info, outDir, key string, heightM int, obsTime time.Time) error {
	full := info.FullGrid
	out := data.NewLatLonGrid("stage2", geo.LLH{LL: geo.LL{LatDegs: full.NWLatDegs, LonDegs: full.NWLonDegs}},
		full.LatSpacingDegs, full.LonSpacingDegs, full.NumY, full.NumX)
	tj.FinalizeEntry(key, out)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fusion.Wrap(fusion.Resource, "cmd/tilejoin", err)
	}
	path := filepath.Join(outDir, itoa(heightM)+"."+itoa(int(obsTime.Unix()))+".joined.nc")
	f, err := os.Create(path)
	if err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/tilejoin", err)
	}
	defer f.Close()
	if err := data.WriteLatLonGridNetCDF(f, out); err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/tilejoin", err)
	}

	log.WithFields(logrus.Fields{
		"height": heightM,
		"time":   obsTime.Format(time.RFC3339),
	}).Info("joined tile composite")
	return nil
}

// parseKey recovers (heightM, obsTime) from a partition.Key string,
// whose subType field is cmd/stage2's decimal height-in-meters and
// whose time field is RFC3339Nano, per Key's own format.
func parseKey(key string) (heightM int, obsTime time.Time, ok bool) {
	parts := strings.Split(key, "\x00")
	if len(parts) != 3 {
		return 0, time.Time{}, false
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return 0, time.Time{}, false
	}
	return h, t, true
}

// parseTileName recovers (partitionIdx, obsTime, heightM) from a
// cmd/stage2-written "<fingerprint>.<partition>.<unixtime>.<heightM>.
// merged.pixels" filename. The fingerprint prefix is read-only
// metadata here -- tilejoin already has its own -llg -- so parsing
// works from the right, tolerant of any dots the fingerprint itself
// contains.
func parseTileName(name string) (tile, error) {
	base := strings.TrimSuffix(name, ".merged.pixels")
	fields := strings.Split(base, ".")
	if len(fields) < 3 {
		return tile{}, fusion.Newf(fusion.Input, "cmd/tilejoin", "cannot parse tile filename %q", name)
	}
	n := len(fields)
	heightM, err1 := strconv.Atoi(fields[n-1])
	unixSecs, err2 := strconv.ParseInt(fields[n-2], 10, 64)
	partitionIdx, err3 := strconv.Atoi(fields[n-3])
	if err1 != nil || err2 != nil || err3 != nil {
		return tile{}, fusion.Newf(fusion.Input, "cmd/tilejoin", "cannot parse tile filename %q", name)
	}
	return tile{partitionIdx: partitionIdx, heightM: heightM, obsTime: time.Unix(unixSecs, 0).UTC()}, nil
}

// readSparsePixels is the decode side of cmd/stage2's writeSparsePixels:
// a big-endian run count, then per run a float64 value followed by
// int32 x, y, z and count.
func readSparsePixels(r *os.File, dst *data.LatLonGrid) error {
	var numRuns int64
	if err := binary.Read(r, binary.BigEndian, &numRuns); err != nil {
		return err
	}
	runs := make([]data.PixelRun, numRuns)
	for i := range runs {
		var value float64
		if err := binary.Read(r, binary.BigEndian, &value); err != nil {
			return err
		}
		var x, y, z, count int32
		for _, p := range []*int32{&x, &y, &z, &count} {
			if err := binary.Read(r, binary.BigEndian, p); err != nil {
				return err
			}
		}
		runs[i] = data.PixelRun{X: int(x), Y: int(y), Z: int(z), Count: int(count), Value: value}
	}
	dst.DecodeSparsePixels(runs, data.DataUnavailable)
	return nil
}

func itoa(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
