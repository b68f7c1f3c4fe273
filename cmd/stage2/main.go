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

// Command stage2 runs the point-cloud merge database: it reads every
// Stage-1 source's `.table` frame as it lands, folds each into the
// resident point cloud with time-based expiry, and periodically
// writes the weighted-average merged grid back out.
package main

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wxfusion/fusion"
	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
	"github.com/wxfusion/fusion/internal/config"
	"github.com/wxfusion/fusion/stage2"
)

var log = logrus.New()

var cfg = config.New()

var options = []config.Option{
	{Name: "config", Usage: "path to a TOML configuration file"},
	{Name: "roster", Usage: "Roster directory to read every source's .table frames from"},
	{Name: "llg", Usage: "full output grid language string, must match every Stage-1 process's -llg"},
	{Name: "out", Usage: "directory to write merged output into (sparse-pixel binary, or netcdf with -netcdf)"},
	{Name: "netcdf", Usage: "write merged output as netcdf instead of the binary transport", Default: false},
	{Name: "partition", Usage: "this process's partition index, tagged into output filenames for tilejoin", Default: 0},
	{Name: "expirymin", Usage: "minutes after which a resident observation is purged", Default: 20.0},
	{Name: "tick", Usage: "seconds between ingest+merge cycles", Default: 30.0},
}

var rootCmd = &cobra.Command{
	Use:   "stage2",
	Short: "Run the Stage-2 point-cloud merge database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ReadFile(cfg.GetString("config")); err != nil {
			return fusion.Wrap(fusion.Configuration, "cmd/stage2", err)
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
		return fusion.Newf(fusion.Configuration, "cmd/stage2", "missing required -llg grid string")
	}
	grid, err := geo.ParseGrid(llg)
	if err != nil {
		return fusion.Wrap(fusion.Configuration, "cmd/stage2", err)
	}

	rosterDir := cfg.GetString("roster")
	outDir := cfg.GetString("out")
	if rosterDir == "" || outDir == "" {
		return fusion.Newf(fusion.Configuration, "cmd/stage2", "both -roster and -out are required")
	}
	fingerprint := grid.GetParseUniqueString()

	db := stage2.NewDatabase(grid.NumX, grid.NumY, grid.NumZ())

	expiry := time.Duration(cfg.GetFloat64("expirymin") * float64(time.Minute))
	tick := time.Duration(cfg.GetFloat64("tick") * float64(time.Second))
	if tick <= 0 {
		tick = 30 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastFileTime = make(map[string]time.Time)

	for {
		now := time.Now()
		if err := ingestTick(db, rosterDir, fingerprint, now, expiry, lastFileTime); err != nil {
			log.WithField("tick", now.Format(time.RFC3339)).Warn(err)
		}
		db.TimePurge(now, expiry)

		heightsM := make([]int, len(grid.HeightsKM))
		for i, h := range grid.HeightsKM {
			heightsM[i] = int(h * 1000.0)
		}
		cache := data.NewLLHGridN2D("stage2", geo.LLH{LL: geo.LL{LatDegs: grid.NWLatDegs, LonDegs: grid.NWLonDegs}},
			grid.LatSpacingDegs, grid.LonSpacingDegs, grid.NumY, grid.NumX, heightsM)
		db.MergeTo(cache, now.Add(-expiry), 0, 0)

		if err := writeMerged(cache, outDir, fingerprint, cfg.GetInt("partition"), now); err != nil {
			log.WithField("tick", now.Format(time.RFC3339)).Warn(err)
		} else {
			log.WithFields(logrus.Fields{
				"partition": fingerprint,
				"purged":    db.PurgedCount(),
				"tick":      now.Format(time.RFC3339),
			}).Info("merged Stage-2 output")
		}

		<-ticker.C
	}
}

// ingestTick reads every source's .table frame that changed since the
// last cycle and folds it into db.
func ingestTick(db *stage2.Database, rosterDir, fingerprint string, now time.Time, expiry time.Duration, lastFileTime map[string]time.Time) error {
	activeDir := filepath.Join(rosterDir, "GRID_"+fingerprint, "active")

	var entries []os.DirEntry
	op := func() error {
		e, err := os.ReadDir(activeDir)
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
		return fusion.Wrap(fusion.IPC, "cmd/stage2", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".table" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(activeDir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().After(lastFileTime[name]) {
			continue
		}
		if err := ingestFile(db, path, now, now.Add(-expiry)); err != nil {
			log.WithField("partition", fingerprint).Warn(err)
			continue
		}
		lastFileTime[name] = info.ModTime()
	}
	return nil
}

func ingestFile(db *stage2.Database, path string, obsTime, cutoff time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/stage2", err)
	}
	defer f.Close()

	t, err := stage2.Read(f)
	if err != nil {
		return fusion.Wrap(fusion.Input, "cmd/stage2", err)
	}
	db.Ingest(t, obsTime, cutoff)
	return nil
}

// writeMerged publishes the just-merged cache. The binary transport
// (writeSparsePixels, one file per height layer reduced to sparse
// pixel runs) is primary; -netcdf switches to a LatLonGrid netcdf file per
// height layer instead, per SPEC_FULL.md's "two Stage-2 transports"
// open question. Each file is tagged with this process's -partition
// index and the merge's observation time, so a downstream tilejoin
// watching many partitions' output directories can key-join the set
// of tiles that belong to the same composite frame.
func writeMerged(cache *data.LLHGridN2D, outDir, fingerprint string, partition int, obsTime time.Time) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fusion.Wrap(fusion.Resource, "cmd/stage2", err)
	}

	useNetCDF := cfg.GetBool("netcdf")
	stamp := itoa(partition) + "." + itoa(int(obsTime.Unix()))
	for _, heightM := range cache.HeightsM() {
		layer := cache.LatLonGrid(heightM)
		var path string
		if useNetCDF {
			path = filepath.Join(outDir, fingerprint+"."+stamp+"."+itoa(heightM)+".merged.nc")
			f, err := os.Create(path)
			if err != nil {
				return fusion.Wrap(fusion.IPC, "cmd/stage2", err)
			}
			err = data.WriteLatLonGridNetCDF(f, layer)
			f.Close()
			if err != nil {
				return fusion.Wrap(fusion.IPC, "cmd/stage2", err)
			}
			continue
		}

		path = filepath.Join(outDir, fingerprint+"."+stamp+"."+itoa(heightM)+".merged.pixels")
		f, err := os.Create(path)
		if err != nil {
			return fusion.Wrap(fusion.IPC, "cmd/stage2", err)
		}
		err = writeSparsePixels(f, layer)
		f.Close()
		if err != nil {
			return fusion.Wrap(fusion.IPC, "cmd/stage2", err)
		}
	}
	return nil
}

// writeSparsePixels serializes layer's non-background cells as
// run-length-encoded pixel runs, in the same big-endian binary style
// as stage2.Table.Write.
func writeSparsePixels(w io.Writer, layer *data.LatLonGrid) error {
	runs := layer.EncodeSparsePixels(data.DataUnavailable)
	if err := binary.Write(w, binary.BigEndian, int64(len(runs))); err != nil {
		return err
	}
	for _, r := range runs {
		if err := binary.Write(w, binary.BigEndian, r.Value); err != nil {
			return err
		}
		for _, c := range []int32{int32(r.X), int32(r.Y), int32(r.Z), int32(r.Count)} {
			if err := binary.Write(w, binary.BigEndian, c); err != nil {
				return err
			}
		}
	}
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
