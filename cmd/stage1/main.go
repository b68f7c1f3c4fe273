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

// Command stage1 runs the per-radar Stage-1 driver: it watches a
// directory of incoming RadialSet netcdf files, folds each into the
// radar's elevation volume and terrain model, sweeps the configured
// output grid, and hands the resulting Stage-2 Table and Roster
// `.cache`/`.mask` artifacts to the filesystem, the way
// RAPIOFusionOneAlg drives one radar/moment pair per process.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wxfusion/fusion"
	"github.com/wxfusion/fusion/cacheio"
	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
	"github.com/wxfusion/fusion/internal/config"
	"github.com/wxfusion/fusion/presmooth"
	"github.com/wxfusion/fusion/resolver"
	"github.com/wxfusion/fusion/stage1"
	"github.com/wxfusion/fusion/terrain"
)

var log = logrus.New()

var cfg = config.New()

// options mirrors rFusion1.cc's declareOptions table: one row per
// flag, its usage text and default, bound to both viper and cobra.
var options = []config.Option{
	{Name: "config", Usage: "path to a TOML configuration file"},
	{Name: "in", Usage: "directory to watch for incoming RadialSet netcdf files"},
	{Name: "roster", Usage: "Roster directory this source publishes .cache/.mask artifacts under"},
	{Name: "dem", Usage: "optional DEM netcdf file for terrain blockage modeling"},
	{Name: "radarlat", Usage: "this process's radar site latitude, required if -terrain is not \"none\"", Default: 0.0},
	{Name: "radarlon", Usage: "this process's radar site longitude, required if -terrain is not \"none\"", Default: 0.0},
	{Name: "llg", Usage: "output grid language string, e.g. \"nw(55,-130) se(20,-60) s(0.01,0.01) h(0,3,Uniform1Km)\""},
	{Name: "subgrid", Usage: "inset the output grid to this radar's own coverage subgrid", Default: true},
	{Name: "throttle", Usage: "minimum seconds between processing two files from the same source", Default: 0.0},
	{Name: "presmooth", Usage: "Lak radial moving-average half-window size in gates, 0 disables", Default: 0},
	{Name: "resolver", Usage: "volume-value resolver: lak, robert, or nearest", Default: "lak"},
	{Name: "volume", Usage: "virtual elevation volume interpolation mode", Default: "simple"},
	{Name: "terrain", Usage: "terrain blockage algorithm: 2me or lak (ignored unless -dem is set)", Default: "2me"},
	{Name: "rangekm", Usage: "maximum range in kilometers a radar is trusted at", Default: 460.0},
	{Name: "tick", Usage: "seconds between directory scans", Default: 5.0},
}

var rootCmd = &cobra.Command{
	Use:   "stage1",
	Short: "Run the Stage-1 per-radar projection and resolver driver.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ReadFile(cfg.GetString("config")); err != nil {
			return fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
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

// buildStage resolves the -llg/-resolver/-terrain/-dem flags into a
// ready stage1.Stage, the one-time setup rFusio1.cc performs before
// entering its per-file processing loop.
func buildStage() (*stage1.Stage, error) {
	llg := cfg.GetString("llg")
	if llg == "" {
		return nil, fusion.Newf(fusion.Configuration, "cmd/stage1", "missing required -llg grid string")
	}
	grid, err := geo.ParseGrid(llg)
	if err != nil {
		return nil, fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
	}

	resolverName := cfg.GetString("resolver")
	res, err := resolver.New(resolverName)
	if err != nil {
		return nil, fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
	}

	if v := cfg.GetString("volume"); v != "simple" {
		return nil, fusion.Newf(fusion.Configuration, "cmd/stage1", "unknown -volume mode %q (only \"simple\" is supported)", v)
	}

	terrainBase := terrain.Base{
		RadarLocation: geo.LLH{LL: geo.LL{
			LatDegs: cfg.GetFloat64("radarlat"),
			LonDegs: cfg.GetFloat64("radarlon"),
		}},
		RadarRangeKMs: cfg.GetFloat64("rangekm"),
	}
	if demPath := cfg.GetString("dem"); demPath != "" {
		f, err := os.Open(demPath)
		if err != nil {
			return nil, fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
		}
		defer f.Close()
		dem, err := data.ReadLatLonGridNetCDF(f)
		if err != nil {
			return nil, fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
		}
		terrainBase.DEM = terrain.DEMFromGrid{Grid: dem}
	}
	terrainAlg, err := terrain.New(cfg.GetString("terrain"), terrainBase)
	if err != nil {
		return nil, fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
	}

	var volumeMaxAge time.Duration
	if throttle := cfg.GetFloat64("throttle"); throttle > 0 {
		volumeMaxAge = time.Duration(throttle*20.0) * time.Second
	}

	return stage1.New(stage1.Config{
		FullGrid:       *grid,
		RangeKMs:       cfg.GetFloat64("rangekm"),
		Resolver:       res,
		TerrainAlg:     terrainAlg,
		VolumeMaxAge:   volumeMaxAge,
		NoSubgridInset: !cfg.GetBool("subgrid"),
	}), nil
}

// run drives the tick loop: scan -in for new RadialSet files, process
// each in order of modification time, and publish the resulting
// Stage-2 Table and Roster artifacts.
func run() error {
	stage, err := buildStage()
	if err != nil {
		return err
	}

	inDir := cfg.GetString("in")
	rosterDir := cfg.GetString("roster")
	if inDir == "" || rosterDir == "" {
		return fusion.Newf(fusion.Configuration, "cmd/stage1", "both -in and -roster are required")
	}

	tick := time.Duration(cfg.GetFloat64("tick") * float64(time.Second))
	if tick <= 0 {
		tick = 5 * time.Second
	}
	throttle := time.Duration(cfg.GetFloat64("throttle") * float64(time.Second))

	var lastProcessed time.Time
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if err := processTick(stage, inDir, rosterDir, &lastProcessed, throttle); err != nil {
			if fe, ok := err.(*fusion.Error); ok && fe.Kind.Fatal() {
				return err
			}
			log.WithField("tick", time.Now().Format(time.RFC3339)).Warn(err)
		}
		<-ticker.C
	}
}

func processTick(stage *stage1.Stage, inDir, rosterDir string, lastProcessed *time.Time, throttle time.Duration) error {
	var files []string
	op := func() error {
		entries, err := os.ReadDir(inDir)
		if err != nil {
			return err
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".nc" {
				files = append(files, filepath.Join(inDir, e.Name()))
			}
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/stage1", err)
	}
	sort.Strings(files)

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().After(*lastProcessed) {
			continue
		}
		if throttle > 0 && time.Since(*lastProcessed) < throttle {
			break
		}
		if err := processFile(stage, path, rosterDir); err != nil {
			log.WithField("radar", stage.RadarName()).Warn(fmt.Errorf("cmd/stage1: processing %s: %w", path, err))
			continue
		}
		*lastProcessed = info.ModTime()
	}
	return nil
}

func processFile(stage *stage1.Stage, path, rosterDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/stage1", err)
	}
	defer f.Close()

	rs, err := data.ReadRadialSetNetCDF(f)
	if err != nil {
		return fusion.Wrap(fusion.Input, "cmd/stage1", err)
	}

	if halfSize := cfg.GetInt("presmooth"); halfSize > 0 {
		presmooth.LakRadialMovingAverage(rs, halfSize)
	}

	fullGrid, err := geo.ParseGrid(cfg.GetString("llg"))
	if err != nil {
		return fusion.Wrap(fusion.Configuration, "cmd/stage1", err)
	}
	fingerprint := fullGrid.GetParseUniqueString()
	if stage.RadarName() != "" {
		if mask, err := cacheio.ReadMask(cacheio.MaskPath(rosterDir, fingerprint, stage.RadarName())); err == nil {
			stage.SetMask(mask)
		}
	}

	obsTime := time.Now()
	table, err := stage.ProcessRadialSet(rs, obsTime)
	if err != nil {
		return fusion.Wrap(fusion.Input, "cmd/stage1", err)
	}

	outDir := filepath.Join(cacheio.GridDir(rosterDir, fingerprint), "active")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fusion.Wrap(fusion.Resource, "cmd/stage1", err)
	}

	tablePath := filepath.Join(outDir, stage.RadarName()+"."+stage.TypeName()+".table")
	tf, err := os.Create(tablePath)
	if err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/stage1", err)
	}
	defer tf.Close()
	if err := table.Write(tf); err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/stage1", err)
	}

	rangeCache := &cacheio.RangeCache{
		StartX: stage.RadarGrid().StartX,
		StartY: stage.RadarGrid().StartY,
		NumX:   stage.RadarGrid().NumX,
		NumY:   stage.RadarGrid().NumY,
		NumZ:   stage.RadarGrid().NumZ(),
		Ranges: stage.RangeGrid(),
	}
	cachePath := cacheio.CachePath(rosterDir, fingerprint, stage.RadarName())
	if err := cacheio.WriteCache(cachePath, rangeCache); err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/stage1", err)
	}

	log.WithFields(logrus.Fields{
		"radar": stage.RadarName(),
		"type":  stage.TypeName(),
		"tick":  obsTime.Format(time.RFC3339),
	}).Info("processed tilt")

	return nil
}
