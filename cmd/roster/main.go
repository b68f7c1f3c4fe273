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

// Command roster periodically reads every Stage-1 source's `.cache`
// range grid under a Roster directory, merges them into the per-cell
// nearest-N coverage tables, and republishes each source's `.mask`
// coverage bitset, so Stage-1 processes never compute a cell some
// nearer radar already owns.
package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wxfusion/fusion"
	"github.com/wxfusion/fusion/cacheio"
	"github.com/wxfusion/fusion/geo"
	"github.com/wxfusion/fusion/internal/config"
	"github.com/wxfusion/fusion/roster"
)

var log = logrus.New()

var cfg = config.New()

var options = []config.Option{
	{Name: "config", Usage: "path to a TOML configuration file"},
	{Name: "roster", Usage: "Roster directory shared with every Stage-1 process"},
	{Name: "llg", Usage: "full output grid language string, must match every Stage-1 process's -llg"},
	{Name: "tick", Usage: "seconds between roster rebuilds", Default: 10.0},
}

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Rebuild per-source coverage masks from every Stage-1 source's range cache.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ReadFile(cfg.GetString("config")); err != nil {
			return fusion.Wrap(fusion.Configuration, "cmd/roster", err)
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
		return fusion.Newf(fusion.Configuration, "cmd/roster", "missing required -llg grid string")
	}
	grid, err := geo.ParseGrid(llg)
	if err != nil {
		return fusion.Wrap(fusion.Configuration, "cmd/roster", err)
	}

	rosterDir := cfg.GetString("roster")
	if rosterDir == "" {
		return fusion.Newf(fusion.Configuration, "cmd/roster", "missing required -roster directory")
	}
	fingerprint := grid.GetParseUniqueString()

	tick := time.Duration(cfg.GetFloat64("tick") * float64(time.Second))
	if tick <= 0 {
		tick = 10 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if err := partition(grid, rosterDir, fingerprint); err != nil {
			log.WithField("partition", fingerprint).Warn(err)
		}
		<-ticker.C
	}
}

// partition performs one full rebuild: read every source's .cache,
// merge into a fresh Roster, and write back every .mask.
func partition(grid *geo.LLCoverageArea, rosterDir, fingerprint string) error {
	activeDir := filepath.Join(cacheio.GridDir(rosterDir, fingerprint), "active")

	var names []string
	op := func() error {
		n, err := cacheio.ListSources(activeDir, ".cache")
		if err != nil {
			return err
		}
		names = n
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		return fusion.Wrap(fusion.IPC, "cmd/roster", err)
	}
	if len(names) == 0 {
		return nil
	}

	r := roster.New(grid.NumX, grid.NumY, grid.NumZ())

	for _, name := range names {
		path := cacheio.CachePath(rosterDir, fingerprint, name)
		c, err := cacheio.ReadCache(path)
		if err != nil {
			log.WithField("partition", fingerprint).Warn(fusion.Wrap(fusion.IPC, "cmd/roster", err))
			continue
		}
		r.Ingest(name, c.StartX, c.StartY, c.NumX, c.NumY, c.Ranges)
	}

	r.GenerateMasks()

	for _, src := range r.Sources() {
		path := cacheio.MaskPath(rosterDir, fingerprint, src.Name)
		if err := cacheio.WriteMask(path, src.Mask); err != nil {
			return fusion.Wrap(fusion.IPC, "cmd/roster", err)
		}
	}

	log.WithFields(logrus.Fields{
		"partition": fingerprint,
		"sources":   len(r.Sources()),
	}).Info("rebuilt coverage masks")
	return nil
}
