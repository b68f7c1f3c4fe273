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

// Package stage1 is the per-radar driver: on each incoming RadialSet
// it updates the radar's virtual elevation volume and terrain
// decoration, sweeps every output-grid cell the radar can reach,
// invokes the configured VolumeValueResolver only where the enclosing
// tilts actually changed, and emits the cells that moved as a Stage-2
// Table.
package stage1

import (
	"fmt"
	"log"
	"time"

	"github.com/wxfusion/fusion/container"
	"github.com/wxfusion/fusion/data"
	"github.com/wxfusion/fusion/geo"
	"github.com/wxfusion/fusion/projcache"
	"github.com/wxfusion/fusion/resolver"
	"github.com/wxfusion/fusion/stage2"
	"github.com/wxfusion/fusion/terrain"
	"github.com/wxfusion/fusion/volume"
)

// FudgeKMs is the default padding added to a radar's range when
// insetting the full grid to the radar's subgrid, so the range
// circle sits comfortably inside the subgrid's box.
const FudgeKMs = 5.0

// Config is the fixed, once-per-process setup for a single
// radar/moment Stage driver.
type Config struct {
	FullGrid     geo.LLCoverageArea
	RangeKMs     float64
	Resolver     resolver.Resolver
	TerrainAlg   terrain.Blockage // nil is treated as no blockage modeling
	VolumeMaxAge time.Duration    // 0 disables expiry
	FudgeKMs     float64          // 0 uses FudgeKMs

	// NoSubgridInset makes the Stage sweep FullGrid in its entirety
	// instead of insetting to the radar's own range circle, matching
	// RAPIOFusionOneAlg's "-subgrid false" mode for a radar run against
	// a grid already scoped to one site.
	NoSubgridInset bool
}

// Stage drives Stage-1 processing for exactly one (radar, moment)
// pair; the first RadialSet it sees fixes that identity and every
// later call rejects RadialSets from any other source.
type Stage struct {
	cfg Config

	radarName, typeName, units string
	radarCenter                geo.LLH
	radarGrid                  geo.LLCoverageArea

	volume    *volume.Volume
	sinCos    *projcache.SinCosLatLonCache
	azCaches  map[int]*projcache.AzRanElevCache
	levelSame map[int]*projcache.LevelSameCache
	cache     *data.LLHGridN2D

	mask *container.Bitset // optional coverage mask from Roster, local to radarGrid

	ready bool
}

// New constructs an unconfigured Stage; the first RadialSet passed to
// ProcessRadialSet performs the rest of setup.
func New(cfg Config) *Stage {
	if cfg.FudgeKMs <= 0 {
		cfg.FudgeKMs = FudgeKMs
	}
	return &Stage{
		cfg:       cfg,
		volume:    volume.New(),
		azCaches:  make(map[int]*projcache.AzRanElevCache),
		levelSame: make(map[int]*projcache.LevelSameCache),
	}
}

// SetMask installs the coverage mask Roster produced for this source
// (one bit per cell of the source's own subgrid, every Z layer): a
// clear bit means some nearer radar already covers that cell and it
// should not be recomputed. A nil mask (the default) computes every
// in-range cell.
func (s *Stage) SetMask(mask *container.Bitset) {
	s.mask = mask
}

// RadarName, TypeName and RadarGrid report the identity and subgrid
// this Stage locked onto after its first RadialSet; they are the zero
// value until then.
func (s *Stage) RadarName() string          { return s.radarName }
func (s *Stage) TypeName() string           { return s.typeName }
func (s *Stage) RadarGrid() geo.LLCoverageArea { return s.radarGrid }

func (s *Stage) firstDataSetup(rs *data.RadialSet) {
	s.radarName = rs.RadarName
	s.typeName = rs.TypeName
	s.radarCenter = rs.Location

	if s.cfg.NoSubgridInset {
		s.radarGrid = s.cfg.FullGrid
	} else {
		s.radarGrid = s.cfg.FullGrid.InsetRadarRange(rs.Location.LatDegs, rs.Location.LonDegs, s.cfg.RangeKMs+s.cfg.FudgeKMs)
	}

	s.sinCos = projcache.NewSinCosLatLonCache(rs.Location.LatDegs, rs.Location.LonDegs, &s.radarGrid)

	heightsM := make([]int, len(s.cfg.FullGrid.HeightsKM))
	for i, h := range s.cfg.FullGrid.HeightsKM {
		heightsM[i] = int(h * 1000.0)
	}
	s.cache = data.NewLLHGridN2D("stage1", geo.LLH{LL: geo.LL{LatDegs: s.radarGrid.NWLatDegs, LonDegs: s.radarGrid.NWLonDegs}},
		s.radarGrid.LatSpacingDegs, s.radarGrid.LonSpacingDegs, s.radarGrid.NumY, s.radarGrid.NumX, heightsM)
	for _, heightM := range heightsM {
		heightKMs := float64(heightM) / 1000.0
		s.azCaches[heightM] = projcache.NewAzRanElevCache(rs.Location.LatDegs, rs.Location.LonDegs, heightKMs, &s.radarGrid, s.sinCos)
		s.levelSame[heightM] = projcache.NewLevelSameCache(s.radarGrid.NumX, s.radarGrid.NumY)
		s.cache.LatLonGrid(heightM).Fill(data.DataUnavailable)
	}

	log.Printf("stage1: locked to radar %q type %q, subgrid %dx%d at (%d,%d)\n",
		s.radarName, s.typeName, s.radarGrid.NumX, s.radarGrid.NumY, s.radarGrid.StartX, s.radarGrid.StartY)
	s.ready = true
}

// ProcessRadialSet folds one incoming tilt into the elevation volume
// and terrain model, sweeps every cell of the radar's subgrid that
// the enclosing-tilt change detector says may have moved, and returns
// a Stage-2 Table of every cell that actually changed value. A
// RadialSet from a source other than the one this Stage locked onto
// on first call is rejected with an error and otherwise ignored.
func (s *Stage) ProcessRadialSet(rs *data.RadialSet, obsTime time.Time) (*stage2.Table, error) {
	if !s.ready {
		s.firstDataSetup(rs)
	}
	if rs.RadarName != s.radarName || rs.TypeName != s.typeName {
		return nil, fmt.Errorf("stage1: linked to %q/%q, ignoring %q/%q", s.radarName, s.typeName, rs.RadarName, rs.TypeName)
	}

	if s.cfg.TerrainAlg != nil {
		terrain.PerGatePass(rs, s.cfg.TerrainAlg, s.radarCenter.HeightKMs)
	}
	if !s.volume.Add(rs) {
		return nil, fmt.Errorf("stage1: volume rejected RadialSet from %q", rs.RadarName)
	}
	if s.cfg.VolumeMaxAge > 0 {
		s.volume.Expire(obsTime, s.cfg.VolumeMaxAge)
	}

	units := rs.Attrs.String("Units")
	if units == "" {
		units = s.units
	}
	s.units = units

	numX, numY, numZ := s.radarGrid.NumX, s.radarGrid.NumY, len(s.cfg.FullGrid.HeightsKM)
	table := stage2.NewTable(s.radarName, s.typeName, s.units, numX, numY, numZ, s.radarGrid.StartX, s.radarGrid.StartY)
	missing := make([]bool, numX*numY*numZ)

	for zIdx, heightKM := range s.cfg.FullGrid.HeightsKM {
		heightM := int(heightKM * 1000.0)
		s.processHeightLayer(rs, zIdx, heightM, table, missing, numX, numY)
	}

	table.EncodeMissing(missing)
	return table, nil
}

// processHeightLayer sweeps one height layer of the radar subgrid,
// recomputing and re-emitting only the cells whose enclosing tilts
// (per the LevelSameCache change detector) or whose range-to-radar
// test result could have changed since the last sweep.
func (s *Stage) processHeightLayer(rs *data.RadialSet, zIdx, heightM int, table *stage2.Table, missing []bool, numX, numY int) {
	azCache := s.azCaches[heightM]
	same := s.levelSame[heightM]
	out := s.cache.LatLonGrid(heightM)

	for y := 0; y < numY; y++ {
		for x := 0; x < numX; x++ {
			if s.mask != nil {
				li := (zIdx*numY+y)*numX + x
				if s.mask.Get(li) == 0 {
					continue
				}
			}

			azDegs, elevDegs, rangeKMs := azCache.At(x, y)
			if rangeKMs > s.cfg.RangeKMs {
				continue
			}

			enc := s.volume.GetSpreadL(elevDegs)
			changed := same.Set(x, y, idOf(enc.Lower), idOf(enc.Upper), idOf(enc.Lower2), idOf(enc.Upper2))
			if !changed {
				continue
			}

			q := &resolver.Query{
				VirtualAzDegs:   azDegs,
				VirtualElevDegs: elevDegs,
				VirtualRangeKMs: rangeKMs,
				RadarHeightKMs:  s.radarCenter.HeightKMs,
				LayerHeightKMs:  float64(heightM) / 1000.0,
			}
			fillLayer(&q.Lower, enc.Lower, azDegs, rangeKMs)
			fillLayer(&q.Upper, enc.Upper, azDegs, rangeKMs)
			fillLayer(&q.Lower2, enc.Lower2, azDegs, rangeKMs)
			fillLayer(&q.Upper2, enc.Upper2, azDegs, rangeKMs)

			res := s.cfg.Resolver.Calc(q)

			if out.Get(y, x) == res.DataValue {
				continue
			}
			out.Set(y, x, res.DataValue)

			switch {
			case data.IsGood(res.DataValue):
				table.AddValue(res.DataValue, res.BottomSum, x, y, zIdx)
			case res.DataValue == data.MissingData:
				missing[(zIdx*numY+y)*numX+x] = true
			}
		}
	}
}

// fillLayer resolves rs's sample nearest (azDegs, rangeKMs) into dst,
// or leaves dst as the zero (Present: false) Layer if rs is nil or
// the query point falls outside rs's polar array.
func fillLayer(dst *resolver.Layer, rs *data.RadialSet, azDegs, rangeKMs float64) {
	*dst = resolver.Layer{}
	if rs == nil {
		return
	}
	radial, gate, ok := rs.NearestGate(azDegs, rangeKMs)
	if !ok {
		return
	}
	heightKMs, _ := geo.BeamPathRangeElevToHeightSurface(rangeKMs, rs.ElevDegs)
	*dst = resolver.Layer{
		Present:           true,
		Value:             rs.Value(radial, gate),
		ElevationDegs:     rs.ElevDegs,
		BeamWidthDegs:     rs.BeamWidth[radial],
		HeightKMs:         heightKMs,
		RangeKMs:          rangeKMs,
		TerrainCBBPercent: rs.CBB(radial, gate),
		BeamHitBottom:     rs.BeamBottomHit(radial, gate),
		HaveTerrain:       rs.HasTerrain(),
	}
}

func idOf(rs *data.RadialSet) byte {
	if rs == nil {
		return 0
	}
	return rs.ID
}

// RangeGrid computes this source's `.cache` range contribution for
// Roster: the great-circle surface distance (km) from the radar
// center to every cell of the radar subgrid, replicated across every
// Z layer (distance to a cell does not depend on height in this
// model, only the virtual elevation used to pick tilts does).
func (s *Stage) RangeGrid() []float64 {
	numX, numY, numZ := s.radarGrid.NumX, s.radarGrid.NumY, len(s.cfg.FullGrid.HeightsKM)
	out := make([]float64, numX*numY*numZ)
	for z := 0; z < numZ; z++ {
		for y := 0; y < numY; y++ {
			for x := 0; x < numX; x++ {
				out[(z*numY+y)*numX+x] = s.sinCos.SurfaceKMs(x, y)
			}
		}
	}
	return out
}
