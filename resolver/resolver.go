/*
Copyright © 2016 the InMAP authors.
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

// Package resolver implements the pluggable VolumeValueResolver
// contract: given the up-to-four RadialSets enclosing a cell's virtual
// elevation, compute the cell's displayed value plus the weighted
// numerator/denominator pair Stage-2 will merge across radars.
package resolver

import (
	"math"

	"github.com/wxfusion/fusion/data"
)

// Layer is one enclosing tilt's sample at a query point: the moment
// value plus everything a resolver needs to judge its quality.
type Layer struct {
	Present           bool
	Value             float64
	ElevationDegs     float64
	BeamWidthDegs     float64
	HeightKMs         float64
	RangeKMs          float64
	TerrainCBBPercent float64
	BeamHitBottom     bool
	HaveTerrain       bool
}

// Query is the per-cell input every resolver reads (the VolumeValue
// equivalent): the virtual beam geometry at this grid cell, plus the
// up to four enclosing tilts already sampled by Stage-1.
type Query struct {
	VirtualAzDegs   float64
	VirtualElevDegs float64
	VirtualRangeKMs float64
	RadarHeightKMs  float64
	LayerHeightKMs  float64

	Lower, Upper, Lower2, Upper2 Layer
}

// Result is what a resolver writes back for one cell: DataValue is
// shown directly in a debug CAPPI; TopSum/BottomSum are the
// weighted numerator/denominator Stage-2 merges across radars via
// value = topSum/bottomSum.
type Result struct {
	DataValue float64
	TopSum    float64
	BottomSum float64
}

// Resolver computes a Result from a Query. GlobalWeight and
// VarianceWeight are resolver-wide tuning knobs Stage-1 sets once per
// radar (GlobalWeight defaults to 1; VarianceWeight defaults to
// 1/62500, the w2merger magic constant controlling how fast the
// range weight decays).
type Resolver interface {
	Calc(q *Query) Result
}

// RangeToWeight is the shared horizontal-range weight R(range) =
// exp(-range^2 * varianceWeight), used by resolvers that produce a
// Stage-2 weighted sum.
func RangeToWeight(rangeKMs, varianceWeight float64) float64 {
	return math.Exp(-(rangeKMs * rangeKMs) * varianceWeight)
}

// Registry maps a configured resolver name to its constructor.
var Registry = map[string]func() Resolver{
	"lak":      func() Resolver { return NewLak(1.0, 1.0/62500.0) },
	"robert":   func() Resolver { return &Robert{} },
	"nearest":  func() Resolver { return &Nearest{} },
	"range":    func() Resolver { return &RangeDiagnostic{} },
	"azimuth":  func() Resolver { return &AzimuthDiagnostic{} },
	"terrain":  func() Resolver { return &TerrainDiagnostic{} },
}

// New constructs the named resolver, or an error if name is not
// registered.
func New(name string) (Resolver, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, unknownResolver(name)
	}
	return factory(), nil
}

type unknownResolver string

func (e unknownResolver) Error() string { return "resolver: unknown volume value resolver " + string(e) }
