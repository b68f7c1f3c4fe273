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

package resolver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wxfusion/fusion/data"
)

// Constants from Lakshman et al. (2006), "Real-Time 3-D Heterogeneous
// Radar Merger": the paper's S-curve elevation weight and its
// threshold/clamping knobs.
const (
	terrainPercent  = 0.50
	maxSpreadDegs   = 4.0
	beamwidthThresh = 0.50
	elevThresh      = 0.45
)

// lakElevFactor is ln(0.005), the formula constant from the paper.
var lakElevFactor = math.Log(0.005)

// Lak is the primary VolumeValueResolver: an S-curve weighted average
// of up to four enclosing tilts, falling back to mask propagation when
// no tilt qualifies.
type Lak struct {
	GlobalWeight   float64
	VarianceWeight float64
}

// NewLak constructs a Lak resolver with the given per-radar weight
// multipliers (GlobalWeight usually 1, VarianceWeight usually
// 1/62500).
func NewLak(globalWeight, varianceWeight float64) *Lak {
	return &Lak{GlobalWeight: globalWeight, VarianceWeight: varianceWeight}
}

// tiltContribution is one tilt's processed weight/value/mask-eligibility,
// mirroring the unexported processTilt helper: it is pure function of
// the layer, the virtual elevation, and the tilt spread, and is used
// identically for all four enclosing tilts.
type tiltContribution struct {
	good      bool
	maskable  bool
	inThresh  bool
	weight    float64
	value     float64
	qualifies bool
}

func processTilt(l Layer, virtualElevDegs, spreadDegs float64) tiltContribution {
	var c tiltContribution
	if !l.Present {
		return c
	}
	if l.TerrainCBBPercent > terrainPercent || l.BeamHitBottom {
		return c // terrain-blocked tilts never contribute and never mask
	}

	alphaTop := math.Abs(virtualElevDegs - l.ElevationDegs)

	c.good = data.IsGood(l.Value)
	c.maskable = data.IsMaskable(l.Value)
	c.value = l.Value

	spreadReasonable := spreadDegs > 1.0 && spreadDegs <= maxSpreadDegs
	alphaBottom := 1.0
	if spreadReasonable {
		alphaBottom = spreadDegs
	}

	alpha := alphaTop / alphaBottom
	c.weight = math.Exp(alpha * alpha * alpha * lakElevFactor)
	c.inThresh = c.weight > elevThresh
	c.qualifies = c.good && c.inThresh

	return c
}

// Calc implements the Lak weighted-average/mask-fallback algorithm
// described in the component design: accumulate weight*value across
// every qualifying tilt; if none qualify, fall back to mask logic
// driven by which of the nearer two tilts (lower/upper) were
// maskable-and-in-threshold, or maskable on both sides (a "smear").
func (r *Lak) Calc(q *Query) Result {
	spread := 0.0
	if q.Lower.Present && q.Upper.Present {
		spread = math.Abs(q.Upper.ElevationDegs - q.Lower.ElevationDegs)
	}

	lower := processTilt(q.Lower, q.VirtualElevDegs, spread)

	spread2 := 0.0
	if q.Upper.Present && q.Lower2.Present {
		spread2 = math.Abs(q.Upper.ElevationDegs - q.Lower2.ElevationDegs)
	}
	lower2 := processTilt(q.Lower2, q.VirtualElevDegs, spread2)

	upper := processTilt(q.Upper, q.VirtualElevDegs, spread)

	spread3 := 0.0
	if q.Lower.Present && q.Upper2.Present {
		spread3 = math.Abs(q.Upper2.ElevationDegs - q.Lower.ElevationDegs)
	}
	upper2 := processTilt(q.Upper2, q.VirtualElevDegs, spread3)

	var weights, values []float64
	for _, c := range []tiltContribution{lower, upper, lower2, upper2} {
		if c.qualifies {
			weights = append(weights, c.weight)
			values = append(values, c.value)
		}
	}

	if len(weights) > 0 {
		rw := RangeToWeight(q.VirtualRangeKMs, r.VarianceWeight)
		aV := floats.Dot(weights, values) / floats.Sum(weights)
		return Result{
			DataValue: aV,
			TopSum:    r.GlobalWeight * (rw * aV),
			BottomSum: r.GlobalWeight * rw,
		}
	}

	missingMask := (lower.inThresh && lower.maskable) ||
		(upper.inThresh && upper.maskable) ||
		(lower.maskable && upper.maskable)

	v := data.DataUnavailable
	if missingMask {
		v = data.MissingData
	}
	return Result{DataValue: v, TopSum: v, BottomSum: 1.0}
}
