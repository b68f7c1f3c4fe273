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

// Package presmooth implements an optional pre-filter that runs on an
// incoming RadialSet before Stage-1 folds it into the virtual
// elevation volume.
package presmooth

import "github.com/wxfusion/fusion/data"

// LakRadialMovingAverage replaces each gate of every radial in rs with
// the mean of the "good" values in a window of 2*halfSize+1 gates
// centered on it, skipping missing/unavailable samples rather than
// treating them as zero. A gate is left untouched if its window never
// accumulates more than halfSize good samples (the edges of a radial,
// or a radial dominated by gaps).
//
// This is the moving-average prefilter described in Lakshmanan et al.
// 2006 ("A Real-Time, Three-Dimensional, Rapidly Updating,
// Heterogeneous Radar Merger Technique..."), page 10's discussion of
// virtual volumes and elevation influence -- the same cheap
// single-pass running-sum approach the paper's authors chose over a
// CONUS-plane weighted resample.
func LakRadialMovingAverage(rs *data.RadialSet, halfSize int) {
	if halfSize <= 0 {
		return
	}
	scaleFactor := halfSize * 2
	gates := rs.NumGates()

	work := make([]float64, gates)
	for radial := 0; radial < rs.NumRadials(); radial++ {
		n := 0
		sum := 0.0
		for j := 0; j < gates; j++ {
			work[j] = rs.Value(radial, j)

			switch {
			case j <= scaleFactor:
				if data.IsGood(work[j]) {
					sum += work[j]
					n++
				}
			default:
				if n > 0 && data.IsGood(work[j-scaleFactor-1]) {
					sum -= work[j-scaleFactor-1]
					n--
				}
				if data.IsGood(work[j]) {
					sum += work[j]
					n++
				}
			}

			if j >= scaleFactor && n > halfSize {
				rs.SetValue(radial, j-halfSize, sum/float64(n))
			}
		}
	}
}
