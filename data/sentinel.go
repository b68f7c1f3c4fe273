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

package data

// RangeFolded marks a gate where the moment value could not be
// dealiased, the third member of the sentinel trio alongside
// MissingData and DataUnavailable.
const RangeFolded = -99002.0

// IsGood reports whether v is a real moment value rather than one of
// the three sentinels.
func IsGood(v float64) bool {
	return v != MissingData && v != DataUnavailable && v != RangeFolded
}

// IsMaskable reports whether v is a value that should participate in
// resolver mask propagation: anything except DataUnavailable and
// RangeFolded (a true MissingData sample still counts, since a
// neighboring beam's blockage can "smear" a mask onto it).
func IsMaskable(v float64) bool {
	return v != DataUnavailable && v != RangeFolded
}
