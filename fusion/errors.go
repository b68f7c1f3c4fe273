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

// Package fusion holds the error taxonomy shared across the fusion
// engine's packages.
package fusion

import "fmt"

// Kind classifies an error by the policy that should be applied to it,
// per the error handling design: Configuration and Resource errors are
// fatal, Input and Geometry errors are logged and the offending record
// or value is dropped or clamped, and IPC errors cause the current
// source to be skipped for one tick.
type Kind int

const (
	// Unspecified is the zero value; treated like Input.
	Unspecified Kind = iota
	// Configuration covers unknown resolver/terrain/volume keys, a
	// missing DEM, or a malformed grid string. Fatal at startup.
	Configuration
	// Input covers an unreadable RadialSet, a missing radar-name
	// attribute, a mismatched radar across tilts, or an out-of-range
	// (x,y,z) triple in a Stage-2 ingest. Logged; the record is dropped.
	Input
	// Geometry covers NaN or out-of-domain projections. Clamped.
	Geometry
	// Resource covers bitmask allocation failure. Fatal.
	Resource
	// IPC covers a partial or missing cache/mask file. The affected
	// source is skipped for the current tick only.
	IPC
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Input:
		return "input"
	case Geometry:
		return "geometry"
	case Resource:
		return "resource"
	case IPC:
		return "ipc"
	default:
		return "unspecified"
	}
}

// Fatal reports whether errors of this kind should terminate the
// owning process rather than be logged and skipped.
func (k Kind) Fatal() bool {
	return k == Configuration || k == Resource
}

// Error is a kind-tagged error carrying the component it originated
// from for log correlation.
type Error struct {
	Kind      Kind
	Component string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with a kind and the component that produced it. Wrap
// returns nil if err is nil, so it is safe to call unconditionally on
// a function's own return value.
func Wrap(kind Kind, component string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Err: err}
}

// Newf builds a new kind-tagged error from a format string.
func Newf(kind Kind, component, format string, args ...interface{}) error {
	return &Error{Kind: kind, Component: component, Err: fmt.Errorf(format, args...)}
}
