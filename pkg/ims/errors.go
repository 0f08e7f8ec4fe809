// Package ims locates image data inside Imaris IMS containers.
//
// An IMS file is a hierarchical store following a fixed key-naming
// convention: a DataSet root group containing "ResolutionLevel N" groups,
// each containing "TimePoint N" groups, each containing "Channel N" groups,
// each holding the pixel payload in a dataset named "Data". This package
// resolves a Selector against that convention and reads the selected array.
package ims

import (
	"errors"
	"fmt"
)

// NavKind classifies navigation failures inside a container.
type NavKind int

const (
	// NoResolutionLevels means the DataSet group holds no
	// "ResolutionLevel"-prefixed children.
	NoResolutionLevels NavKind = iota

	// NoTimePoints means the resolution level holds no
	// "TimePoint"-prefixed children.
	NoTimePoints

	// NoChannels means the timepoint holds no "Channel"-prefixed children.
	NoChannels

	// NoDataNode means the selected channel has no "Data" dataset.
	NoDataNode

	// IndexOutOfRange means a requested timepoint, channel or Z index
	// exceeds what the container provides.
	IndexOutOfRange
)

// NavigationError reports a failure to locate the pixel dataset.
type NavigationError struct {
	Kind NavKind

	// Group names the key group being resolved ("TimePoint", "Channel", ...).
	Group string

	// Requested and Available are set for IndexOutOfRange.
	Requested int
	Available int
}

func (e *NavigationError) Error() string {
	switch e.Kind {
	case NoResolutionLevels:
		return "no resolution levels found in container"
	case NoTimePoints:
		return "no timepoint data found in container"
	case NoChannels:
		return "no channel data found in container"
	case NoDataNode:
		return fmt.Sprintf("no image data found under %q", e.Group)
	case IndexOutOfRange:
		return fmt.Sprintf("%s index %d out of range [0, %d)", e.Group, e.Requested, e.Available)
	}
	return "container navigation failed"
}

// ErrResolutionUnsupported is returned when a selector asks for a resolution
// level other than 0. Only the full-resolution tier is supported.
var ErrResolutionUnsupported = errors.New("only resolution level 0 is supported")
