package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Common sentinel errors
var (
	ErrNoPoints        = errors.New("no point features supplied")
	ErrDuplicateID     = errors.New("duplicate feature ID")
	ErrDegenerateLine  = errors.New("line has fewer than two vertices")
	ErrUnknownMethod   = errors.New("unknown direction resolution method")
	ErrNotResolved     = errors.New("edge directions not resolved")
	ErrNodeNotFound    = errors.New("node not found")
	ErrNoOutlet        = errors.New("no outlet reachable")
	ErrMissingSinkSets = errors.New("classifier requires sink and source kind sets")
)

// UnmatchedEndpoint identifies a line endpoint that coincides with no node
// within the snapping tolerance.
type UnmatchedEndpoint struct {
	EdgeID uint64
	Last   bool // false for the first vertex, true for the last
	Coord  orb.Point
}

func (u UnmatchedEndpoint) String() string {
	end := "first"
	if u.Last {
		end = "last"
	}
	return fmt.Sprintf("edge %d %s vertex (%.3f, %.3f)", u.EdgeID, end, u.Coord[0], u.Coord[1])
}

// TopologyError reports structural defects in the input geometry that make
// graph construction impossible: line endpoints that match no structure
// within the snapping tolerance.
type TopologyError struct {
	Unmatched []UnmatchedEndpoint
	Tolerance float64
	Cause     error
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	if len(e.Unmatched) == 0 {
		return fmt.Sprintf("topology error: %v", e.Cause)
	}
	descs := make([]string, len(e.Unmatched))
	for i, u := range e.Unmatched {
		descs[i] = u.String()
	}
	return fmt.Sprintf(
		"%d line endpoints match no node within tolerance %g: %s",
		len(e.Unmatched), e.Tolerance, strings.Join(descs, "; "),
	)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TopologyError) Unwrap() error {
	return e.Cause
}

// AsTopologyError returns the TopologyError in err's chain, if any.
func AsTopologyError(err error) (*TopologyError, bool) {
	var te *TopologyError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
