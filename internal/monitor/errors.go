package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord: a data line has the wrong field count, a non-numeric
	// or non-finite value, or a time earlier than the previous line.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyTrajectory: the file holds no data line at all, usually a
	// simulation that never recorded.
	ErrEmptyTrajectory = errors.New("empty trajectory")

	// ErrInconsistentVertexCount: a deformable record has a different number
	// of vertices than the first one (truncated write).
	ErrInconsistentVertexCount = errors.New("inconsistent vertex count")
)

// ParseError locates a trajectory failure. Line is 1-based, 0 when the error
// concerns the whole file.
type ParseError struct {
	Path   string
	Line   int
	Err    error
	Detail string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Detail == "" {
		return fmt.Sprintf("monitor: %s: %v", loc, e.Err)
	}
	return fmt.Sprintf("monitor: %s: %v: %s", loc, e.Err, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }
