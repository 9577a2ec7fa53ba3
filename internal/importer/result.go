package importer

import (
	"errors"
	"time"

	"sofa-scene-importer/internal/config"
	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/mesh"
	"sofa-scene-importer/internal/monitor"
	"sofa-scene-importer/internal/scene"
	"sofa-scene-importer/internal/timeline"
)

// ErrorKind classifies why an object was not imported.
type ErrorKind string

const (
	KindConfig    ErrorKind = "config"
	KindParse     ErrorKind = "parse"
	KindIO        ErrorKind = "io"
	KindMesh      ErrorKind = "mesh"
	KindSynthesis ErrorKind = "synthesis"
	KindApply     ErrorKind = "apply"
	KindSkipped   ErrorKind = "skipped"
)

var (
	// ErrRequiredObjectFailed is returned by Run, together with the full
	// summary, when an object marked required was not imported.
	ErrRequiredObjectFailed = errors.New("importer: required object failed")

	errSkipped = errors.New("not attempted after an earlier failure")
)

// Result is the outcome for one object.
type Result struct {
	Object   string
	Kind     descriptor.Kind
	OK       bool
	Instance scene.ObjectID
	MeshID   string
	Range    timeline.Range
	Keys     int

	Err       error
	ErrorKind ErrorKind
}

// Summary aggregates one run.
type Summary struct {
	RunID     string
	Results   []Result // declaration order
	Succeeded int
	Failed    int
	Skipped   int
	Range     timeline.Range
	Meshes    mesh.Stats
	Elapsed   time.Duration
}

// Result returns the result for the named object.
func (s *Summary) Result(name string) (Result, bool) {
	for _, r := range s.Results {
		if r.Object == name {
			return r, true
		}
	}
	return Result{}, false
}

// classifyLoad maps a trajectory load error. Anything that is not a parse
// or validation failure came from the filesystem.
func classifyLoad(err error) ErrorKind {
	var perr *monitor.ParseError
	switch {
	case errors.As(err, &perr):
		return KindParse
	case errors.Is(err, config.ErrInvalid):
		return KindConfig
	}
	return KindIO
}
