package importer

import (
	"encoding/json"
	"fmt"
	"os"

	"sofa-scene-importer/internal/timeline"
)

// ReportEntry is one object in the JSON report.
type ReportEntry struct {
	Object    string          `json:"object"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	MeshID    string          `json:"mesh_id,omitempty"`
	Frames    *timeline.Range `json:"frames,omitempty"`
	Keys      int             `json:"keys,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Report is the JSON form of a Summary.
type Report struct {
	RunID     string         `json:"run_id"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Frames    timeline.Range `json:"frames"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Meshes    struct {
		Loads    int `json:"loads"`
		Hits     int `json:"hits"`
		Failures int `json:"failures"`
	} `json:"meshes"`
	Objects []ReportEntry `json:"objects"`
}

// NewReport converts a summary.
func NewReport(s *Summary) Report {
	rep := Report{
		RunID:     s.RunID,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Frames:    s.Range,
		ElapsedMS: s.Elapsed.Milliseconds(),
		Objects:   make([]ReportEntry, len(s.Results)),
	}
	rep.Meshes.Loads = s.Meshes.Loads
	rep.Meshes.Hits = s.Meshes.Hits()
	rep.Meshes.Failures = s.Meshes.Failures

	for i, r := range s.Results {
		e := ReportEntry{Object: r.Object, Kind: r.Kind.String(), MeshID: r.MeshID}
		switch {
		case r.OK:
			e.Status = "ok"
			frames := r.Range
			e.Frames = &frames
			e.Keys = r.Keys
		case r.ErrorKind == KindSkipped:
			e.Status = "skipped"
		default:
			e.Status = "failed"
		}
		if r.Err != nil {
			e.ErrorKind = string(r.ErrorKind)
			e.Error = r.Err.Error()
		}
		rep.Objects[i] = e
	}
	return rep
}

// WriteReport writes the run report as indented JSON.
func WriteReport(path string, s *Summary) error {
	data, err := json.MarshalIndent(NewReport(s), "", "  ")
	if err != nil {
		return fmt.Errorf("importer: encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("importer: write report %s: %w", path, err)
	}
	return nil
}
