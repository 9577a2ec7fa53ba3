package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sofa-scene-importer/internal/batch"
	"sofa-scene-importer/internal/config"
	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/mesh"
	"sofa-scene-importer/internal/monitor"
	"sofa-scene-importer/internal/scene"
	"sofa-scene-importer/internal/timeline"

	"github.com/google/uuid"
)

// Options tune a run. Zero FrameCount and Frequency defer to the descriptor.
type Options struct {
	Workers    int
	FrameStart int
	FrameCount int
	Frequency  int
	FailFast   bool

	Parse    batch.ParseFunc // nil means monitor.Parse
	Progress time.Duration
}

// Importer writes decoded scenes into a scene graph.
type Importer struct {
	Graph  scene.Graph
	Meshes *mesh.Cache
}

// New returns an importer writing into g. A nil cache loads OBJ files
// without texture lookup.
func New(g scene.Graph, meshes *mesh.Cache) *Importer {
	if meshes == nil {
		meshes = mesh.NewCache(mesh.OBJLoader{})
	}
	return &Importer{Graph: g, Meshes: meshes}
}

func (o Options) resolve(sc *descriptor.Scene) (Options, error) {
	if o.Workers <= 0 {
		return o, config.Invalid("options", "workers", "must be at least 1, got %d", o.Workers)
	}
	if o.Frequency < 0 {
		return o, config.Invalid("options", "frequency", "must be at least 1, got %d", o.Frequency)
	}
	if o.FrameCount < 0 {
		return o, config.Invalid("options", "frames", "must not be negative, got %d", o.FrameCount)
	}
	if o.Frequency == 0 {
		o.Frequency = max(sc.Frequency, 1)
	}
	if o.FrameCount == 0 {
		o.FrameCount = sc.Frames
	}
	return o, nil
}

// Run imports every object of sc.
//
// Trajectories are parsed in parallel first; objects are then meshed,
// synthesized and applied one by one in declaration order. A failing object
// is recorded and the rest continue unless FailFast is set. An object whose
// keys cannot all be applied is removed from the graph again. The scene
// frame range is set once at the end.
//
// Invalid options return a *config.Error before any file is read. If ctx is
// cancelled the run stops and returns ctx.Err() without a summary.
func (imp *Importer) Run(ctx context.Context, sc *descriptor.Scene, opts Options) (*Summary, error) {
	start := time.Now()
	opts, err := opts.resolve(sc)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	slog.InfoContext(ctx, "import started", "run", runID, "scene", sc.Path,
		"objects", len(sc.Objects), "workers", opts.Workers, "frequency", opts.Frequency)

	var jobs []batch.Job
	for _, o := range sc.Animated() {
		jobs = append(jobs, batch.Job{Name: o.Name, Path: o.Monitor, Kind: o.Kind})
	}
	loaded, err := batch.Run(ctx, batch.Config{
		Workers:   opts.Workers,
		Frequency: opts.Frequency,
		Parse:     opts.Parse,
		Progress:  opts.Progress,
	}, jobs)
	if err != nil {
		return nil, err
	}

	tl := timeline.Options{FrameStart: opts.FrameStart, FrameCount: opts.FrameCount}
	summary := &Summary{RunID: runID, Results: make([]Result, 0, len(sc.Objects))}
	var ranges []timeline.Range
	var required []string
	stopped := false

	for _, spec := range sc.Objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var r Result
		if stopped {
			r = Result{Object: spec.Name, Kind: spec.Kind, Err: errSkipped, ErrorKind: KindSkipped}
			summary.Skipped++
		} else {
			r = imp.importObject(ctx, spec, loaded[spec.Name], tl)
		}
		summary.Results = append(summary.Results, r)

		switch {
		case r.OK:
			summary.Succeeded++
			ranges = append(ranges, r.Range)
		case r.ErrorKind != KindSkipped:
			summary.Failed++
			stopped = opts.FailFast
		}
		if !r.OK && spec.Required {
			required = append(required, spec.Name)
		}
	}

	summary.Range = timeline.SceneRange(tl, ranges...)
	if err := imp.Graph.SetFrameRange(summary.Range); err != nil {
		return summary, fmt.Errorf("importer: set frame range %s: %w", summary.Range, err)
	}
	summary.Meshes = imp.Meshes.Stats()
	summary.Elapsed = time.Since(start)

	slog.InfoContext(ctx, "import finished", "run", runID,
		"succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", summary.Skipped,
		"frames", summary.Range.String(), "meshes", summary.Meshes.Handles,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	if len(required) > 0 {
		return summary, fmt.Errorf("%w: %s", ErrRequiredObjectFailed, strings.Join(required, ", "))
	}
	return summary, nil
}

func (imp *Importer) importObject(ctx context.Context, spec descriptor.ObjectSpec, loaded batch.Result, tl timeline.Options) Result {
	r := Result{Object: spec.Name, Kind: spec.Kind}
	fail := func(kind ErrorKind, err error) Result {
		r.Err, r.ErrorKind = err, kind
		slog.WarnContext(ctx, "object failed", "object", spec.Name, "kind", string(kind), "err", err)
		return r
	}

	var traj monitor.Trajectory
	if spec.Kind.Animated() {
		if loaded.Err != nil {
			return fail(classifyLoad(loaded.Err), loaded.Err)
		}
		traj = loaded.Trajectory
		r.Kind = traj.Kind()
	}

	h, err := imp.Meshes.Resolve(spec.Mesh)
	if err != nil {
		return fail(KindMesh, err)
	}
	r.MeshID = h.ID

	sched, err := timeline.Synthesize(spec, traj, h.VertexCount(), tl)
	if err != nil {
		return fail(KindSynthesis, err)
	}

	id, err := imp.apply(spec.Name, h, sched)
	if err != nil {
		return fail(KindApply, err)
	}

	r.OK = true
	r.Instance = id
	r.Range = sched.Range
	r.Keys = sched.Keys()
	slog.InfoContext(ctx, "object imported", "object", spec.Name, "kind", r.Kind.String(),
		"keys", r.Keys, "frames", r.Range.String())
	return r
}

// apply writes one schedule. On failure the partial instance is removed.
func (imp *Importer) apply(name string, h *mesh.Handle, s *timeline.Schedule) (scene.ObjectID, error) {
	id, err := imp.Graph.Instantiate(name, h, s.Base)
	if err != nil {
		return 0, fmt.Errorf("importer: instantiate %s: %w", name, err)
	}

	err = func() error {
		for _, k := range s.Poses {
			if err := imp.Graph.SetPoseKey(id, k.Frame, k.Pose); err != nil {
				return fmt.Errorf("importer: %s pose key at frame %d: %w", name, k.Frame, err)
			}
		}
		for _, k := range s.Vertices {
			if err := imp.Graph.SetVertexKey(id, k.Frame, k.Positions); err != nil {
				return fmt.Errorf("importer: %s vertex key at frame %d: %w", name, k.Frame, err)
			}
		}
		return nil
	}()
	if err != nil {
		if rerr := imp.Graph.Remove(id); rerr != nil {
			slog.Error("partial object not removed", "object", name, "err", rerr)
		}
		return 0, err
	}
	return id, nil
}
