package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"sofa-scene-importer/internal/config"
	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/importer"
	"sofa-scene-importer/internal/mesh"
	"sofa-scene-importer/internal/scene"
	"sofa-scene-importer/internal/texture"

	"github.com/spf13/cobra"
)

// errFailures makes the process exit non-zero after a completed run.
var errFailures = errors.New("some objects failed to import")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		flags      config.Flags
	)

	cmd := &cobra.Command{
		Use:           "scene-import <scene.toml|scene.yaml>",
		Short:         "Import SOFA simulation trajectories into a keyframed scene",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.WorkersSet = cmd.Flags().Changed("workers")
			return run(cmd.Context(), configFile, flags, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to "+config.FileName+" (default: auto-detect)")
	f.IntVar(&flags.Workers, "workers", 0, fmt.Sprintf("Trajectory parser goroutines (default: %d)", config.DefaultWorkers))
	f.IntVar(&flags.FrameStart, "frame-start", 0, "First scene frame")
	f.IntVar(&flags.Frames, "frames", 0, "Total frame count (default: trajectory length)")
	f.IntVar(&flags.Frequency, "frequency", 0, "Keep every Nth trajectory record (default: descriptor value)")
	f.BoolVar(&flags.FailFast, "fail-fast", false, "Stop at the first failed object")
	f.StringVar(&flags.Report, "report", "", "Write a JSON import report to this file")
	f.StringVar(&flags.Output, "out", "", "Write the baked scene as JSON to this file")
	f.StringVar(&flags.TextureDir, "texture-dir", "", "Directory searched for textures missing at their MTL path")
	f.IntVar(&flags.MaxTextureSize, "max-texture-size", 0, "Downscale textures larger than this (0: keep)")
	f.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error (default: info)")
	return cmd
}

func run(ctx context.Context, configFile string, flags config.Flags, scenePath string) error {
	if configFile == "" {
		configFile = config.FindFile()
	}

	// Load config
	var cfg config.Config
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	}

	// CLI flags override config file
	if err := cfg.Resolve(flags); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sc, err := descriptor.Load(scenePath)
	if err != nil {
		return err
	}

	texIndex := texture.BuildIndex(cfg.TextureDir)
	texCache := texture.NewCache(texIndex, cfg.MaxTextureSize)
	meshes := mesh.NewCache(mesh.OBJLoader{Textures: texCache})
	graph := scene.NewMemory()

	fmt.Printf("SOFA scene import: %s\n", scenePath)
	fmt.Printf("Objects: %d (%d animated), Workers: %d\n", len(sc.Objects), len(sc.Animated()), cfg.Workers)
	if texIndex.Len() > 0 {
		fmt.Printf("Textures: %d indexed\n", texIndex.Len())
	}
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	summary, runErr := importer.New(graph, meshes).Run(ctx, sc, importer.Options{
		Workers:    cfg.Workers,
		FrameStart: cfg.FrameStart,
		FrameCount: cfg.Frames,
		Frequency:  cfg.Frequency,
		FailFast:   cfg.FailFast,
	})
	if summary == nil {
		return runErr
	}

	printSummary(summary)

	if cfg.Report != "" {
		if err := importer.WriteReport(cfg.Report, summary); err != nil {
			return err
		}
		fmt.Printf("Report: %s\n", cfg.Report)
	}
	if cfg.Output != "" {
		if err := writeScene(cfg.Output, graph); err != nil {
			return err
		}
		fmt.Printf("Scene: %s\n", cfg.Output)
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 || summary.Skipped > 0 {
		return errFailures
	}
	return nil
}

func printSummary(s *importer.Summary) {
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs (run %s)\n", s.Elapsed.Seconds(), s.RunID)
	fmt.Printf("Imported: %d/%d, frames %s\n", s.Succeeded, len(s.Results), s.Range)
	fmt.Printf("Meshes: %d loaded, %d reused, %d failed\n", s.Meshes.Loads, s.Meshes.Hits(), s.Meshes.Failures)

	for _, r := range s.Results {
		if r.OK {
			fmt.Printf("  ok      %-24s %-10s %4d keys  %s\n", r.Object, r.Kind, r.Keys, r.Range)
			continue
		}
		fmt.Printf("  %-7s %-24s %v\n", r.ErrorKind, r.Object, r.Err)
	}
}

func writeScene(path string, g *scene.Memory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write scene %s: %w", path, err)
	}
	if err := g.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
