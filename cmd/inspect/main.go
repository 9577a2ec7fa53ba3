package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sofa-scene-importer/internal/mesh"
	"sofa-scene-importer/internal/monitor"
	"sofa-scene-importer/internal/texture"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect <mesh.obj|monitor.txt>...")
		os.Exit(2)
	}
	failed := false
	for _, path := range os.Args[1:] {
		var err error
		if strings.EqualFold(filepath.Ext(path), ".obj") {
			err = inspectMesh(path)
		} else {
			err = inspectMonitor(path)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspectMesh(path string) error {
	g, err := mesh.LoadOBJ(path, texture.NewCache(nil, 0))
	if err != nil {
		return err
	}
	fmt.Printf("%s: verts=%d, normals=%d, uvs=%d, faces=%d, tris=%d\n",
		path, len(g.Vertices), len(g.Normals), len(g.UVs), len(g.Faces), g.Triangles())

	lo, hi := g.Bounds()
	fmt.Printf("  BBox: X[%.3f, %.3f] Y[%.3f, %.3f] Z[%.3f, %.3f]\n", lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	size := hi.Sub(lo)
	fmt.Printf("  Size: %.3f x %.3f x %.3f\n", size[0], size[1], size[2])

	for _, grp := range g.Groups {
		fmt.Printf("  Group %q: faces %d-%d\n", grp.Name, grp.First, grp.First+grp.Count-1)
	}
	for _, m := range g.Materials {
		tex := "none"
		switch {
		case m.Texture != nil:
			tex = fmt.Sprintf("%s (%dx%d)", m.DiffuseMap, m.Texture.Bounds().Dx(), m.Texture.Bounds().Dy())
		case m.DiffuseMap != "":
			tex = m.DiffuseMap + " (missing)"
		}
		fmt.Printf("  Material %q: Kd=%.2f d=%.2f map=%s\n", m.Name, m.Diffuse, m.Opacity, tex)
	}
	return nil
}

func inspectMonitor(path string) error {
	info, err := monitor.Stat(path)
	if err != nil {
		return err
	}
	kind := "deformable"
	if info.Width == 8 {
		kind = "rigid"
	}
	fmt.Printf("%s: %s, records=%d, fields=%d\n", path, kind, info.Records, info.Width)
	fmt.Printf("  Time: %.6g .. %.6g, step %.6g\n", info.First, info.Last, info.Step)
	if kind == "deformable" {
		fmt.Printf("  Vertices per record: %d\n", (info.Width-1)/3)
	}
	if len(info.Particles) > 0 {
		fmt.Printf("  Particles: %d (first %d, last %d)\n", len(info.Particles), info.Particles[0], info.Particles[len(info.Particles)-1])
	}
	return nil
}
