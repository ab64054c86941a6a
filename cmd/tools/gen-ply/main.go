// Command gen-ply writes a synthetic laptop capture as three PLY files:
// static.ply, start_dynamic.ply and end_dynamic.ply.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
	"github.com/banshee-data/plyviz/internal/pointcloud/synthetic"
)

func main() {
	out := flag.String("out", "testdata", "output directory")
	static := flag.Int("points", 2000, "number of static points")
	dynamic := flag.Int("dynamic", 1500, "number of lid points")
	format := flag.String("format", "binary_little_endian", "ascii, binary_little_endian or binary_big_endian")
	seed := flag.Uint64("seed", 1, "random seed")
	color := flag.Bool("color", false, "add uchar red, green and blue properties")
	double := flag.Bool("double", false, "write coordinates as double")
	flag.Parse()

	f, err := ply.ParseFormat(*format)
	if err != nil {
		log.Fatal(err)
	}

	g := synthetic.NewGenerator(*seed)
	g.StaticPoints = *static
	g.DynamicPoints = *dynamic

	opts := synthetic.EncodeOptions{Format: f, Color: *color, Double: *double}
	written, err := generate(fsutil.OSFileSystem{}, *out, g, opts)
	if err != nil {
		log.Fatal(err)
	}
	for _, name := range written {
		log.Printf("✓ Created: %s", name)
	}
}

// generate writes one object's three captures into dir and returns the
// paths written.
func generate(fsys fsutil.FileSystem, dir string, g *synthetic.Generator, opts synthetic.EncodeOptions) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	obj := g.Generate()
	parts := []struct {
		name   string
		points ply.PointSet
	}{
		{"static.ply", obj.Static},
		{"start_dynamic.ply", obj.StartDynamic},
		{"end_dynamic.ply", obj.EndDynamic},
	}

	var written []string
	for _, p := range parts {
		var buf bytes.Buffer
		o := opts
		o.Comment = fmt.Sprintf("gen-ply %s, %d points", p.name, len(p.points))
		if err := synthetic.Encode(&buf, p.points, o); err != nil {
			return written, fmt.Errorf("failed to encode %s: %w", p.name, err)
		}
		path := filepath.Join(dir, p.name)
		if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
