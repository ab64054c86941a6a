package main

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
	"github.com/banshee-data/plyviz/internal/pointcloud/synthetic"
)

func TestGenerate(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	g := synthetic.NewGenerator(5)
	g.StaticPoints = 12
	g.DynamicPoints = 7

	written, err := generate(fsys, "out", g, synthetic.EncodeOptions{Format: ply.FormatBinaryBigEndian, Color: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("wrote %d files, want 3", len(written))
	}

	want := map[string]int{"static.ply": 12, "start_dynamic.ply": 7, "end_dynamic.ply": 7}
	for _, path := range written {
		raw, err := fsys.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		h, err := ply.ParseHeader(raw)
		if err != nil {
			t.Fatalf("header %s: %v", path, err)
		}
		if h.Format != ply.FormatBinaryBigEndian {
			t.Errorf("%s format = %s", path, h.Format)
		}
		points, err := ply.Decode(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if n := want[filepath.Base(path)]; len(points) != n {
			t.Errorf("%s has %d points, want %d", path, len(points), n)
		}
	}
}
