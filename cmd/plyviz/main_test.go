package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/banshee-data/plyviz/internal/config"
	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
	"github.com/banshee-data/plyviz/internal/pointcloud/synthetic"
	"github.com/banshee-data/plyviz/internal/pointcloud/upload"
)

func writePLY(t *testing.T, fsys *fsutil.MemoryFileSystem, name string, points ply.PointSet) {
	t.Helper()
	var buf bytes.Buffer
	if err := synthetic.Encode(&buf, points, synthetic.EncodeOptions{Format: ply.FormatBinaryLittleEndian}); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	if err := fsys.WriteFile(name, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func laptopFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	g := synthetic.NewGenerator(1)
	g.StaticPoints = 50
	g.DynamicPoints = 20
	obj := g.Generate()

	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.MkdirAll("scans", 0755); err != nil {
		t.Fatal(err)
	}
	writePLY(t, fsys, "scans/static.ply", obj.Static)
	writePLY(t, fsys, "scans/start_dynamic.ply", obj.StartDynamic)
	writePLY(t, fsys, "scans/end_dynamic.ply", obj.EndDynamic)
	return fsys
}

func TestCollectFiles(t *testing.T) {
	fsys := laptopFS(t)
	fsys.WriteFile("scans/notes.txt", []byte("hi"), 0644)
	fsys.WriteFile("extra.PLY", []byte("ply"), 0644)

	got, err := collectFiles(fsys, []string{"scans", "extra.PLY"})
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	want := []string{
		filepath.Join("scans", "end_dynamic.ply"),
		filepath.Join("scans", "start_dynamic.ply"),
		filepath.Join("scans", "static.ply"),
		"extra.PLY",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectFiles = %v, want %v", got, want)
	}
}

func TestCollectFiles_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if _, err := collectFiles(fsys, nil); err == nil {
		t.Error("expected an error for no arguments")
	}
	if _, err := collectFiles(fsys, []string{"missing.ply"}); err == nil || !strings.Contains(err.Error(), "failed to stat") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestRun_WritesOutputs(t *testing.T) {
	fsys := laptopFS(t)
	paths, err := collectFiles(fsys, []string{"scans"})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "chart.html")
	pngPath := filepath.Join(dir, "chart.png")
	if err := run(context.Background(), fsys, config.EmptyVisualiserConfig(), paths, htmlPath, pngPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	html, err := fsys.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("html output missing: %v", err)
	}
	if !bytes.Contains(html, []byte("scatter3D")) {
		t.Error("html output has no scatter3D chart")
	}
	png, err := fsys.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("png output missing: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("png output is not a PNG")
	}
}

func TestRun_RejectsOutputExtension(t *testing.T) {
	fsys := laptopFS(t)
	out := filepath.Join(t.TempDir(), "chart.txt")
	err := run(context.Background(), fsys, config.EmptyVisualiserConfig(), []string{"scans/static.ply"}, out, "")
	if err == nil || !strings.Contains(err.Error(), ".html") {
		t.Errorf("expected extension error, got %v", err)
	}
}

func TestRun_FailedBatchWritesNothing(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("static.ply", []byte("not a ply file"), 0644)

	out := filepath.Join(t.TempDir(), "chart.html")
	if err := run(context.Background(), fsys, config.EmptyVisualiserConfig(), []string{"static.ply"}, out, ""); err == nil {
		t.Fatal("expected the batch to fail")
	}
	if _, err := fsys.Stat(out); err == nil {
		t.Error("output written for a failed batch")
	}
}

func TestRun_ValidatesBeforeReading(t *testing.T) {
	fsys := laptopFS(t)
	paths := []string{"scans/static.ply", "scans/start_dynamic.ply", "scans/end_dynamic.ply", "scans/missing.ply"}
	err := run(context.Background(), fsys, config.EmptyVisualiserConfig(), paths, "", "")
	if !errors.Is(err, upload.ErrTooManyFiles) {
		t.Errorf("four files: got %v, want ErrTooManyFiles", err)
	}

	err = run(context.Background(), fsys, config.EmptyVisualiserConfig(), []string{"scans/static.ply", "notes.json"}, "", "")
	if !errors.Is(err, upload.ErrExtension) {
		t.Errorf("json file: got %v, want ErrExtension", err)
	}
}

func TestRun_UnreadableFileIsNonFatal(t *testing.T) {
	fsys := laptopFS(t)
	out := filepath.Join(t.TempDir(), "chart.html")
	paths := []string{"scans/static.ply", "scans/gone.ply", "scans/end_dynamic.ply"}
	if err := run(context.Background(), fsys, config.EmptyVisualiserConfig(), paths, out, ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := fsys.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestPrintInfo(t *testing.T) {
	fsys := laptopFS(t)
	fsys.WriteFile("broken.ply", []byte("nope"), 0644)

	var buf bytes.Buffer
	if err := printInfo(&buf, fsys, []string{"scans/static.ply", "broken.ply"}); err != nil {
		t.Fatalf("printInfo: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "binary_little_endian, 50 vertices declared, 50 points decoded") {
		t.Errorf("unexpected summary %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "broken.ply: ") {
		t.Errorf("unexpected error line %q", lines[1])
	}
}

func TestApplyFlags(t *testing.T) {
	if err := flag.CommandLine.Set("seed", "7"); err != nil {
		t.Fatal(err)
	}
	if err := flag.CommandLine.Set("plane", "YZ"); err != nil {
		t.Fatal(err)
	}

	cfg := config.EmptyVisualiserConfig()
	applyFlags(cfg)
	if s, ok := cfg.GetSeed(); !ok || s != 7 {
		t.Errorf("seed = %d, %v; want 7, true", s, ok)
	}
	if cfg.GetProjectionPlane() != "yz" {
		t.Errorf("plane = %q, want yz", cfg.GetProjectionPlane())
	}
	if cfg.MaxVisibleMatches != nil {
		t.Error("max-visible applied without being set")
	}
}
