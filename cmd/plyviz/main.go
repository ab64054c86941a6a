// Command plyviz visualises ground-truth matches between PLY captures of
// an articulated object. It renders up to three files (static, start
// dynamic, end dynamic) to an interactive HTML chart and/or a PNG
// projection, or serves the upload form with -listen.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/plyviz/internal/config"
	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/pointcloud/monitor"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
	"github.com/banshee-data/plyviz/internal/pointcloud/render"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
	"github.com/banshee-data/plyviz/internal/pointcloud/upload"
	"github.com/banshee-data/plyviz/internal/security"
	"github.com/banshee-data/plyviz/internal/version"
)

var (
	configPath  = flag.String("config", "", "JSON config file (defaults are built in)")
	htmlOut     = flag.String("html", "", "write the interactive 3D chart to this .html file")
	pngOut      = flag.String("png", "", "write a 2D projection to this .png file")
	plane       = flag.String("plane", "", "projection plane for -png: xy, xz or yz (overrides config)")
	listen      = flag.String("listen", "", "serve the upload form on this address instead of rendering files")
	seed        = flag.Uint64("seed", 0, "sampling seed (overrides config)")
	maxVisible  = flag.Int("max-visible", 0, "number of matches to highlight (overrides config)")
	info        = flag.Bool("info", false, "print the header and point count of each file and exit")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: plyviz [flags] file.ply|dir ...\n       plyviz -listen addr\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("plyviz"))
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listen != "" {
		ws, err := monitor.NewWebServer(monitor.WebServerConfig{Address: *listen, Config: cfg})
		if err != nil {
			log.Fatalf("failed to create web server: %v", err)
		}
		if err := ws.Start(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	fsys := fsutil.OSFileSystem{}
	paths, err := collectFiles(fsys, flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	if *info {
		if err := printInfo(os.Stdout, fsys, paths); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *htmlOut == "" && *pngOut == "" {
		*htmlOut = "plyviz.html"
	}
	if err := run(ctx, fsys, cfg, paths, *htmlOut, *pngOut); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(p string) (*config.VisualiserConfig, error) {
	if p == "" {
		return config.EmptyVisualiserConfig(), nil
	}
	return config.LoadVisualiserConfig(p)
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cfg *config.VisualiserConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			s := *seed
			cfg.Seed = &s
		case "max-visible":
			n := *maxVisible
			cfg.MaxVisibleMatches = &n
		case "plane":
			p := *plane
			cfg.ProjectionPlane = &p
		}
	})
}

// collectFiles expands directory arguments to the .ply files they hold,
// in name order. Plain file arguments are kept as given.
func collectFiles(fsys fsutil.FileSystem, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no input files; see -help")
	}
	var paths []string
	for _, arg := range args {
		st, err := fsys.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !st.IsDir() {
			paths = append(paths, arg)
			continue
		}
		names, err := fsys.ListFiles(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", arg, err)
		}
		for _, name := range names {
			if strings.EqualFold(path.Ext(name), ".ply") {
				paths = append(paths, filepath.Join(arg, name))
			}
		}
	}
	return paths, nil
}

// run processes paths as one batch and writes the requested outputs.
func run(ctx context.Context, fsys fsutil.FileSystem, cfg *config.VisualiserConfig, paths []string, htmlPath, pngPath string) error {
	for _, out := range []struct{ path, ext string }{{htmlPath, ".html"}, {pngPath, ".png"}} {
		if out.path == "" {
			continue
		}
		if err := security.ValidateOutputPath(out.path, out.ext); err != nil {
			return err
		}
	}

	// Files are read by the orchestrator, after the batch is validated.
	files := make([]upload.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, upload.FileFromFS(fsys, p))
	}

	renderers, flush, err := outputs(cfg, htmlPath, pngPath)
	if err != nil {
		return err
	}

	orch := upload.NewOrchestrator(upload.OptionsFromConfig(cfg), upload.LogReporter{}, renderers)
	res, err := orch.Run(ctx, files)
	if err != nil {
		return err
	}
	if err := flush(fsys); err != nil {
		return err
	}
	log.Printf("rendered %d highlighted matches in %s", len(res.Selection), res.Duration)
	return nil
}

type pendingOutput struct {
	path string
	buf  *bytes.Buffer
}

// outputs builds one renderer for every requested output. Rendering goes
// to memory; flush writes the files once the whole batch has succeeded.
func outputs(cfg *config.VisualiserConfig, htmlPath, pngPath string) (upload.Renderer, func(fsutil.FileSystem) error, error) {
	var pending []pendingOutput
	var list []upload.Renderer

	if htmlPath != "" {
		buf := &bytes.Buffer{}
		pending = append(pending, pendingOutput{htmlPath, buf})
		list = append(list, &render.EChartsRenderer{W: buf, Width: cfg.GetChartWidth(), Height: cfg.GetChartHeight()})
	}
	if pngPath != "" {
		pl, err := render.ParsePlane(cfg.GetProjectionPlane())
		if err != nil {
			return nil, nil, err
		}
		buf := &bytes.Buffer{}
		pending = append(pending, pendingOutput{pngPath, buf})
		list = append(list, &render.ProjectionRenderer{W: buf, Plane: pl})
	}

	renderer := upload.RendererFunc(func(ctx context.Context, s *scene.Scene) error {
		for _, r := range list {
			if err := r.Render(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	flush := func(fsys fsutil.FileSystem) error {
		for _, p := range pending {
			if err := fsys.WriteFile(p.path, p.buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", p.path, err)
			}
			log.Printf("wrote %s (%d bytes)", p.path, p.buf.Len())
		}
		return nil
	}
	return renderer, flush, nil
}

// printInfo writes one summary line per file.
func printInfo(w io.Writer, fsys fsutil.FileSystem, paths []string) error {
	for _, p := range paths {
		raw, err := fsys.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		h, err := ply.ParseHeader(raw)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", p, err)
			continue
		}
		points, err := ply.Decode(raw)
		if err != nil {
			fmt.Fprintf(w, "%s: %s, %d vertices declared: %v\n", p, h.Format, h.VertexCount, err)
			continue
		}
		names := make([]string, len(h.Properties))
		for i, prop := range h.Properties {
			names[i] = prop.Name + ":" + prop.Type.String()
		}
		fmt.Fprintf(w, "%s: %s, %d vertices declared, %d points decoded, properties [%s]",
			p, h.Format, h.VertexCount, len(points), strings.Join(names, " "))
		if len(h.Skipped) > 0 {
			fmt.Fprintf(w, ", skipped [%s]", strings.Join(h.Skipped, " "))
		}
		fmt.Fprintln(w)
	}
	return nil
}
