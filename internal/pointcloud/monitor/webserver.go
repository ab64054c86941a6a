// Package monitor serves the upload form and the point-cloud HTTP API.
package monitor

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/banshee-data/plyviz/internal/config"
	"github.com/banshee-data/plyviz/internal/httputil"
	"github.com/banshee-data/plyviz/internal/pointcloud/render"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
	"github.com/banshee-data/plyviz/internal/pointcloud/upload"
	"github.com/banshee-data/plyviz/internal/timeutil"
	"github.com/banshee-data/plyviz/internal/version"
)

// multipartMemory is the part of a multipart upload kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

// maxSessions bounds the number of clients whose batch sequence is tracked.
const maxSessions = 64

// WebServer handles the HTTP interface for uploading and viewing clouds.
type WebServer struct {
	address   string
	server    *http.Server
	orchOpts  upload.Options
	sessions  *lru[*upload.Orchestrator]
	reporter  upload.Reporter
	pages     Pages
	recent    *lru[*scene.Scene]
	clock     timeutil.Clock

	sceneOpts      scene.Options
	maxFiles       int
	maxUploadBytes int64
	chartWidth     string
	chartHeight    string
	assetsHost     string
	plane          render.Plane
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	// Config supplies pipeline and server settings; nil selects defaults.
	Config *config.VisualiserConfig
	// Reporter receives every batch update in addition to the per-request
	// recorder. Defaults to upload.LogReporter.
	Reporter   upload.Reporter
	Pages      Pages
	Clock      timeutil.Clock
	AssetsHost string
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(cfg WebServerConfig) (*WebServer, error) {
	vc := cfg.Config
	if vc == nil {
		vc = config.EmptyVisualiserConfig()
	}
	if err := vc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	plane, err := render.ParsePlane(vc.GetProjectionPlane())
	if err != nil {
		return nil, err
	}
	if cfg.Address == "" {
		cfg.Address = vc.GetListenAddr()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = upload.LogReporter{}
	}
	if cfg.Pages == nil {
		cfg.Pages = DefaultPages()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	opts := upload.OptionsFromConfig(vc)
	opts.Clock = cfg.Clock

	ws := &WebServer{
		address:        cfg.Address,
		orchOpts:       opts,
		sessions:       newLRU[*upload.Orchestrator](maxSessions),
		reporter:       cfg.Reporter,
		pages:          cfg.Pages,
		recent:         newLRU[*scene.Scene](vc.GetRecentBatches()),
		clock:          cfg.Clock,
		sceneOpts:      opts.Scene,
		maxFiles:       opts.MaxFiles,
		maxUploadBytes: vc.GetMaxUploadBytes(),
		chartWidth:     vc.GetChartWidth(),
		chartHeight:    vc.GetChartHeight(),
		assetsHost:     cfg.AssetsHost,
		plane:          plane,
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return ws, nil
}

// Handler returns the routed handler, for embedding or tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start runs the server until ctx is cancelled, then shuts it down.
func (ws *WebServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ws.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.address, err)
	}
	return ws.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (ws *WebServer) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Close stops the server immediately.
func (ws *WebServer) Close() error {
	return ws.server.Close()
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleIndex)
	mux.HandleFunc("/chart", ws.handleChart)
	mux.HandleFunc("/api/pointcloud/upload", ws.handleUpload)
	mux.HandleFunc("/api/pointcloud/match", ws.handleMatch)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":    "ok",
		"service":   "plyviz",
		"version":   version.Version,
		"recent":    ws.recent.Len(),
		"timestamp": ws.clock.Now().UTC().Format(time.RFC3339),
	})
}

type indexPage struct {
	Title    string
	MaxFiles int
	Version  string
}

func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := indexPage{Title: "PLY point cloud matches", MaxFiles: ws.maxFiles, Version: version.String("plyviz")}
	if err := ws.pages.Render(w, "upload.html", page); err != nil {
		log.Printf("failed to render upload page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
