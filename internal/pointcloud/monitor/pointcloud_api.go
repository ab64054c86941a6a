package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/banshee-data/plyviz/internal/httputil"
	"github.com/banshee-data/plyviz/internal/pointcloud/cloudjson"
	"github.com/banshee-data/plyviz/internal/pointcloud/pairing"
	"github.com/banshee-data/plyviz/internal/pointcloud/render"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
	"github.com/banshee-data/plyviz/internal/pointcloud/upload"
	"github.com/banshee-data/plyviz/internal/security"
)

// uploadReport is the JSON body returned for every upload that got past
// form parsing.
type uploadReport struct {
	ID         string                  `json:"id,omitempty"`
	Files      []*upload.BatchFile     `json:"files"`
	Progress   []upload.ProgressUpdate `json:"progress"`
	Updates    []upload.FileUpdate     `json:"updates"`
	ChartURL   string                  `json:"chart_url,omitempty"`
	Summary    string                  `json:"summary,omitempty"`
	Error      string                  `json:"error,omitempty"`
	DurationMS int64                   `json:"duration_ms"`
}

// handleUpload runs one batch from the multipart field "files" and returns
// the batch report. The scene of a successful batch is kept for /chart.
func (ws *WebServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, ws.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit))
			return
		}
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := readUploads(r.MultipartForm.File["files"])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	orch := ws.sessionOrchestrator(w, r)
	rec := upload.NewRecorder()
	c := orch.NewContext(upload.Tee(rec, ws.reporter), nil)
	id := c.Batch.ID
	c.Renderer = upload.RendererFunc(func(_ context.Context, s *scene.Scene) error {
		ws.recent.Put(id, s)
		return nil
	})

	res, err := orch.Execute(r.Context(), c, files)

	report := uploadReport{
		ID:       id,
		Files:    c.Batch.Files,
		Progress: rec.ProgressUpdates(),
		Updates:  rec.Files(),
	}
	if last, ok := rec.Last(); ok {
		report.Summary = last.Message
	}
	if res != nil {
		report.DurationMS = res.Duration.Milliseconds()
	}
	if err != nil {
		report.Error = err.Error()
		log.Printf("upload batch %s failed: %v", id, err)
	} else {
		report.ChartURL = "/chart?id=" + url.QueryEscape(id)
	}
	httputil.WriteJSON(w, uploadStatus(err), report)
}

// uploadStatus maps a batch error to its HTTP status code.
func uploadStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, upload.ErrExtension),
		errors.Is(err, upload.ErrTooManyFiles),
		errors.Is(err, upload.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, upload.ErrStaleBatch):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

// sessionCookie identifies one browser. A new upload only supersedes the
// in-flight batch of the same session.
const sessionCookie = "plyviz_session"

// sessionOrchestrator returns the orchestrator of the requesting client,
// issuing a session cookie on first contact.
func (ws *WebServer) sessionOrchestrator(w http.ResponseWriter, r *http.Request) *upload.Orchestrator {
	id := ""
	if ck, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			id = ck.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
	return ws.sessions.GetOrAdd(id, func() *upload.Orchestrator {
		return upload.NewOrchestrator(ws.orchOpts, ws.reporter, nil)
	})
}

// readUploads reads every part fully. Names are sanitised before they
// reach the batch report; the extension survives sanitising.
func readUploads(headers []*multipart.FileHeader) ([]upload.File, error) {
	files := make([]upload.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
		}
		files = append(files, upload.File{Name: security.SanitizeFilename(fh.Filename), Data: data})
	}
	return files, nil
}

// handleChart renders the scene of a recent batch.
// Query params:
//
//	id (required) batch id from the upload report
//	format (optional) html (default) or png
//	plane (optional, png only) xy, xz or yz
func (ws *WebServer) handleChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return
	}
	s, ok := ws.recent.Get(id)
	if !ok {
		httputil.NotFound(w, "no visualization for batch "+id)
		return
	}

	switch q.Get("format") {
	case "", "html":
		var buf bytes.Buffer
		rdr := &render.EChartsRenderer{W: &buf, Width: ws.chartWidth, Height: ws.chartHeight, AssetsHost: ws.assetsHost}
		if err := rdr.Render(r.Context(), s); err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteHTML(w, buf.Bytes())
	case "png":
		ws.writeProjection(w, r, s)
	default:
		httputil.BadRequest(w, "format must be html or png")
	}
}

// handleMatch samples matches from a JSON body of explicit clouds and
// returns a PNG projection. Query param plane selects the projection.
// GET returns the unit cube example request.
func (ws *WebServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		if err := cloudjson.Encode(w, cloudjson.DefaultSample()); err != nil {
			log.Printf("failed to write sample request: %v", err)
		}
		return
	}

	req, err := cloudjson.Decode(http.MaxBytesReader(w, r.Body, ws.maxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds %d bytes", tooBig.Limit))
		case errors.Is(err, cloudjson.ErrInvalid):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.BadRequest(w, "failed to read request: "+err.Error())
		}
		return
	}

	merged := pairing.MergedClouds{Source: req.Source, Target: req.Target, StaticSize: req.StaticSize}
	_, sel := pairing.SampleClouds(merged, req.NumVisPoints, rand.New(rand.NewPCG(req.Seed, req.Seed)))

	s, err := scene.Build(req.Source, req.Target, sel, req.StaticSize, ws.sceneOpts)
	if err != nil {
		if errors.Is(err, scene.ErrEmptyInput) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ws.writeProjection(w, r, s)
}

func (ws *WebServer) writeProjection(w http.ResponseWriter, r *http.Request, s *scene.Scene) {
	plane := ws.plane
	if p := r.URL.Query().Get("plane"); p != "" {
		var err error
		if plane, err = render.ParsePlane(p); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	var buf bytes.Buffer
	rdr := &render.ProjectionRenderer{W: &buf, Plane: plane}
	if err := rdr.Render(r.Context(), s); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WritePNG(w, buf.Bytes())
}
