package upload

import (
	"context"
	"sync"

	"github.com/banshee-data/plyviz/internal/monitoring"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
)

// Reporter receives status updates while a batch runs.
type Reporter interface {
	FileStatus(FileUpdate)
	Progress(ProgressUpdate)
}

// Renderer draws a completed scene.
type Renderer interface {
	Render(ctx context.Context, s *scene.Scene) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, s *scene.Scene) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, s *scene.Scene) error { return f(ctx, s) }

// Recorder keeps every update in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	files    []FileUpdate
	progress []ProgressUpdate
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) FileStatus(u FileUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, u)
}

func (r *Recorder) Progress(u ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, u)
}

// Files returns a copy of the recorded file updates.
func (r *Recorder) Files() []FileUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FileUpdate(nil), r.files...)
}

// ProgressUpdates returns a copy of the recorded progress updates.
func (r *Recorder) ProgressUpdates() []ProgressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressUpdate(nil), r.progress...)
}

// Last returns the most recent progress update.
func (r *Recorder) Last() (ProgressUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.progress) == 0 {
		return ProgressUpdate{}, false
	}
	return r.progress[len(r.progress)-1], true
}

// LogReporter writes updates through monitoring.Logf.
type LogReporter struct{}

var logf = monitoring.Tagged("upload")

func (LogReporter) FileStatus(u FileUpdate) {
	logf("batch %.8s file %d %q: %s (%s, %d points) %s", u.BatchID, u.Index, u.Name, u.Status, u.RoleTag, u.Points, u.Message)
}

func (LogReporter) Progress(u ProgressUpdate) {
	logf("batch %.8s %s %d/%d (%d%%) %s", u.BatchID, u.State, u.Done, u.Total, u.Percent(), u.Message)
}

// multiReporter fans updates out to several reporters.
type multiReporter []Reporter

func (m multiReporter) FileStatus(u FileUpdate) {
	for _, r := range m {
		r.FileStatus(u)
	}
}

func (m multiReporter) Progress(u ProgressUpdate) {
	for _, r := range m {
		r.Progress(u)
	}
}

// Tee returns a reporter that forwards to each non-nil reporter.
func Tee(reporters ...Reporter) Reporter {
	var m multiReporter
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}
