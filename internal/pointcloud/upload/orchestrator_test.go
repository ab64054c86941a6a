package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/monitoring"
	"github.com/banshee-data/plyviz/internal/pointcloud/pairing"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
	"github.com/banshee-data/plyviz/internal/timeutil"
)

// plyFile returns an ASCII PLY file holding n points starting at base.
func plyFile(name string, n int, base float64) File {
	var b strings.Builder
	fmt.Fprintf(&b, "ply\nformat ascii 1.0\nelement vertex %d\nproperty float x\nproperty float y\nproperty float z\nend_header\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%g %g %g\n", base+float64(i), base, float64(i)/2)
	}
	return File{Name: name, Data: []byte(b.String())}
}

func newTestOrchestrator(rep Reporter, r Renderer) *Orchestrator {
	seed := uint64(42)
	clock := timeutil.NewSteppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), time.Millisecond)
	return NewOrchestrator(Options{Seed: &seed, Clock: clock}, rep, r)
}

func doneSequence(updates []ProgressUpdate) []int {
	out := make([]int, len(updates))
	for i, u := range updates {
		out[i] = u.Done
	}
	return out
}

// countingFile returns a File whose loader counts its calls and fails.
func countingFile(name string, calls *int) File {
	return File{Name: name, Load: func(context.Context) (ply.PointSet, error) {
		*calls++
		return nil, errors.New("unreadable")
	}}
}

func TestRun_TooManyFilesReadsNothing(t *testing.T) {
	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)

	var loads int
	files := []File{countingFile("a.ply", &loads), countingFile("b.ply", &loads), countingFile("c.ply", &loads), countingFile("d.ply", &loads)}
	res, err := o.Run(context.Background(), files)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Nil(t, res)
	assert.Empty(t, rec.Files())
	assert.Zero(t, loads)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, StateError, last.State)
}

func TestRun_ExtensionCheckedFirst(t *testing.T) {
	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)

	var loads int
	_, err := o.Run(context.Background(), []File{countingFile("static.ply", &loads), countingFile("notes.json", &loads)})
	require.ErrorIs(t, err, ErrExtension)
	assert.Zero(t, loads)
	assert.Contains(t, err.Error(), "notes.json")
	assert.NotContains(t, err.Error(), "static.ply")
	assert.Empty(t, rec.Files())

	// Four files with one bad extension report the extension.
	_, err = o.Run(context.Background(), []File{{Name: "a.ply"}, {Name: "b.ply"}, {Name: "c.PLY"}, {Name: "d.txt"}})
	assert.ErrorIs(t, err, ErrExtension)
}

func TestValidate(t *testing.T) {
	o := NewOrchestrator(Options{}, nil, nil)
	assert.ErrorIs(t, o.Validate(nil), ErrNoFiles)
	assert.NoError(t, o.Validate([]File{{Name: "UPPER.PLY"}}))
	assert.ErrorIs(t, o.Validate([]File{{Name: "archive.ply.gz"}}), ErrExtension)
}

func TestRun_ThreeFiles(t *testing.T) {
	rec := NewRecorder()
	var rendered *scene.Scene
	o := newTestOrchestrator(rec, RendererFunc(func(_ context.Context, s *scene.Scene) error {
		rendered = s
		return nil
	}))

	files := []File{
		plyFile("static.ply", 2, 0),
		plyFile("start_dynamic.ply", 2, 10),
		plyFile("end_dynamic.ply", 2, 20),
	}
	res, err := o.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Len(t, res.Merged.Source, 4)
	assert.Len(t, res.Merged.Target, 4)
	assert.Equal(t, 2, res.Merged.StaticSize)
	assert.Equal(t, []pairing.MatchPair{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, res.Pairs)
	assert.Len(t, res.Selection, 4)
	require.NotNil(t, res.Scene)
	assert.Same(t, res.Scene, rendered)
	assert.Equal(t, scene.ModeDual, res.Scene.Mode)

	for i, want := range []pairing.Role{pairing.RoleStatic, pairing.RoleStartDynamic, pairing.RoleEndDynamic} {
		f := res.Batch.Files[i]
		assert.Equal(t, want, f.Role)
		assert.Equal(t, StatusSuccess, f.Status)
		assert.Equal(t, 2, f.Points)
		assert.False(t, f.Fallback)
	}

	progress := rec.ProgressUpdates()
	assert.Equal(t, []int{0, 1, 2, 3, 3, 4}, doneSequence(progress))
	for _, p := range progress {
		assert.Equal(t, 4, p.Total)
		assert.Equal(t, res.Batch.ID, p.BatchID)
	}
	assert.Equal(t, "generating visualization", progress[4].Message)
	assert.Equal(t, StateDone, progress[5].State)
	assert.Equal(t, 100, progress[5].Percent())

	// waiting, processing and success per file.
	assert.Len(t, rec.Files(), 9)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRun_PerFileErrorIsNonFatal(t *testing.T) {
	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)

	files := []File{
		plyFile("static.ply", 3, 0),
		{Name: "broken.ply", Data: []byte("ply\nformat ascii 1.0\n")},
		plyFile("end.ply", 3, 5),
	}
	res, err := o.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, StatusError, res.Batch.Files[1].Status)
	assert.NotEmpty(t, res.Batch.Files[1].Error)
	assert.Equal(t, StatusSuccess, res.Batch.Files[0].Status)
	assert.Equal(t, StatusSuccess, res.Batch.Files[2].Status)
	assert.Len(t, res.Merged.Source, 3)
	assert.Len(t, res.Merged.Target, 6)

	var failed []FileUpdate
	for _, u := range rec.Files() {
		if u.Status == StatusError {
			failed = append(failed, u)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "broken.ply", failed[0].Name)
	assert.True(t, strings.HasPrefix(failed[0].Message, "processing failed: "))
}

func TestRun_AllFilesFail(t *testing.T) {
	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)

	res, err := o.Run(context.Background(), []File{{Name: "a.ply", Data: []byte("garbage")}})
	require.ErrorIs(t, err, pairing.ErrEmptySource)
	require.NotNil(t, res)
	assert.Equal(t, StatusError, res.Batch.Files[0].Status)

	last, _ := rec.Last()
	assert.Equal(t, StateError, last.State)
}

func TestRun_SingleStaticFile(t *testing.T) {
	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)

	res, err := o.Run(context.Background(), []File{plyFile("static.ply", 8, 0)})
	require.NoError(t, err)

	assert.Equal(t, scene.ModeSingle, res.Scene.Mode)
	require.Len(t, res.Scene.Layers, 1)
	assert.Len(t, res.Scene.Layers[0].Points, 8)
	assert.Empty(t, res.Scene.Connectors)
	assert.Empty(t, res.Selection)
	assert.Equal(t, []int{0, 1, 1, 2}, doneSequence(rec.ProgressUpdates()))
}

func TestRun_PositionFallback(t *testing.T) {
	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)

	res, err := o.Run(context.Background(), []File{
		plyFile("scan_a.ply", 2, 0),
		plyFile("scan_b.ply", 2, 1),
		plyFile("scan_c.ply", 2, 2),
	})
	require.NoError(t, err)

	roles := []pairing.Role{pairing.RoleStatic, pairing.RoleStartDynamic, pairing.RoleEndDynamic}
	for i, f := range res.Batch.Files {
		assert.Equal(t, roles[i], f.Role, f.Name)
		assert.True(t, f.Fallback)
	}

	var msgs []string
	for _, u := range rec.Files() {
		if u.Status == StatusSuccess {
			msgs = append(msgs, u.Message)
		}
	}
	assert.Equal(t, []string{
		"identified as Static (default)",
		"identified as Start Dynamic (default)",
		"identified as End Dynamic (default)",
	}, msgs)
}

func TestRun_RenderFailure(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("canvas unavailable")
	o := newTestOrchestrator(rec, RendererFunc(func(context.Context, *scene.Scene) error { return boom }))

	res, err := o.Run(context.Background(), []File{plyFile("static.ply", 4, 0), plyFile("end.ply", 4, 1)})
	require.ErrorIs(t, err, ErrVisualization)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "files processed, visualization failed")

	for _, f := range res.Batch.Files {
		assert.Equal(t, StatusSuccess, f.Status)
	}
	last, _ := rec.Last()
	assert.Equal(t, StateError, last.State)
	assert.Equal(t, 3, last.Done)
	assert.Equal(t, last.Total, last.Done)
}

// supersedingReporter starts a new batch as soon as the first file is done.
type supersedingReporter struct {
	*Recorder
	o    *Orchestrator
	once bool
}

func (r *supersedingReporter) Progress(u ProgressUpdate) {
	r.Recorder.Progress(u)
	if u.Done == 1 && !r.once {
		r.once = true
		r.o.NewContext(nil, nil)
	}
}

func TestRun_StaleBatch(t *testing.T) {
	rec := NewRecorder()
	calls := 0
	o := newTestOrchestrator(nil, RendererFunc(func(context.Context, *scene.Scene) error {
		calls++
		return nil
	}))
	rep := &supersedingReporter{Recorder: rec, o: o}

	c := o.NewContext(rep, o.Renderer)
	res, err := o.Execute(context.Background(), c, []File{plyFile("static.ply", 2, 0), plyFile("end.ply", 2, 0)})
	assert.ErrorIs(t, err, ErrStaleBatch)
	assert.False(t, c.Current())
	assert.Equal(t, 0, calls)
	require.NotNil(t, res)
	// The second file is never touched and nothing is reported after the
	// batch went stale.
	assert.Equal(t, StatusWaiting, res.Batch.Files[1].Status)
	last, _ := rec.Last()
	assert.Equal(t, 1, last.Done)
	assert.NotEqual(t, StateError, last.State)
}

func TestRun_Cancelled(t *testing.T) {
	o := newTestOrchestrator(NewRecorder(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, []File{plyFile("static.ply", 2, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SeededSamplingIsRepeatable(t *testing.T) {
	files := []File{plyFile("static.ply", 30, 0), plyFile("start.ply", 30, 50), plyFile("end.ply", 30, 100)}

	a, err := newTestOrchestrator(nil, nil).Run(context.Background(), files)
	require.NoError(t, err)
	b, err := newTestOrchestrator(nil, nil).Run(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, a.Selection, pairing.DefaultMaxVisible)
	assert.Equal(t, a.Selection, b.Selection)
	assert.NotEqual(t, a.Batch.ID, b.Batch.ID)
}

func TestNewContext_Sequence(t *testing.T) {
	o := NewOrchestrator(Options{}, nil, nil)
	first := o.NewContext(nil, nil)
	second := o.NewContext(nil, nil)
	assert.Equal(t, first.Batch.Seq+1, second.Batch.Seq)
	assert.False(t, first.Current())
	assert.True(t, second.Current())
}

func TestLogReporter(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	o := NewOrchestrator(Options{}, Tee(LogReporter{}, nil), nil)
	_, err := o.Run(context.Background(), []File{plyFile("static.ply", 2, 0)})
	require.NoError(t, err)

	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "[upload] batch "))
	assert.Contains(t, lines[len(lines)-1], "done 2/2 (100%)")
}

func TestRun_LoadsFromFileSystem(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("scans/static.ply", plyFile("static.ply", 5, 0).Data, 0644))
	require.NoError(t, fsys.WriteFile("scans/end.ply", plyFile("end.ply", 3, 2).Data, 0644))

	rec := NewRecorder()
	o := newTestOrchestrator(rec, nil)
	files := []File{
		FileFromFS(fsys, "scans/static.ply"),
		FileFromFS(fsys, "scans/end.ply"),
		FileFromFS(fsys, "scans/missing.ply"),
	}
	res, err := o.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, "static.ply", res.Batch.Files[0].Name)
	assert.Equal(t, 5, res.Batch.Files[0].Points)
	assert.Equal(t, StatusSuccess, res.Batch.Files[1].Status)
	assert.Equal(t, StatusError, res.Batch.Files[2].Status)
	assert.Contains(t, res.Batch.Files[2].Error, "missing.ply")
	assert.Len(t, res.Merged.Source, 5)
}
