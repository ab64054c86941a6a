// Package upload drives one upload batch end to end: validate, decode,
// classify, merge, sample, build the scene and hand it to a renderer,
// reporting per-file and overall progress along the way.
//
// The orchestrator is the single error boundary of the pipeline. Per-file
// decode failures become file statuses; structural failures end the batch
// with one error.
package upload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/plyviz/internal/pointcloud/pairing"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
	"github.com/banshee-data/plyviz/internal/timeutil"
)

// DefaultMaxFiles is the largest batch accepted.
const DefaultMaxFiles = 3

// Options configure an Orchestrator. Zero values select defaults.
type Options struct {
	MaxFiles     int
	MaxVisible   int
	StartAliases []string
	Scene        scene.Options
	// Seed makes sampling deterministic when set.
	Seed  *uint64
	Clock timeutil.Clock
}

// Result is the outcome of one batch. It is returned together with the
// error for every failure after validation.
type Result struct {
	Batch     *Batch
	Merged    pairing.MergedClouds
	Pairs     []pairing.MatchPair
	Selection pairing.Selection
	Scene     *scene.Scene
	Duration  time.Duration
}

// Orchestrator runs batches. It is safe for concurrent use; a batch that
// is overtaken by a newer one stops at its next stage boundary.
type Orchestrator struct {
	opts     Options
	Reporter Reporter
	Renderer Renderer

	latest atomic.Uint64
}

// NewOrchestrator returns an orchestrator reporting to reporter and
// rendering with renderer. Either may be nil.
func NewOrchestrator(opts Options, reporter Reporter, renderer Renderer) *Orchestrator {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxVisible <= 0 {
		opts.MaxVisible = pairing.DefaultMaxVisible
	}
	if opts.StartAliases == nil {
		opts.StartAliases = pairing.DefaultStartAliases
	}
	if opts.Scene == (scene.Options{}) {
		opts.Scene = scene.DefaultOptions()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Orchestrator{opts: opts, Reporter: reporter, Renderer: renderer}
}

// Context is the per-batch state handed to every stage.
type Context struct {
	Batch    *Batch
	Reporter Reporter
	Renderer Renderer

	o     *Orchestrator
	state State
	total int
}

// NewContext starts a new batch. Starting a batch marks every earlier
// batch of this orchestrator as stale.
func (o *Orchestrator) NewContext(reporter Reporter, renderer Renderer) *Context {
	seq := o.latest.Add(1)
	if reporter == nil {
		reporter = Tee()
	}
	return &Context{
		Batch:    &Batch{ID: uuid.NewString(), Seq: seq},
		Reporter: reporter,
		Renderer: renderer,
		o:        o,
	}
}

// Current reports whether c is still the latest batch.
func (c *Context) Current() bool { return c.o.latest.Load() == c.Batch.Seq }

// State returns the stage the batch last entered.
func (c *Context) State() State { return c.state }

func (c *Context) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Current() {
		return ErrStaleBatch
	}
	return nil
}

func (c *Context) progress(state State, done int, msg string) {
	c.state = state
	c.Reporter.Progress(ProgressUpdate{
		BatchID: c.Batch.ID,
		State:   state,
		Done:    done,
		Total:   c.total,
		Message: msg,
		At:      c.o.opts.Clock.Now(),
	})
}

func (c *Context) fileStatus(i int, msg string) {
	f := c.Batch.Files[i]
	c.Reporter.FileStatus(FileUpdate{
		BatchID:  c.Batch.ID,
		Index:    i,
		Name:     f.Name,
		Role:     f.Role,
		RoleTag:  f.RoleTag,
		Fallback: f.Fallback,
		Status:   f.Status,
		Points:   f.Points,
		Message:  msg,
		At:       c.o.opts.Clock.Now(),
	})
}

// fail moves the batch to the error state. Stale batches stay silent. A
// visualization failure comes after every file was processed, so it
// reports the full total.
func (c *Context) fail(err error) error {
	if errors.Is(err, ErrStaleBatch) || !c.Current() {
		return err
	}
	done := c.lastDone()
	if errors.Is(err, ErrVisualization) {
		done = c.total
	}
	c.progress(StateError, done, err.Error())
	return err
}

func (c *Context) lastDone() int {
	done := 0
	for _, f := range c.Batch.Files {
		if f.Status == StatusSuccess || f.Status == StatusError {
			done++
		}
	}
	return done
}

// Run processes files as a new batch using the orchestrator's reporter
// and renderer.
func (o *Orchestrator) Run(ctx context.Context, files []File) (*Result, error) {
	return o.Execute(ctx, o.NewContext(o.Reporter, o.Renderer), files)
}

// Execute processes files within the batch c.
func (o *Orchestrator) Execute(ctx context.Context, c *Context, files []File) (*Result, error) {
	start := o.opts.Clock.Now()
	res := &Result{Batch: c.Batch}

	c.state = StateValidating
	if err := o.Validate(files); err != nil {
		return nil, c.fail(err)
	}

	c.total = len(files) + 1
	c.Batch.Files = make([]*BatchFile, len(files))
	for i, f := range files {
		role := pairing.RoleFromName(f.Name, o.opts.StartAliases)
		c.Batch.Files[i] = &BatchFile{Name: f.Name, Role: role, RoleTag: role.String(), Status: StatusWaiting}
		c.fileStatus(i, "waiting")
	}
	c.progress(StateDecoding, 0, fmt.Sprintf("processing %d files", len(files)))

	acc := pairing.NewAccumulator()
	for i, f := range files {
		if err := c.commit(ctx); err != nil {
			return res, c.fail(err)
		}
		o.decodeOne(ctx, c, acc, i, f)
		c.progress(StateDecoding, i+1, fmt.Sprintf("processed %d/%d files", i+1, len(files)))
	}

	if err := c.commit(ctx); err != nil {
		return res, c.fail(err)
	}
	c.state = StateMerging
	merged, err := acc.Merge()
	if err != nil {
		return res, c.fail(fmt.Errorf("no point cloud data extracted from the PLY files: %w", err))
	}
	res.Merged = merged

	c.state = StateSampling
	if len(merged.Target) > 0 {
		res.Pairs, res.Selection = pairing.SampleClouds(merged, o.opts.MaxVisible, o.newRand())
	}

	if err := c.commit(ctx); err != nil {
		return res, c.fail(err)
	}
	c.progress(StateBuilding, len(files), "generating visualization")

	sc, err := scene.Build(merged.Source, merged.Target, res.Selection, merged.StaticSize, o.opts.Scene)
	if err != nil {
		return res, c.fail(fmt.Errorf("%w: %w", ErrVisualization, err))
	}
	res.Scene = sc

	if err := c.commit(ctx); err != nil {
		return res, c.fail(err)
	}
	c.state = StateRendering
	if c.Renderer != nil {
		if err := c.Renderer.Render(ctx, sc); err != nil {
			return res, c.fail(fmt.Errorf("%w: %w", ErrVisualization, err))
		}
	}

	res.Duration = o.opts.Clock.Since(start)
	c.progress(StateDone, c.total, summary(merged))
	return res, nil
}

func (o *Orchestrator) decodeOne(ctx context.Context, c *Context, acc *pairing.Accumulator, i int, f File) {
	bf := c.Batch.Files[i]
	bf.Status = StatusProcessing
	c.fileStatus(i, "parsing")

	points, err := f.decode(ctx)
	if err != nil {
		bf.Status = StatusError
		bf.Role = pairing.RoleUnknown
		bf.RoleTag = pairing.RoleUnknown.String()
		bf.Error = err.Error()
		c.fileStatus(i, "processing failed: "+err.Error())
		return
	}

	c.state = StateClassifying
	named := pairing.RoleFromName(f.Name, o.opts.StartAliases)
	role := pairing.Classify(f.Name, i, acc.HasStatic(), acc.HasStartDynamic(), o.opts.StartAliases)
	acc.Add(role, points)

	bf.Role = role
	bf.RoleTag = role.String()
	bf.Fallback = named == pairing.RoleUnknown
	bf.Points = len(points)
	bf.Status = StatusSuccess
	msg := "identified as " + role.Label()
	if bf.Fallback {
		msg += " (default)"
	}
	c.fileStatus(i, msg)
	c.state = StateDecoding
}

// Validate checks a batch before anything is read. The extension rule is
// checked before the count.
func (o *Orchestrator) Validate(files []File) error {
	var bad []string
	for _, f := range files {
		if !strings.EqualFold(path.Ext(f.Name), ".ply") {
			bad = append(bad, f.Name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: non-PLY files: %s", ErrExtension, strings.Join(bad, ", "))
	}
	if len(files) > o.opts.MaxFiles {
		return fmt.Errorf("%w: at most %d files, got %d", ErrTooManyFiles, o.opts.MaxFiles, len(files))
	}
	if len(files) == 0 {
		return ErrNoFiles
	}
	return nil
}

func (o *Orchestrator) newRand() *rand.Rand {
	if o.opts.Seed == nil {
		return nil
	}
	s := *o.opts.Seed
	return rand.New(rand.NewPCG(s, s))
}

func summary(m pairing.MergedClouds) string {
	if len(m.Target) == 0 {
		return fmt.Sprintf("visualization ready: %d points (static %d)", len(m.Source), m.StaticSize)
	}
	return fmt.Sprintf("visualization ready: source %d = static %d + start %d, target %d = static %d + end %d",
		len(m.Source), m.StaticSize, len(m.Source)-m.StaticSize,
		len(m.Target), m.StaticSize, len(m.Target)-m.StaticSize)
}
