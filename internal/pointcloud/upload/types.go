package upload

import (
	"context"
	"path/filepath"
	"time"

	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/pointcloud/pairing"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// File is one file of a batch: its original name and either its raw
// content or a loader. Load, when set, is called only once the batch has
// passed validation and reaches the file.
type File struct {
	Name string
	Data []byte
	Load func(ctx context.Context) (ply.PointSet, error)
}

// FileFromFS returns a File for path that is read from fsys only when it
// is decoded.
func FileFromFS(fsys fsutil.FileSystem, path string) File {
	return File{
		Name: filepath.Base(path),
		Load: func(ctx context.Context) (ply.PointSet, error) {
			return ply.LoadFile(ctx, fsys, path)
		},
	}
}

func (f File) decode(ctx context.Context) (ply.PointSet, error) {
	if f.Load != nil {
		return f.Load(ctx)
	}
	return ply.Decode(f.Data)
}

// Status is the per-file processing status.
type Status int

const (
	StatusWaiting Status = iota
	StatusProcessing
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusProcessing:
		return "processing"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is the stage a batch is in.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateDecoding
	StateClassifying
	StateMerging
	StateSampling
	StateBuilding
	StateRendering
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateDecoding:
		return "decoding"
	case StateClassifying:
		return "classifying"
	case StateMerging:
		return "merging"
	case StateSampling:
		return "sampling"
	case StateBuilding:
		return "building"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FileUpdate reports a status change of one file in a batch.
type FileUpdate struct {
	BatchID string       `json:"batch_id"`
	Index   int          `json:"index"`
	Name    string       `json:"name"`
	Role    pairing.Role `json:"-"`
	RoleTag string       `json:"role"`
	// Fallback is set when the role came from upload position rather than
	// the file name.
	Fallback bool      `json:"fallback,omitempty"`
	Status   Status    `json:"status"`
	Points   int       `json:"points"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// ProgressUpdate reports overall batch progress. Total is the number of
// files plus one unit for the visualization step.
type ProgressUpdate struct {
	BatchID string    `json:"batch_id"`
	State   State     `json:"state"`
	Done    int       `json:"done"`
	Total   int       `json:"total"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Percent returns Done/Total as a whole percentage.
func (p ProgressUpdate) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Done * 100 / p.Total
}

// BatchFile is the orchestrator's record of one file.
type BatchFile struct {
	Name     string       `json:"name"`
	Role     pairing.Role `json:"-"`
	RoleTag  string       `json:"role"`
	Fallback bool         `json:"fallback,omitempty"`
	Points   int          `json:"points"`
	Status   Status       `json:"status"`
	Error    string       `json:"error,omitempty"`
}

// Batch is one user upload. ID is unique; Seq orders batches within an
// orchestrator.
type Batch struct {
	ID    string       `json:"id"`
	Seq   uint64       `json:"seq"`
	Files []*BatchFile `json:"files"`
}
