package upload

import "errors"

var (
	// ErrExtension means at least one selected file is not a .ply file.
	ErrExtension = errors.New("only PLY files can be uploaded")
	// ErrTooManyFiles means the batch exceeds the file limit.
	ErrTooManyFiles = errors.New("too many files selected")
	// ErrNoFiles means the batch is empty.
	ErrNoFiles = errors.New("no files selected")
	// ErrVisualization means every file was processed but the scene could
	// not be built or rendered.
	ErrVisualization = errors.New("files processed, visualization failed")
	// ErrStaleBatch means a newer batch started before this one finished.
	ErrStaleBatch = errors.New("batch superseded by a newer upload")
)
