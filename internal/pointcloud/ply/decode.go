package ply

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/plyviz/internal/fsutil"
	"github.com/banshee-data/plyviz/internal/monitoring"
)

// Decode parses a PLY byte buffer in any of the three supported formats.
func Decode(raw []byte) (PointSet, error) {
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	logSkipped(h)

	switch h.Format {
	case FormatASCII:
		return decodeASCII(splitLines(string(raw)), h)
	case FormatBinaryLittleEndian, FormatBinaryBigEndian:
		return decodeBinary(raw, h)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, h.Format)
	}
}

// DecodeText parses PLY text input. Only format ascii is accepted; binary
// bodies cannot survive a text decode and are rejected with
// ErrDataTypeMismatch.
func DecodeText(text string) (PointSet, error) {
	lines := splitLines(text)
	h, err := scanHeader(lines)
	if err != nil {
		return nil, err
	}
	if h.Format.IsBinary() {
		return nil, fmt.Errorf("%w: header declares %s", ErrDataTypeMismatch, h.Format)
	}
	logSkipped(h)
	return decodeASCII(lines, h)
}

// LoadFile reads name from fsys and decodes it.
func LoadFile(ctx context.Context, fsys fsutil.FileSystem, name string) (PointSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	points, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return points, nil
}

var logf = monitoring.Tagged("PLY")

func logSkipped(h Header) {
	if len(h.Skipped) == 0 {
		return
	}
	if h.Format.IsBinary() {
		logf("%d vertex properties have no fixed width and are not accounted for in record offsets: %s",
			len(h.Skipped), strings.Join(h.Skipped, ", "))
		return
	}
	logf("skipped vertex properties: %s", strings.Join(h.Skipped, ", "))
}
