package ply

import "errors"

var (
	// ErrFormat is returned when the header has no end_header marker or a
	// header line cannot be interpreted.
	ErrFormat = errors.New("ply: malformed header: end_header not found")

	// ErrSchema is returned when the vertex element lacks x, y or z.
	ErrSchema = errors.New("ply: vertex element is missing x, y or z property")

	// ErrUnsupportedFormat is returned for format tags other than ascii,
	// binary_little_endian and binary_big_endian.
	ErrUnsupportedFormat = errors.New("ply: unsupported format")

	// ErrDataTypeMismatch is returned when text input declares a binary
	// format.
	ErrDataTypeMismatch = errors.New("ply: binary format requires byte input")

	// ErrTruncated is returned when a binary body is shorter than the
	// declared vertex count requires.
	ErrTruncated = errors.New("ply: binary body truncated")
)
