package ply

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

var (
	endHeaderLF   = []byte("end_header\n")
	endHeaderCRLF = []byte("end_header\r\n")
)

// findHeaderEnd returns the byte offset just past the end_header marker.
// The LF form is searched first, then CRLF.
func findHeaderEnd(raw []byte) (int, bool) {
	if i := bytes.Index(raw, endHeaderLF); i >= 0 {
		return i + len(endHeaderLF), true
	}
	if i := bytes.Index(raw, endHeaderCRLF); i >= 0 {
		return i + len(endHeaderCRLF), true
	}
	return 0, false
}

// ParseHeader decodes the header of a PLY byte buffer. The returned
// DataOffset points at the first byte after the end_header marker.
func ParseHeader(raw []byte) (Header, error) {
	end, ok := findHeaderEnd(raw)
	if !ok {
		return Header{}, ErrFormat
	}
	h, err := scanHeader(splitLines(string(raw[:end])))
	if err != nil {
		return Header{}, err
	}
	h.DataOffset = end
	return h, nil
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// scanHeader walks header lines until the exact end_header line. Property
// lines are only taken from the vertex element.
func scanHeader(lines []string) (Header, error) {
	h := Header{Format: FormatASCII}
	formatTag := "ascii"
	inVertex := false
	column := 0
	found := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		fields := strings.Fields(line)

		switch {
		case line == "end_header":
			h.DataLine = i + 1
			found = true
		case strings.HasPrefix(line, "format"):
			formatTag = ""
			if len(fields) > 1 {
				formatTag = fields[1]
			}
		case strings.HasPrefix(line, "element"):
			inVertex = len(fields) > 1 && fields[1] == "vertex"
			if !inVertex {
				continue
			}
			if len(fields) < 3 {
				return Header{}, fmt.Errorf("%w: element vertex without count", ErrFormat)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return Header{}, fmt.Errorf("%w: invalid vertex count %q", ErrFormat, fields[2])
			}
			h.VertexCount = n
			column = 0
		case strings.HasPrefix(line, "property"):
			if !inVertex || len(fields) < 3 {
				continue
			}
			h.addProperty(fields, column)
			column++
		}
		if found {
			break
		}
	}

	if !found {
		return Header{}, ErrFormat
	}

	f, err := ParseFormat(formatTag)
	if err != nil {
		return Header{}, err
	}
	h.Format = f
	return h, nil
}

// addProperty records a "property <type> <name>" declaration.
func (h *Header) addProperty(fields []string, column int) {
	t := parseScalarType(fields[1])
	if t == TypeUnknown {
		h.Skipped = append(h.Skipped, strings.Join(fields[1:], " "))
		return
	}
	p := Property{Name: fields[2], Type: t, Column: column}
	h.Layout = append(h.Layout, p)
	if t.recorded() {
		h.Properties = append(h.Properties, p)
	}
}
