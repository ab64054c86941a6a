package ply

import (
	"math"
	"strconv"
	"strings"
)

// decodeASCII reads up to h.VertexCount points from the lines that follow
// the header. Blank lines, short lines and lines whose coordinates are not
// finite numbers are skipped.
func decodeASCII(lines []string, h Header) (PointSet, error) {
	xi, yi, zi, err := xyzColumns(h.Properties)
	if err != nil {
		return nil, err
	}
	xc := h.Properties[xi].Column
	yc := h.Properties[yi].Column
	zc := h.Properties[zi].Column
	minTokens := max(len(h.Properties), xc+1, yc+1, zc+1)

	points := make(PointSet, 0, min(h.VertexCount, len(lines)))
	for i := h.DataLine; i < len(lines) && len(points) < h.VertexCount; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < minTokens {
			continue
		}
		x, okX := parseCoord(tokens[xc])
		y, okY := parseCoord(tokens[yc])
		z, okZ := parseCoord(tokens[zc])
		if !okX || !okY || !okZ {
			continue
		}
		points = append(points, Point3{X: x, Y: y, Z: z})
	}
	return points, nil
}

func parseCoord(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
