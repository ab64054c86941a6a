// Package cloudjson reads the JSON point-cloud input: an object holding
// "source" and "target" arrays of [x, y, z] points plus optional sampling
// parameters.
package cloudjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/plyviz/internal/pointcloud/pairing"
	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// ErrInvalid wraps every shape error.
var ErrInvalid = errors.New("invalid point cloud data")

// DefaultSeed is used when a request carries no seed.
const DefaultSeed = 42

// Request is a decoded, validated JSON payload.
type Request struct {
	Source       ply.PointSet
	Target       ply.PointSet
	NumVisPoints int
	Seed         uint64
	StaticSize   int
}

type wire struct {
	Source       json.RawMessage `json:"source"`
	Target       json.RawMessage `json:"target"`
	NumVisPoints *int            `json:"num_vis_points,omitempty"`
	Seed         *uint64         `json:"seed,omitempty"`
	StaticSize   *int            `json:"static_size,omitempty"`
}

// Decode reads one payload from r.
func Decode(r io.Reader) (*Request, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read point cloud data: %w", err)
	}
	return Parse(raw)
}

// Parse validates raw and converts it to a Request. Missing parameters take
// their defaults: 20 visible points, seed 42, no static segment.
func Parse(raw []byte) (*Request, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalid)
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload must be an object", ErrInvalid)
	}
	var w wire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalid, err)
	}

	source, err := points("source", w.Source)
	if err != nil {
		return nil, err
	}
	target, err := points("target", w.Target)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Source:       source,
		Target:       target,
		NumVisPoints: pairing.DefaultMaxVisible,
		Seed:         DefaultSeed,
	}
	if w.NumVisPoints != nil {
		if *w.NumVisPoints <= 0 {
			return nil, fmt.Errorf("%w: num_vis_points must be positive", ErrInvalid)
		}
		req.NumVisPoints = *w.NumVisPoints
	}
	if w.Seed != nil {
		req.Seed = *w.Seed
	}
	if w.StaticSize != nil {
		if *w.StaticSize < 0 {
			return nil, fmt.Errorf("%w: static_size must not be negative", ErrInvalid)
		}
		req.StaticSize = *w.StaticSize
	}
	return req, nil
}

// points decodes one array field. Each element must be an array of at
// least three numbers; extra values are ignored.
func points(field string, raw json.RawMessage) (ply.PointSet, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing %s array", ErrInvalid, field)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: missing %s array", ErrInvalid, field)
	}
	out := make(ply.PointSet, len(items))
	for i, item := range items {
		var vals []float64
		if err := json.Unmarshal(item, &vals); err != nil || len(vals) < 3 {
			return nil, fmt.Errorf("%w: %s point %d must be [x, y, z]", ErrInvalid, field, i)
		}
		out[i] = ply.Point3{X: vals[0], Y: vals[1], Z: vals[2]}
	}
	return out, nil
}

// Encode writes req in the wire format.
func Encode(w io.Writer, req *Request) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"source":         triples(req.Source),
		"target":         triples(req.Target),
		"num_vis_points": req.NumVisPoints,
		"seed":           req.Seed,
		"static_size":    req.StaticSize,
	})
}

func triples(ps ply.PointSet) [][3]float64 {
	out := make([][3]float64, len(ps))
	for i, p := range ps {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}

// DefaultSample returns the unit cube example: eight source corners and
// the same corners shifted by 0.1 on every axis.
func DefaultSample() *Request {
	var src, dst ply.PointSet
	for _, c := range [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{1, 1, 0}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	} {
		src = append(src, ply.Point3{X: c[0], Y: c[1], Z: c[2]})
		dst = append(dst, ply.Point3{X: c[0] + 0.1, Y: c[1] + 0.1, Z: c[2] + 0.1})
	}
	return &Request{
		Source:       src,
		Target:       dst,
		NumVisPoints: pairing.DefaultMaxVisible,
		Seed:         DefaultSeed,
	}
}
