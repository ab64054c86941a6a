package ply

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decodeBinary reads exactly h.VertexCount fixed-size records starting at
// h.DataOffset. Every property in the layout is decoded to advance the
// cursor; only x, y and z are kept.
func decodeBinary(raw []byte, h Header) (PointSet, error) {
	if _, _, _, err := xyzColumns(h.Properties); err != nil {
		return nil, err
	}
	xi, yi, zi, err := xyzColumns(h.Layout)
	if err != nil {
		return nil, err
	}

	var order binary.ByteOrder = binary.LittleEndian
	if h.Format == FormatBinaryBigEndian {
		order = binary.BigEndian
	}

	recSize := h.RecordSize()
	body := raw[h.DataOffset:]
	// Compare by division so a hostile vertex count cannot overflow.
	if h.VertexCount > len(body)/recSize {
		return nil, fmt.Errorf("%w: %d vertices of %d bytes declared, have %d bytes",
			ErrTruncated, h.VertexCount, recSize, len(body))
	}

	points := make(PointSet, h.VertexCount)
	off := 0
	for i := 0; i < h.VertexCount; i++ {
		var p Point3
		for j, prop := range h.Layout {
			v := readScalar(body[off:], prop.Type, order)
			off += prop.Type.Size()
			switch j {
			case xi:
				p.X = v
			case yi:
				p.Y = v
			case zi:
				p.Z = v
			}
		}
		points[i] = p
	}
	return points, nil
}

// readScalar decodes one value of type t from the front of b.
func readScalar(b []byte, t ScalarType, order binary.ByteOrder) float64 {
	switch t {
	case TypeFloat:
		return float64(math.Float32frombits(order.Uint32(b)))
	case TypeDouble:
		return math.Float64frombits(order.Uint64(b))
	case TypeUChar:
		return float64(b[0])
	case TypeInt:
		return float64(int32(order.Uint32(b)))
	case TypeUInt:
		return float64(order.Uint32(b))
	default:
		return 0
	}
}
