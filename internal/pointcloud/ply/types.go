package ply

import "fmt"

// Point3 is a single decoded vertex position.
type Point3 struct {
	X, Y, Z float64
}

// PointSet is an ordered list of points. Index order is significant: it is
// used for source/target correspondence and static/dynamic partitioning.
type PointSet []Point3

// Format is the body encoding declared by the header's format line.
type Format int

const (
	FormatUnknown Format = iota
	FormatASCII
	FormatBinaryLittleEndian
	FormatBinaryBigEndian
)

// String returns the header tag for the format.
func (f Format) String() string {
	switch f {
	case FormatASCII:
		return "ascii"
	case FormatBinaryLittleEndian:
		return "binary_little_endian"
	case FormatBinaryBigEndian:
		return "binary_big_endian"
	default:
		return "unknown"
	}
}

// IsBinary reports whether the body is fixed-width binary records.
func (f Format) IsBinary() bool {
	return f == FormatBinaryLittleEndian || f == FormatBinaryBigEndian
}

// ParseFormat maps a header tag to a Format.
func ParseFormat(tag string) (Format, error) {
	switch tag {
	case "ascii":
		return FormatASCII, nil
	case "binary_little_endian":
		return FormatBinaryLittleEndian, nil
	case "binary_big_endian":
		return FormatBinaryBigEndian, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, tag)
	}
}

// ScalarType is a fixed-width numeric property type.
type ScalarType int

const (
	TypeUnknown ScalarType = iota
	TypeFloat
	TypeDouble
	TypeUChar
	TypeInt
	TypeUInt
)

// parseScalarType maps a property type token to a ScalarType. uint8 is an
// alias of uchar.
func parseScalarType(tok string) ScalarType {
	switch tok {
	case "float":
		return TypeFloat
	case "double":
		return TypeDouble
	case "uchar", "uint8":
		return TypeUChar
	case "int":
		return TypeInt
	case "uint":
		return TypeUInt
	default:
		return TypeUnknown
	}
}

// Size returns the encoded width in bytes, or 0 for TypeUnknown.
func (t ScalarType) Size() int {
	switch t {
	case TypeFloat, TypeInt, TypeUInt:
		return 4
	case TypeDouble:
		return 8
	case TypeUChar:
		return 1
	default:
		return 0
	}
}

func (t ScalarType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeUChar:
		return "uchar"
	case TypeInt:
		return "int"
	case TypeUInt:
		return "uint"
	default:
		return "unknown"
	}
}

// recorded reports whether properties of this type are kept in
// Header.Properties. int and uint only contribute their width to the
// binary layout.
func (t ScalarType) recorded() bool {
	return t == TypeFloat || t == TypeDouble || t == TypeUChar
}

// Property is one declared vertex property.
type Property struct {
	Name string
	Type ScalarType
	// Column is the declaration position within the vertex element, which
	// is also the token position on an ASCII data line.
	Column int
}

// Header is the decoded PLY header.
type Header struct {
	Format      Format
	VertexCount int

	// Properties holds the recorded vertex properties (float, double,
	// uchar/uint8) in declaration order.
	Properties []Property

	// Layout holds every fixed-width vertex property in declaration order.
	// Binary records are the concatenation of these widths.
	Layout []Property

	// Skipped lists vertex property declarations that have no fixed width
	// (list properties, or scalar types outside the width table). They are
	// not accounted for when computing binary offsets.
	Skipped []string

	// DataOffset is the byte offset of the first vertex record, immediately
	// after the end_header marker. It is 0 for text input.
	DataOffset int

	// DataLine is the index of the first line after end_header.
	DataLine int
}

// RecordSize returns the width in bytes of one binary vertex record.
func (h Header) RecordSize() int {
	n := 0
	for _, p := range h.Layout {
		n += p.Type.Size()
	}
	return n
}

// xyzColumns returns the positions of x, y and z within list, where list
// is either Properties or Layout.
func xyzColumns(list []Property) (x, y, z int, err error) {
	x, y, z = -1, -1, -1
	for i, p := range list {
		switch p.Name {
		case "x":
			if x < 0 {
				x = i
			}
		case "y":
			if y < 0 {
				y = i
			}
		case "z":
			if z < 0 {
				z = i
			}
		}
	}
	if x < 0 || y < 0 || z < 0 {
		return x, y, z, ErrSchema
	}
	return x, y, z, nil
}
