package synthetic

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/plyviz/internal/pointcloud/ply"
)

// EncodeOptions controls the PLY layout written by Encode.
type EncodeOptions struct {
	Format ply.Format
	// Double writes x, y and z as double instead of float.
	Double bool
	// Color appends uchar red, green and blue properties after z.
	Color   bool
	Comment string
}

// Encode writes points as a PLY file. Only the vertex element is written.
func Encode(w io.Writer, points ply.PointSet, opts EncodeOptions) error {
	if opts.Format == ply.FormatUnknown {
		opts.Format = ply.FormatASCII
	}
	bw := bufio.NewWriter(w)

	coordType := "float"
	if opts.Double {
		coordType = "double"
	}
	fmt.Fprintf(bw, "ply\nformat %s 1.0\n", opts.Format)
	if opts.Comment != "" {
		fmt.Fprintf(bw, "comment %s\n", opts.Comment)
	}
	fmt.Fprintf(bw, "element vertex %d\n", len(points))
	for _, axis := range []string{"x", "y", "z"} {
		fmt.Fprintf(bw, "property %s %s\n", coordType, axis)
	}
	if opts.Color {
		bw.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	bw.WriteString("end_header\n")

	var err error
	switch opts.Format {
	case ply.FormatASCII:
		err = encodeASCII(bw, points, opts)
	case ply.FormatBinaryLittleEndian:
		err = encodeBinary(bw, points, opts, binary.LittleEndian)
	case ply.FormatBinaryBigEndian:
		err = encodeBinary(bw, points, opts, binary.BigEndian)
	default:
		return fmt.Errorf("encode: %w: %s", ply.ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func encodeASCII(bw *bufio.Writer, points ply.PointSet, opts EncodeOptions) error {
	for i, p := range points {
		bw.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(p.Z, 'g', -1, 64))
		if opts.Color {
			r, g, b := pointColor(i)
			fmt.Fprintf(bw, " %d %d %d", r, g, b)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func encodeBinary(bw *bufio.Writer, points ply.PointSet, opts EncodeOptions, order binary.ByteOrder) error {
	var buf [8]byte
	writeCoord := func(v float64) error {
		if opts.Double {
			order.PutUint64(buf[:8], math.Float64bits(v))
			_, err := bw.Write(buf[:8])
			return err
		}
		order.PutUint32(buf[:4], math.Float32bits(float32(v)))
		_, err := bw.Write(buf[:4])
		return err
	}

	for i, p := range points {
		for _, v := range [3]float64{p.X, p.Y, p.Z} {
			if err := writeCoord(v); err != nil {
				return err
			}
		}
		if opts.Color {
			r, g, b := pointColor(i)
			if _, err := bw.Write([]byte{r, g, b}); err != nil {
				return err
			}
		}
	}
	return nil
}

// pointColor gives each vertex a deterministic colour so colour columns
// hold varied data.
func pointColor(i int) (r, g, b uint8) {
	return uint8(i * 37), uint8(i * 91), uint8(i * 53)
}
