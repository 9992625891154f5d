package matrix

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	npyMagic = []byte("\x93NUMPY")
	zipMagic = []byte("PK\x03\x04")
)

var (
	descrRe   = regexp.MustCompile(`['"]descr['"]\s*:\s*['"]([^'"]+)['"]`)
	fortranRe = regexp.MustCompile(`['"]fortran_order['"]\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`['"]shape['"]\s*:\s*\(([^)]*)\)`)
)

// Decode parses a capture payload. The container is detected from its magic
// bytes, so the file extension does not matter.
func Decode(data []byte) (*Grid, error) {
	switch {
	case bytes.HasPrefix(data, npyMagic):
		return decodeNPY(data)
	case bytes.HasPrefix(data, zipMagic):
		return decodeNPZ(data)
	default:
		return nil, decodeErr("unrecognized container", nil)
	}
}

type header struct {
	descr   string
	fortran bool
	shape   []int
}

// layout maps the array shape onto frames of rows x cols.
func (h header) layout() (frames, rows, cols int, err error) {
	switch len(h.shape) {
	case 0:
		return 1, 1, 1, nil
	case 1:
		return 1, 1, h.shape[0], nil
	case 2:
		return 1, h.shape[0], h.shape[1], nil
	case 3:
		return h.shape[0], h.shape[1], h.shape[2], nil
	default:
		return 0, 0, 0, fmt.Errorf("%d-dimensional arrays", len(h.shape))
	}
}

func decodeNPY(data []byte) (*Grid, error) {
	h, payload, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	dt, err := parseDescr(h.descr)
	if err != nil {
		return nil, decodeErr("unsupported dtype "+strconv.Quote(h.descr), err)
	}

	frames, rows, cols, err := h.layout()
	if err != nil {
		return nil, decodeErr("unsupported shape", err)
	}
	if frames == 0 {
		return nil, decodeErr("capture holds no frames", nil)
	}
	if frames > 1 {
		return nil, decodeErr(fmt.Sprintf("capture holds %d frames", frames), ErrMultiFrame)
	}
	if rows != 0 && cols > math.MaxInt32/rows {
		return nil, decodeErr(fmt.Sprintf("shape %dx%d too large", rows, cols), nil)
	}

	count := rows * cols
	if len(payload) < count*dt.size {
		return nil, decodeErr(fmt.Sprintf("payload truncated: need %d bytes, have %d", count*dt.size, len(payload)), io.ErrUnexpectedEOF)
	}

	values := make([]float32, count)
	if h.fortran {
		// Column-major on disk: element (r, c) sits at c*rows + r.
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				off := (c*rows + r) * dt.size
				values[r*cols+c] = dt.read(payload[off:])
			}
		}
	} else {
		for i := range values {
			values[i] = dt.read(payload[i*dt.size:])
		}
	}

	return &Grid{rows: rows, cols: cols, data: values}, nil
}

func readHeader(data []byte) (header, []byte, error) {
	if len(data) < 10 {
		return header{}, nil, decodeErr("header truncated", io.ErrUnexpectedEOF)
	}

	major := data[6]
	var headerLen, offset int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return header{}, nil, decodeErr("header truncated", io.ErrUnexpectedEOF)
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		offset = 12
	default:
		return header{}, nil, decodeErr(fmt.Sprintf("unsupported format version %d.%d", major, data[7]), nil)
	}

	if headerLen < 0 || headerLen > len(data)-offset {
		return header{}, nil, decodeErr("header truncated", io.ErrUnexpectedEOF)
	}

	h, err := parseHeaderDict(string(data[offset : offset+headerLen]))
	if err != nil {
		return header{}, nil, err
	}
	return h, data[offset+headerLen:], nil
}

func parseHeaderDict(s string) (header, error) {
	var h header

	m := descrRe.FindStringSubmatch(s)
	if m == nil {
		return h, decodeErr("header missing descr", nil)
	}
	h.descr = m[1]

	m = fortranRe.FindStringSubmatch(s)
	if m == nil {
		return h, decodeErr("header missing fortran_order", nil)
	}
	h.fortran = m[1] == "True"

	m = shapeRe.FindStringSubmatch(s)
	if m == nil {
		return h, decodeErr("header missing shape", nil)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSuffix(strings.TrimSpace(part), "L")
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return h, decodeErr("invalid shape dimension "+strconv.Quote(part), err)
		}
		h.shape = append(h.shape, n)
	}

	return h, nil
}

// Encode writes g as a version 1.0 .npy array of little-endian float32.
func Encode(w io.Writer, g *Grid) error {
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", g.rows, g.cols)

	// The preamble plus header is padded with spaces to a multiple of 64
	// bytes and terminated by a newline.
	pad := (64 - (10+len(dict)+1)%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	buf := make([]byte, 0, 10+len(dict)+4*len(g.data))
	buf = append(buf, npyMagic...)
	buf = append(buf, 1, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(dict)))
	buf = append(buf, dict...)
	for _, v := range g.data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}

	_, err := w.Write(buf)
	return err
}

// EncodeBytes is Encode into a new byte slice.
func EncodeBytes(g *Grid) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, g)
	return buf.Bytes()
}
