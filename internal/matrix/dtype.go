package matrix

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// dtype describes one element of a NumPy array payload.
type dtype struct {
	kind  byte // 'f', 'i' or 'u'
	size  int
	order binary.ByteOrder
}

func parseDescr(descr string) (dtype, error) {
	if len(descr) < 3 {
		return dtype{}, fmt.Errorf("descr too short")
	}

	var dt dtype
	switch descr[0] {
	case '<', '|', '=':
		dt.order = binary.LittleEndian
	case '>':
		dt.order = binary.BigEndian
	default:
		return dtype{}, fmt.Errorf("unknown byte order %q", descr[0])
	}

	dt.kind = descr[1]
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return dtype{}, fmt.Errorf("invalid item size: %w", err)
	}
	dt.size = size

	switch {
	case dt.kind == 'f' && (size == 4 || size == 8):
	case (dt.kind == 'i' || dt.kind == 'u') && (size == 1 || size == 2 || size == 4 || size == 8):
	default:
		return dtype{}, fmt.Errorf("kind %q with size %d", dt.kind, size)
	}
	return dt, nil
}

// read converts the element at the start of b to float32.
func (dt dtype) read(b []byte) float32 {
	switch dt.kind {
	case 'f':
		if dt.size == 4 {
			return math.Float32frombits(dt.order.Uint32(b))
		}
		return float32(math.Float64frombits(dt.order.Uint64(b)))
	case 'i':
		switch dt.size {
		case 1:
			return float32(int8(b[0]))
		case 2:
			return float32(int16(dt.order.Uint16(b)))
		case 4:
			return float32(int32(dt.order.Uint32(b)))
		default:
			return float32(int64(dt.order.Uint64(b)))
		}
	default:
		switch dt.size {
		case 1:
			return float32(b[0])
		case 2:
			return float32(dt.order.Uint16(b))
		case 4:
			return float32(dt.order.Uint32(b))
		default:
			return float32(dt.order.Uint64(b))
		}
	}
}
