package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *DecodeError via errors.Is.
	ErrDecode = errors.New("matrix: decode failed")

	// ErrMultiFrame is the cause of a DecodeError for captures holding more
	// than one frame.
	ErrMultiFrame = errors.New("multi-frame captures are not supported")
)

// DecodeError reports a malformed or unsupported capture payload.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("matrix: %s: %v", e.Reason, e.Err)
	}
	return "matrix: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func decodeErr(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}
