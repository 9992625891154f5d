package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gsu-cloud/turbine-cloud/internal/analysis"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
	"github.com/gsu-cloud/turbine-cloud/internal/matrix"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid name", fmt.Errorf("save: %w", capture.ErrInvalidName), http.StatusBadRequest},
		{"bad request", badRequest("nope"), http.StatusBadRequest},
		{"not found", capture.ErrNotFound, http.StatusNotFound},
		{"decode", fmt.Errorf("analyze: %w", &matrix.DecodeError{Reason: "bad magic"}), http.StatusInternalServerError},
		{"too large", fmt.Errorf("%w: read: %w", errBadRequest, &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"pool stopped", analysis.ErrPoolStopped, http.StatusServiceUnavailable},
		{"io", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError_HidesServerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("open /var/data/secret: permission denied"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/var/data")

	rec = httptest.NewRecorder()
	writeError(rec, badRequest("invalid frame index %q", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid frame index")
}

func TestFinite(t *testing.T) {
	assert.Equal(t, float32(0), finite(float32(math.NaN())))
	assert.Equal(t, float32(0), finite(float32(math.Inf(1))))
	assert.Equal(t, float32(0), finite(float32(math.Inf(-1))))
	assert.Equal(t, float32(-3.5), finite(-3.5))
	assert.Equal(t, []float32{1, 0, 2}, finiteAll([]float32{1, float32(math.NaN()), 2}))
}

func TestParseAngle(t *testing.T) {
	assert.Equal(t, 45.5, parseAngle("45.5"))
	assert.Equal(t, 0.0, parseAngle(""))
	assert.Equal(t, 0.0, parseAngle("left"))
	assert.Equal(t, 0.0, parseAngle("NaN"))
	assert.Equal(t, 0.0, parseAngle("+Inf"))
}

func TestCaptureExt(t *testing.T) {
	assert.Equal(t, "npz", captureExt("scan.npz"))
	assert.Equal(t, "npz", captureExt("SCAN.NPZ"))
	assert.Equal(t, "npy", captureExt("scan.npy"))
	assert.Equal(t, "npy", captureExt(""))
	assert.Equal(t, "npy", captureExt("scan.bin"))
}
