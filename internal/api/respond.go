package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/gsu-cloud/turbine-cloud/internal/analysis"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
)

// errBadRequest marks request errors caused by the client.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// writeError maps err to a status code and writes a short plain-text body.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	msg := http.StatusText(status)
	if status < http.StatusInternalServerError {
		msg = err.Error()
	} else {
		log.Printf("Request failed: %v", err)
	}
	http.Error(w, msg, status)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, capture.ErrInvalidName), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrPoolStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// finite replaces NaN and infinities, which JSON cannot carry, with 0.
func finite(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return v
}

func finiteAll(values []float32) []float32 {
	for i, v := range values {
		values[i] = finite(v)
	}
	return values
}
