package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gsu-cloud/turbine-cloud/internal/ingest"
	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// Multipart field names of an upload.
const (
	fieldToken   = "turbine_token"
	fieldAngle   = "angle"
	fieldDataset = "dataset_file"
)

// defaultToken names uploads that carry no turbine token.
const defaultToken = "unknown"

const maxFieldBytes = 1024

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var status protocol.LiveStatus
	if err := decodeJSON(w, r, &status); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.Heartbeat.Apply(r.Context(), status))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)

	up, err := readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.Ingest.Ingest(r.Context(), up); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.UploadStatusSuccess)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	log.Printf("Telemetry: %v", payload)
	writeJSON(w, http.StatusOK, protocol.TelemetryAck)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var event protocol.TurbineEvent
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, err)
		return
	}

	log.Printf("Robot event from %s: max_temp=%.2f angle=%.1f captured_at=%d",
		event.TurbineToken, event.MaxTempDetected, event.AnglePosition, event.CaptureTimestamp)
	if s.Events != nil {
		s.Events.Broadcast(protocol.StreamEventRobot, event)
	}
	writeJSON(w, http.StatusOK, protocol.EventRecorded)
}

// readUpload parses the multipart upload. Unknown fields are skipped; when
// several dataset files are sent the last one wins.
func readUpload(r *http.Request) (ingest.Upload, error) {
	up := ingest.Upload{Token: defaultToken}

	mr, err := r.MultipartReader()
	if err != nil {
		return up, badRequest("expected a multipart upload: %v", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return up, nil
		}
		if err != nil {
			return up, fmt.Errorf("%w: malformed multipart body: %w", errBadRequest, err)
		}

		switch part.FormName() {
		case fieldToken:
			value, err := readField(part)
			if err != nil {
				return up, err
			}
			if value != "" {
				up.Token = value
			}

		case fieldAngle:
			value, err := readField(part)
			if err != nil {
				return up, err
			}
			up.Angle = parseAngle(value)

		case fieldDataset:
			data, err := io.ReadAll(part)
			if err != nil {
				return up, fmt.Errorf("%w: failed to read %s: %w", errBadRequest, fieldDataset, err)
			}
			up.Data = data
			up.HasFile = len(data) > 0
			up.Ext = captureExt(part.FileName())
		}
		part.Close()
	}
}

func readField(part io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read field: %w", errBadRequest, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseAngle returns 0 for anything that is not a finite number.
func parseAngle(value string) float64 {
	angle, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	return angle
}

func captureExt(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".npz") {
		return "npz"
	}
	return ingest.DefaultExt
}

