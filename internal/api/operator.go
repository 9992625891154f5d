package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gsu-cloud/turbine-cloud/internal/analysis"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

const maxJSONBody = 1 << 20

// fileDateLayout is the modification time format of the file listing.
const fileDateLayout = "2006-01-02 15:04:05"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(protocol.HealthMessage))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.State.Status())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.State.Config())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg protocol.RemoteConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, err)
		return
	}

	s.State.SetConfig(cfg)
	writeJSON(w, http.StatusOK, s.State.Config())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Alerts.List())
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.Captures.List()
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]protocol.FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, protocol.FileEntry{
			Name:   f.Name,
			SizeKB: math.Round(float64(f.Size)/1024*100) / 100,
			Date:   f.ModTime.Format(fileDateLayout),
			Type:   f.Ext(),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := s.Captures.Read(name)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// Captures hold a single frame; other indexes are rejected before the
	// file is read.
	frame, err := strconv.Atoi(chi.URLParam(r, "frame_index"))
	if err != nil {
		writeError(w, badRequest("invalid frame index %q", chi.URLParam(r, "frame_index")))
		return
	}
	if frame != 0 {
		writeError(w, badRequest("frame %d out of range: captures hold a single frame", frame))
		return
	}

	result, err := s.analyze(r, name)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, cols := result.Grid.Dimensions()
	writeJSON(w, http.StatusOK, protocol.MatrixView{
		Width:   cols,
		Height:  rows,
		MinTemp: finite(result.Stats.Min),
		MaxTemp: finite(result.Stats.Max),
		Pixels:  finiteAll(result.Grid.FlattenRowMajor()),
	})
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.analyze(r, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.EvolutionPoint{
		FrameIndex: 0,
		MaxTemp:    finite(result.Stats.Max),
		AvgTemp:    finite(result.Stats.Mean),
	})
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Fleet.List())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.Stats == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.Stats())
}

// filenameParam returns the decoded {filename} parameter after checking that
// it cannot leave the storage directory. chi matches on RawPath when the
// request carries one, in which case the segment is still escaped.
func filenameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			return "", badRequest("malformed file name")
		}
		name = unescaped
	}
	if err := capture.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

func (s *Server) analyze(r *http.Request, name string) (*analysis.Result, error) {
	data, err := s.Captures.Read(name)
	if err != nil {
		return nil, err
	}
	return s.Analyzer.Analyze(r.Context(), data)
}
