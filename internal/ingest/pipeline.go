// Package ingest turns an uploaded capture into a stored file and an alert
// record.
package ingest

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/gsu-cloud/turbine-cloud/internal/alerts"
	"github.com/gsu-cloud/turbine-cloud/internal/analysis"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// DefaultExt is the capture extension used when the upload does not name one.
const DefaultExt = "npy"

// Analyzer decodes and reduces a capture.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*analysis.Result, error)
}

// Observer is told about every recorded alert, after it is in the ring.
type Observer interface {
	OnAlert(ctx context.Context, rec protocol.AlertRecord)
}

// Upload is the parsed form of a robot upload.
type Upload struct {
	Token   string
	Angle   float64
	Data    []byte
	HasFile bool
	Ext     string
}

// Pipeline stores captures, analyzes them and records alerts.
type Pipeline struct {
	captures  *capture.Store
	analyzer  Analyzer
	alerts    *alerts.Ring
	observers []Observer
	now       func() time.Time
	newID     func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithObservers registers alert observers.
func WithObservers(observers ...Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, observers...) }
}

// NewPipeline creates an ingest pipeline.
func NewPipeline(captures *capture.Store, analyzer Analyzer, ring *alerts.Ring, opts ...Option) *Pipeline {
	p := &Pipeline{
		captures: captures,
		analyzer: analyzer,
		alerts:   ring,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores the uploaded capture and records an alert for it. Uploads
// without a file are accepted and record nothing. A failed save aborts the
// upload; a capture that cannot be analyzed is still recorded with a max
// temperature of 0.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (*protocol.AlertRecord, error) {
	if !up.HasFile {
		log.Printf("Upload from %s carried no dataset file", up.Token)
		return nil, nil
	}

	ext := up.Ext
	if ext == "" {
		ext = DefaultExt
	}

	now := p.now().Unix()
	name := capture.FileName(up.Token, now, ext)

	if p.captures.Exists(name) {
		log.Printf("WARNING: capture %s already exists, overwriting with a second upload from %s in the same second", name, up.Token)
	}

	if err := p.captures.Save(name, up.Data); err != nil {
		return nil, fmt.Errorf("failed to save capture: %w", err)
	}
	log.Printf("Stored capture %s (%d bytes)", name, len(up.Data))

	rec := protocol.AlertRecord{
		ID:           p.newID(),
		Timestamp:    now,
		TurbineToken: up.Token,
		MaxTemp:      p.maxTemp(ctx, name, up.Data),
		Angle:        up.Angle,
		DatasetPath:  name,
	}

	p.alerts.Push(rec)
	log.Printf("Alert %s: turbine=%s max_temp=%.2f angle=%.1f", rec.ID, rec.TurbineToken, rec.MaxTemp, rec.Angle)

	for _, o := range p.observers {
		o.OnAlert(ctx, rec)
	}

	return &rec, nil
}

func (p *Pipeline) maxTemp(ctx context.Context, name string, data []byte) float64 {
	result, err := p.analyzer.Analyze(ctx, data)
	if err != nil {
		log.Printf("Could not analyze capture %s, recording max_temp=0: %v", name, err)
		return 0
	}

	max := float64(result.Stats.Max)
	if math.IsNaN(max) || math.IsInf(max, 0) {
		log.Printf("Capture %s has no finite maximum, recording max_temp=0", name)
		return 0
	}
	return max
}
