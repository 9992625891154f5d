package ingest

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsu-cloud/turbine-cloud/internal/alerts"
	"github.com/gsu-cloud/turbine-cloud/internal/analysis"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
	"github.com/gsu-cloud/turbine-cloud/internal/matrix"
	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

type directAnalyzer struct{}

func (directAnalyzer) Analyze(_ context.Context, data []byte) (*analysis.Result, error) {
	return analysis.Analyze(data)
}

type recordingObserver struct {
	mu      sync.Mutex
	records []protocol.AlertRecord
}

func (o *recordingObserver) OnAlert(_ context.Context, rec protocol.AlertRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

type fixture struct {
	store    *capture.Store
	ring     *alerts.Ring
	observer *recordingObserver
	pipeline *Pipeline
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := capture.New(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		ring:     alerts.NewRing(alerts.DefaultCapacity),
		observer: &recordingObserver{},
		now:      time.Unix(1_700_000_000, 0),
	}
	f.pipeline = NewPipeline(store, directAnalyzer{}, f.ring,
		WithClock(func() time.Time { return f.now }),
		WithObservers(f.observer),
	)
	return f
}

func grid2x2(t *testing.T) []byte {
	t.Helper()
	g, err := matrix.FromRows([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	return matrix.EncodeBytes(g)
}

func TestIngest_StoresFileAndRecordsAlert(t *testing.T) {
	f := newFixture(t)
	data := grid2x2(t)

	rec, err := f.pipeline.Ingest(context.Background(), Upload{
		Token: "T1", Angle: 45, Data: data, HasFile: true,
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "capture_T1_1700000000.npy", rec.DatasetPath)
	assert.Equal(t, int64(1_700_000_000), rec.Timestamp)
	assert.Equal(t, "T1", rec.TurbineToken)
	assert.Equal(t, 4.0, rec.MaxTemp)
	assert.Equal(t, 45.0, rec.Angle)
	_, err = uuid.Parse(rec.ID)
	assert.NoError(t, err)

	stored, err := f.store.Read(rec.DatasetPath)
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	list := f.ring.List()
	require.Len(t, list, 1)
	assert.Equal(t, *rec, list[0])
	assert.Equal(t, []protocol.AlertRecord{*rec}, f.observer.records)
}

func TestIngest_ExtensionIsKept(t *testing.T) {
	f := newFixture(t)

	rec, err := f.pipeline.Ingest(context.Background(), Upload{Token: "T1", Data: grid2x2(t), HasFile: true, Ext: "npz"})
	require.NoError(t, err)
	assert.Equal(t, "capture_T1_1700000000.npz", rec.DatasetPath)
}

func TestIngest_WithoutFileRecordsNothing(t *testing.T) {
	f := newFixture(t)

	rec, err := f.pipeline.Ingest(context.Background(), Upload{Token: "T1", Angle: 10})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, f.ring.Len())
	assert.Empty(t, f.observer.records)

	files, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIngest_UndecodableCaptureStillRecorded(t *testing.T) {
	f := newFixture(t)

	rec, err := f.pipeline.Ingest(context.Background(), Upload{Token: "T1", Data: []byte("not an array"), HasFile: true})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 0.0, rec.MaxTemp)
	assert.Equal(t, 1, f.ring.Len())
	assert.True(t, f.store.Exists(rec.DatasetPath))
}

func TestIngest_NonFiniteMaximumRecordedAsZero(t *testing.T) {
	f := newFixture(t)
	g, err := matrix.NewGrid(1, 2, []float32{float32(math.NaN()), 5})
	require.NoError(t, err)

	rec, err := f.pipeline.Ingest(context.Background(), Upload{Token: "T1", Data: matrix.EncodeBytes(g), HasFile: true})
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.MaxTemp)
}

func TestIngest_SaveFailureRecordsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Ingest(context.Background(), Upload{Token: "../evil", Data: grid2x2(t), HasFile: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrInvalidName)
	assert.Equal(t, 0, f.ring.Len())
	assert.Empty(t, f.observer.records)
}

func TestIngest_StorageFailureRecordsNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.store.Dir()))
	// A regular file where the directory was makes every write fail.
	require.NoError(t, os.WriteFile(f.store.Dir(), []byte("x"), 0644))
	t.Cleanup(func() { os.Remove(f.store.Dir()) })

	_, err := f.pipeline.Ingest(context.Background(), Upload{Token: "T1", Data: grid2x2(t), HasFile: true})
	require.Error(t, err)
	assert.False(t, errors.Is(err, capture.ErrInvalidName))
	assert.Equal(t, 0, f.ring.Len())
}

func TestIngest_SameSecondCollisionOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.pipeline.Ingest(ctx, Upload{Token: "T1", Data: []byte("first"), HasFile: true})
	require.NoError(t, err)
	second, err := f.pipeline.Ingest(ctx, Upload{Token: "T1", Data: grid2x2(t), HasFile: true})
	require.NoError(t, err)

	assert.Equal(t, first.DatasetPath, second.DatasetPath)
	assert.NotEqual(t, first.ID, second.ID)

	stored, err := os.ReadFile(filepath.Join(f.store.Dir(), second.DatasetPath))
	require.NoError(t, err)
	assert.Equal(t, grid2x2(t), stored)
	assert.Equal(t, 2, f.ring.Len())
}
