package baseline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/crimescope/internal/cache"
	"github.com/homescout/crimescope/internal/geo"
	"github.com/homescout/crimescope/internal/model"
	"github.com/homescout/crimescope/internal/retrieval"
	"github.com/homescout/crimescope/internal/taxonomy"
	"github.com/homescout/crimescope/pkg/arcgis"
)

type fakeSampler struct {
	records []arcgis.Record
	err     error
	calls   int
}

func (f *fakeSampler) Retrieve(_ context.Context, _, _, _ float64, _ int) (*retrieval.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &retrieval.Result{Records: f.records, Chunks: 1}, nil
}

func sampleRecords(n int, typ string) []arcgis.Record {
	recs := make([]arcgis.Record, n)
	for i := range recs {
		recs[i] = arcgis.Record{CaseID: fmt.Sprintf("C%d", i), Type: typ, OccurredAt: time.Now()}
	}
	return recs
}

func testService(sampler *fakeSampler) *Service {
	region := geo.NewRegion("Madison", "WI", 42.99, -89.59, 43.22, -89.24, 43.0747, -89.3842, 101.5)
	c := cache.New(cache.NewMemory(), "baseline", 30*24*time.Hour)
	return NewService(sampler, c, region, taxonomy.Default())
}

func TestGet_ComputesAndCaches(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{records: sampleRecords(40, "THEFT")}
	svc := testService(sampler)

	entry, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, 40.0, entry.ReferenceCircleCount)
	assert.InDelta(t, 40.0/geo.CircleAreaSqMiles(0.5), entry.IncidentsPerSqMile, 0.1)
	assert.Equal(t, 12, entry.TimePeriodMonths)
	assert.Equal(t, 100.0, entry.CategoryPct[model.CategoryProperty])
	assert.Equal(t, 0.0, entry.CategoryPct[model.CategoryViolent])

	// Second call is served from cache.
	again, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, entry.ReferenceCircleCount, again.ReferenceCircleCount)
	assert.Equal(t, 1, sampler.calls)
}

func TestGet_MonthsMismatchRecomputes(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{records: sampleRecords(10, "BATTERY")}
	svc := testService(sampler)

	_, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)

	entry, err := svc.Get(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 24, entry.TimePeriodMonths)
	assert.Equal(t, 2, sampler.calls)
}

func TestGet_StaleEntryRecomputes(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{records: sampleRecords(10, "THEFT")}
	svc := testService(sampler)

	_, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)

	// Fast-forward past the freshness horizon.
	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = svc.Get(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 2, sampler.calls)
}

func TestGet_StaleFallbackWhenSampleFails(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{records: sampleRecords(10, "THEFT")}
	svc := testService(sampler)

	first, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)

	sampler.err = eris.New("feed down")
	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	entry, err := svc.Get(context.Background(), 12)
	require.NoError(t, err, "stale entry should be served when refresh fails")
	assert.Equal(t, first.ReferenceCircleCount, entry.ReferenceCircleCount)
}

func TestGet_UnavailableWhenNothingCached(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{err: eris.New("feed down")}
	svc := testService(sampler)

	_, err := svc.Get(context.Background(), 12)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnavailable))
}

func TestForceRefresh(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{records: sampleRecords(10, "THEFT")}
	svc := testService(sampler)

	_, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)

	sampler.records = sampleRecords(20, "THEFT")
	entry, err := svc.ForceRefresh(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 20.0, entry.ReferenceCircleCount)
	assert.Equal(t, 2, sampler.calls)
}

func TestGet_EmptySample(t *testing.T) {
	t.Parallel()

	sampler := &fakeSampler{}
	svc := testService(sampler)

	entry, err := svc.Get(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 0.0, entry.ReferenceCircleCount)
	assert.Equal(t, 0.0, entry.TotalIncidents)
	assert.Equal(t, 0.0, entry.CategoryPct[model.CategoryViolent])
}
