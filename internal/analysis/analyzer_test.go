package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/crimescope/internal/cache"
	"github.com/homescout/crimescope/internal/model"
	"github.com/homescout/crimescope/internal/retrieval"
	"github.com/homescout/crimescope/internal/scorer"
	"github.com/homescout/crimescope/internal/taxonomy"
	"github.com/homescout/crimescope/pkg/arcgis"
	"github.com/homescout/crimescope/pkg/geocode"
)

const (
	testLat = 43.0731
	testLon = -89.4012
)

type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (*geocode.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSource struct {
	result *retrieval.Result
	err    error
	calls  int
}

func (f *fakeSource) Retrieve(_ context.Context, _, _, _ float64, _ int) (*retrieval.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeBaseline struct {
	entry *model.BaselineEntry
	err   error
}

func (f *fakeBaseline) Get(_ context.Context, _ int) (*model.BaselineEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

// nearbyRecords builds n records effectively at the query point.
func nearbyRecords(n int, typ string, at time.Time) []arcgis.Record {
	recs := make([]arcgis.Record, n)
	for i := range recs {
		recs[i] = arcgis.Record{
			CaseID:     fmt.Sprintf("%s-%d", typ, i),
			OccurredAt: at,
			Type:       typ,
			Latitude:   testLat + float64(i)*0.00001,
			Longitude:  testLon,
			Address:    "100 Block State St",
		}
	}
	return recs
}

func testAnalyzer(g *fakeGeocoder, src *fakeSource, b BaselineSource) *Analyzer {
	queries := cache.New(cache.NewMemory(), "queries", 24*time.Hour)
	return New(g, src, queries, b, taxonomy.Default(), scorer.NewDefault())
}

func defaultGeocoder() *fakeGeocoder {
	return &fakeGeocoder{result: &geocode.Result{
		Latitude:    testLat,
		Longitude:   testLon,
		DisplayName: "123 W Main St, Madison, WI",
		Query:       "123 W Main St, Madison, WI",
	}}
}

func TestAnalyze_QuietAddress(t *testing.T) {
	t.Parallel()

	g := defaultGeocoder()
	src := &fakeSource{result: &retrieval.Result{
		Records: nearbyRecords(2, "THEFT", time.Now().AddDate(0, -2, 0)),
		Chunks:  1,
	}}
	a := testAnalyzer(g, src, &fakeBaseline{entry: &model.BaselineEntry{
		ReferenceCircleCount: 40,
		TimePeriodMonths:     12,
		DataDate:             time.Now(),
	}})

	res, err := a.Analyze(context.Background(), "123 main st", 0, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, DefaultRadiusMiles, res.RadiusMiles)
	assert.Equal(t, DefaultMonthsBack, res.MonthsBack)
	assert.Len(t, res.Incidents, 2)
	assert.Equal(t, 2, res.Stats.TotalCrimes)
	assert.GreaterOrEqual(t, res.Score.Score, 80)
	assert.Equal(t, "Very Safe", res.Score.Level)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, "Low activity area", res.Comparison.Ranking)
	assert.False(t, res.PossiblyIncomplete)
}

func TestAnalyze_BusyAddress(t *testing.T) {
	t.Parallel()

	now := time.Now()
	records := append(
		nearbyRecords(60, "THEFT", now.AddDate(0, -1, 0)),
		nearbyRecords(24, "BATTERY", now.AddDate(0, -8, 0))...)

	g := defaultGeocoder()
	src := &fakeSource{result: &retrieval.Result{Records: records, Chunks: 1, PossiblyIncomplete: true}}
	a := testAnalyzer(g, src, &fakeBaseline{entry: &model.BaselineEntry{
		ReferenceCircleCount: 20,
		TimePeriodMonths:     12,
		DataDate:             now,
	}})

	res, err := a.Analyze(context.Background(), "651 State St", 0.5, 12)
	require.NoError(t, err)

	assert.Equal(t, 84, res.Stats.TotalCrimes)
	assert.Equal(t, 24, res.Stats.ByCategory[model.CategoryViolent])
	assert.Less(t, res.Score.Score, 60, "a busy block should not rate Safe")
	assert.True(t, res.PossiblyIncomplete)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, "Very high activity area", res.Comparison.Ranking)
	assert.NotEmpty(t, res.Score.Explanations)
}

func TestAnalyze_DistanceFilter(t *testing.T) {
	t.Parallel()

	far := arcgis.Record{
		CaseID:     "FAR",
		OccurredAt: time.Now().AddDate(0, -1, 0),
		Type:       "THEFT",
		Latitude:   testLat + 0.05, // about 3.5 miles north
		Longitude:  testLon,
	}
	src := &fakeSource{result: &retrieval.Result{
		Records: append(nearbyRecords(3, "THEFT", time.Now().AddDate(0, -1, 0)), far),
		Chunks:  1,
	}}
	a := testAnalyzer(defaultGeocoder(), src, nil)

	res, err := a.Analyze(context.Background(), "123 main st", 0.5, 12)
	require.NoError(t, err)

	assert.Len(t, res.Incidents, 3, "records outside the circle must be dropped")
	for _, inc := range res.Incidents {
		assert.LessOrEqual(t, inc.DistanceMiles, 0.5)
	}
}

func TestAnalyze_CacheHitSkipsUpstream(t *testing.T) {
	t.Parallel()

	g := defaultGeocoder()
	src := &fakeSource{result: &retrieval.Result{
		Records: nearbyRecords(5, "THEFT", time.Now().AddDate(0, -1, 0)),
		Chunks:  1,
	}}
	a := testAnalyzer(g, src, nil)

	first, err := a.Analyze(context.Background(), "123 Main St", 0.5, 12)
	require.NoError(t, err)

	// Same query with different whitespace and casing hits the cache.
	second, err := a.Analyze(context.Background(), "  123  MAIN st ", 0.5, 12)
	require.NoError(t, err)

	assert.Equal(t, 1, g.calls)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first.Stats.TotalCrimes, second.Stats.TotalCrimes)
	assert.NotEqual(t, first.ID, second.ID, "each analysis gets its own identifier")

	// Different parameters miss.
	_, err = a.Analyze(context.Background(), "123 Main St", 1.0, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestAnalyze_GeocodeErrorPropagates(t *testing.T) {
	t.Parallel()

	g := &fakeGeocoder{err: geocode.ErrAddressNotFound}
	a := testAnalyzer(g, &fakeSource{}, nil)

	_, err := a.Analyze(context.Background(), "nowhere", 0.5, 12)
	require.Error(t, err)
	assert.True(t, eris.Is(err, geocode.ErrAddressNotFound))
}

func TestAnalyze_BaselineFailureDegrades(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: &retrieval.Result{
		Records: nearbyRecords(3, "THEFT", time.Now().AddDate(0, -1, 0)),
		Chunks:  1,
	}}
	a := testAnalyzer(defaultGeocoder(), src, &fakeBaseline{err: eris.New("feed down")})

	res, err := a.Analyze(context.Background(), "123 main st", 0.5, 12)
	require.NoError(t, err)
	assert.Nil(t, res.Comparison)
	assert.NotZero(t, res.Score.Score)
}

func TestAnalyze_ParamValidation(t *testing.T) {
	t.Parallel()

	a := testAnalyzer(defaultGeocoder(), &fakeSource{}, nil)

	_, err := a.Analyze(context.Background(), "123 main st", 6.0, 12)
	require.Error(t, err)

	_, err = a.Analyze(context.Background(), "123 main st", 0.5, 61)
	require.Error(t, err)

	_, err = a.Analyze(context.Background(), "123 main st", -1, 12)
	require.Error(t, err)
}

func TestIncidents(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: &retrieval.Result{
		Records:            nearbyRecords(4, "THEFT", time.Now().AddDate(0, -1, 0)),
		Chunks:             2,
		PossiblyIncomplete: true,
	}}
	a := testAnalyzer(defaultGeocoder(), src, nil)

	incidents, incomplete, err := a.Incidents(context.Background(), "123 main st", 0.5, 18)
	require.NoError(t, err)
	assert.Len(t, incidents, 4)
	assert.True(t, incomplete)
	assert.Equal(t, "100 Block State St", incidents[0].Location)
}
