package retrieval

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/homescout/crimescope/internal/geo"
	"github.com/homescout/crimescope/pkg/arcgis"
)

// FeedClient is the slice of the feed client the retriever needs.
type FeedClient interface {
	Do(ctx context.Context, q arcgis.Query) (*arcgis.Result, error)
	RecordCap() int
}

// Retriever fetches the full requested time span as a series of chunked
// queries and merges the chunks into one deduplicated record set.
type Retriever struct {
	feed FeedClient
	now  func() time.Time
}

// New returns a Retriever backed by the given feed client.
func New(feed FeedClient) *Retriever {
	return &Retriever{feed: feed, now: time.Now}
}

// Result is the merged outcome of a chunked retrieval.
type Result struct {
	Records            []arcgis.Record
	Chunks             int
	PossiblyIncomplete bool
}

// Retrieve fetches every incident within radiusMiles of the point over the
// trailing monthsBack months. Chunks are fetched newest first; a chunk whose
// raw feature count reaches the record cap marks the result possibly
// incomplete rather than failing. Records stamped on a chunk boundary are
// returned by both adjacent chunks and deduplicated by case identifier.
func (r *Retriever) Retrieve(ctx context.Context, lat, lon, radiusMiles float64, monthsBack int) (*Result, error) {
	if monthsBack <= 0 {
		return nil, eris.Errorf("retrieval: months back must be positive, got %d", monthsBack)
	}

	windows := PlanWindows(r.now(), monthsBack)
	radiusMeters := geo.MilesToMeters(radiusMiles)

	out := &Result{Chunks: len(windows)}
	seen := make(map[string]struct{})

	for _, w := range windows {
		res, err := r.feed.Do(ctx, arcgis.Query{
			Latitude:     lat,
			Longitude:    lon,
			RadiusMeters: radiusMeters,
			Start:        w.Start,
			End:          w.End,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "retrieval: chunk %s to %s",
				w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
		}

		if res.ExceededLimit || res.Fetched >= r.feed.RecordCap() {
			out.PossiblyIncomplete = true
			zap.L().Warn("chunk hit record cap, results may be incomplete",
				zap.Time("start", w.Start),
				zap.Time("end", w.End),
				zap.Int("fetched", res.Fetched))
		}

		kept := 0
		for _, rec := range res.Records {
			if rec.OccurredAt.Before(w.Start) || rec.OccurredAt.After(w.End) {
				continue
			}
			if _, dup := seen[rec.CaseID]; dup {
				continue
			}
			seen[rec.CaseID] = struct{}{}
			out.Records = append(out.Records, rec)
			kept++
		}

		zap.L().Debug("fetched chunk",
			zap.Time("start", w.Start),
			zap.Time("end", w.End),
			zap.Int("fetched", res.Fetched),
			zap.Int("kept", kept))
	}

	return out, nil
}
