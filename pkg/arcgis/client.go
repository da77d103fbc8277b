// Package arcgis is a client for ArcGIS-style feature-service query
// endpoints: point-plus-distance spatial queries returning feature
// attribute maps.
package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/homescout/crimescope/internal/resilience"
)

// Sentinel errors for the feed failure taxonomy.
var (
	ErrTimeout    = eris.New("arcgis: request timed out")
	ErrConnection = eris.New("arcgis: connection failed")
)

// DefaultRecordCap is the server-side per-request record limit assumed when
// none is configured.
const DefaultRecordCap = 2000

// FieldMap names the feed attributes we read. Feeds differ; the defaults
// match the service this tool ships configured for.
type FieldMap struct {
	Timestamp string `mapstructure:"timestamp" yaml:"timestamp"`
	Type      string `mapstructure:"type" yaml:"type"`
	CaseID    string `mapstructure:"case_id" yaml:"case_id"`
	Latitude  string `mapstructure:"latitude" yaml:"latitude"`
	Longitude string `mapstructure:"longitude" yaml:"longitude"`
	Address   string `mapstructure:"address" yaml:"address"`
	District  string `mapstructure:"district" yaml:"district"`
	Beat      string `mapstructure:"beat" yaml:"beat"`
}

// DefaultFieldMap returns the attribute names used by the default feed.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Timestamp: "ReportedDate",
		Type:      "Offense",
		CaseID:    "CaseNumber",
		Latitude:  "Latitude",
		Longitude: "Longitude",
		Address:   "Address",
		District:  "District",
		Beat:      "Beat",
	}
}

// Record is one parsed incident feature.
type Record struct {
	CaseID     string    `json:"case_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"type"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address"`
	District   string    `json:"district,omitempty"`
	Beat       string    `json:"beat,omitempty"`
}

// Query describes one spatial/time-windowed request. Zero Start/End leave the
// window unbounded on that side.
type Query struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Start        time.Time
	End          time.Time
}

// Result holds one query's parsed records plus the raw feature count, which
// callers compare against the record cap to detect truncation.
type Result struct {
	Records       []Record
	Fetched       int
	ExceededLimit bool
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for feed calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithFieldMap overrides the attribute names read from features.
func WithFieldMap(fields FieldMap) Option {
	return func(c *Client) {
		c.fields = fields
	}
}

// WithRecordCap overrides the assumed server-side record limit.
func WithRecordCap(n int) Option {
	return func(c *Client) {
		c.recordCap = n
	}
}

// WithRetry overrides the retry policy for feed calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// Client queries a single feature-service layer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	fields     FieldMap
	recordCap  int
	retry      resilience.RetryConfig
}

// NewClient creates a feed client for the given query endpoint URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(2, 1),
		fields:     DefaultFieldMap(),
		recordCap:  DefaultRecordCap,
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordCap returns the configured per-request record limit.
func (c *Client) RecordCap() int {
	return c.recordCap
}

type featureResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
	ExceededTransferLimit bool `json:"exceededTransferLimit"`
	Error                 *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Do executes one feature query. A response without a features key is zero
// results, not an error. Individual malformed features are skipped and
// logged, never failing the chunk.
func (c *Client) Do(ctx context.Context, q Query) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "arcgis: rate limit")
	}

	params := url.Values{
		"geometry":       {strconv.FormatFloat(q.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(q.Latitude, 'f', -1, 64)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"distance":       {strconv.FormatFloat(q.RadiusMeters, 'f', -1, 64)},
		"units":          {"esriSRUnit_Meter"},
		"where":          {c.whereClause(q)},
		"outFields":      {"*"},
		"returnGeometry": {"true"},
		"f":              {"json"},
	}

	queryURL := c.baseURL + "?" + params.Encode()
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, queryURL)
	})
	if err != nil {
		var te *resilience.TransientError
		switch {
		case errors.As(err, &te) && te.StatusCode != 0:
			// HTTP-level failure that outlived the retries.
			return nil, te.Err
		case resilience.IsTransient(err) || ctx.Err() != nil:
			return nil, classifyTransportError(err)
		default:
			return nil, err
		}
	}

	var fr featureResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, eris.Wrap(err, "arcgis: parse response")
	}
	if fr.Error != nil {
		return nil, eris.Errorf("arcgis: feed error %d: %s", fr.Error.Code, fr.Error.Message)
	}

	result := &Result{
		Fetched:       len(fr.Features),
		ExceededLimit: fr.ExceededTransferLimit || len(fr.Features) >= c.recordCap,
	}

	var skipped int
	for _, f := range fr.Features {
		rec, err := c.parseRecord(f.Attributes)
		if err != nil {
			skipped++
			zap.L().Warn("skipping malformed incident record", zap.Error(err))
			continue
		}
		result.Records = append(result.Records, rec)
	}
	if skipped > 0 {
		zap.L().Info("feed chunk had malformed records",
			zap.Int("skipped", skipped),
			zap.Int("kept", len(result.Records)),
		)
	}

	return result, nil
}

// fetch performs one HTTP round. Rate-limit and server-side failures come
// back transient so the retry layer takes another pass at them.
func (c *Client) fetch(ctx context.Context, queryURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "arcgis: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, resilience.NewTransientError(
			eris.Errorf("arcgis: feed returned status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("arcgis: feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "arcgis: read response")
	}
	return body, nil
}

// whereClause builds the filter: the fixed 1=1 base plus epoch-millisecond
// bounds when the query carries a time window.
func (c *Client) whereClause(q Query) string {
	where := "1=1"
	if !q.Start.IsZero() {
		where += " AND " + c.fields.Timestamp + " >= " + strconv.FormatInt(q.Start.UnixMilli(), 10)
	}
	if !q.End.IsZero() {
		where += " AND " + c.fields.Timestamp + " <= " + strconv.FormatInt(q.End.UnixMilli(), 10)
	}
	return where
}

func (c *Client) parseRecord(attrs map[string]any) (Record, error) {
	caseID, err := stringAttr(attrs, c.fields.CaseID)
	if err != nil {
		return Record{}, err
	}

	ms, err := floatAttr(attrs, c.fields.Timestamp)
	if err != nil {
		return Record{}, eris.Wrapf(err, "record %s", caseID)
	}

	lat, err := floatAttr(attrs, c.fields.Latitude)
	if err != nil {
		return Record{}, eris.Wrapf(err, "record %s", caseID)
	}
	lon, err := floatAttr(attrs, c.fields.Longitude)
	if err != nil {
		return Record{}, eris.Wrapf(err, "record %s", caseID)
	}

	typ, _ := stringAttr(attrs, c.fields.Type)
	address, _ := stringAttr(attrs, c.fields.Address)
	district, _ := stringAttr(attrs, c.fields.District)
	beat, _ := stringAttr(attrs, c.fields.Beat)

	return Record{
		CaseID:     caseID,
		OccurredAt: time.UnixMilli(int64(ms)).UTC(),
		Type:       typ,
		Latitude:   lat,
		Longitude:  lon,
		Address:    address,
		District:   district,
		Beat:       beat,
	}, nil
}

// stringAttr reads a string-ish attribute; numbers are formatted, since some
// feeds store case numbers as integers.
func stringAttr(attrs map[string]any, field string) (string, error) {
	v, ok := attrs[field]
	if !ok || v == nil {
		return "", eris.Errorf("missing attribute %q", field)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return "", eris.Errorf("attribute %q has unexpected type %T", field, v)
	}
}

func floatAttr(attrs map[string]any, field string) (float64, error) {
	v, ok := attrs[field]
	if !ok || v == nil {
		return 0, eris.Errorf("missing attribute %q", field)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "attribute %q", field)
		}
		return f, nil
	default:
		return 0, eris.Errorf("attribute %q has unexpected type %T", field, v)
	}
}

// classifyTransportError maps transport failures onto the feed error taxonomy.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return eris.Wrapf(ErrTimeout, "%v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return eris.Wrapf(ErrTimeout, "%v", err)
	}
	return eris.Wrapf(ErrConnection, "%v", err)
}
