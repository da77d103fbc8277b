package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/homescout/crimescope/internal/resilience"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// userAgent identifies us to the provider, per Nominatim usage policy.
const userAgent = "crimescope/1.0 (github.com/homescout/crimescope)"

// nominatimPlace is one match in the provider's JSON response.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// search issues one provider request for the normalized query.
func (g *geocoder) search(ctx context.Context, query string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"q":            {query},
		"format":       {"jsonv2"},
		"limit":        {"1"},
		"countrycodes": {"us"},
	}
	reqURL := g.baseURL + "/search?" + params.Encode()

	body, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: build request")
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "geocode: provider request for %q", query)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, resilience.NewTransientError(
				eris.Errorf("geocode: provider returned status %d for %q", resp.StatusCode, query),
				resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("geocode: provider returned status %d for %q", resp.StatusCode, query)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, eris.Wrap(err, "geocode: read response")
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrapf(err, "geocode: parse response for %q", query)
	}

	if len(places) == 0 {
		return nil, eris.Wrapf(ErrAddressNotFound, "no match for %q", query)
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: parse lat %q", place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: parse lon %q", place.Lon)
	}

	zap.L().Debug("geocoded address",
		zap.String("query", query),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: place.DisplayName,
		Query:       query,
	}, nil
}
