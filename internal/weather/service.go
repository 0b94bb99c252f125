// Package weather fetches forecast snapshots from the open-meteo API and
// caches them behind a configurable TTL.
//
// The upstream response is treated as opaque JSON: it is cached and
// forwarded verbatim, never parsed or reshaped. On upstream failure the
// error propagates to the caller and nothing is cached; the gateway does
// not serve stale data past the TTL and does not retry; retry policy
// belongs to the caller (a single dashboard request, which simply fails).
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/farmhub/farmhub-core/internal/cache"
	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
)

// maxResponseSize caps the upstream body read (1 MB). Forecast payloads
// are a few kilobytes; anything larger is misbehaviour.
const maxResponseSize = 1 << 20

// Forecast field selections, matching what the dashboard renders.
const (
	currentFields = "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m,is_day,apparent_temperature"
	hourlyFields  = "temperature_2m,weather_code,is_day"
	dailyFields   = "temperature_2m_max,temperature_2m_min"
)

// Service fetches and caches weather snapshots.
//
// All methods are safe for concurrent use. Concurrent requests for the
// same coordinate pair share one upstream call via the cache's
// single-flight guarantee.
type Service struct {
	cfg    config.WeatherConfig
	ttl    time.Duration
	client *http.Client
	cache  *cache.Cache[json.RawMessage]
}

// New creates a weather service from configuration.
func New(cfg config.WeatherConfig) *Service {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		cfg:    cfg,
		ttl:    time.Duration(cfg.CacheMinutes) * time.Minute,
		client: &http.Client{Timeout: timeout},
		cache:  cache.New[json.RawMessage](),
	}
}

// StartSweep launches the cache's periodic expiry sweep.
func (s *Service) StartSweep(ctx context.Context) {
	s.cache.StartSweep(ctx, s.ttl)
}

// Fetch returns the forecast snapshot for the given coordinates, serving
// from cache within the TTL window.
//
// Coordinates are used verbatim as the cache key: "37.77" and "37.770"
// are distinct keys, matching how clients supply them.
func (s *Service) Fetch(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	key := lat + "," + lon
	return s.cache.GetOrCompute(ctx, key, s.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return s.query(ctx, lat, lon)
	})
}

// query performs one upstream forecast request.
func (s *Service) query(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.forecastURL(lat, lon), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side fully consumed or abandoned

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrUpstream, err)
	}

	return json.RawMessage(body), nil
}

// forecastURL builds the upstream query URL for the given coordinates.
func (s *Service) forecastURL(lat, lon string) string {
	q := url.Values{}
	q.Set("latitude", lat)
	q.Set("longitude", lon)
	q.Set("current", currentFields)
	q.Set("hourly", hourlyFields)
	q.Set("daily", dailyFields)
	q.Set("forecast_days", "1")
	q.Set("temperature_unit", "celsius")
	q.Set("wind_speed_unit", "kmh")
	q.Set("timezone", "auto")
	return s.cfg.BaseURL + "?" + q.Encode()
}
