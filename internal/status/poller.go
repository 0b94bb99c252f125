// Package status aggregates near-real-time device status across the fleet.
//
// One inbound request fans out into one bounded probe per registered
// device; probes run concurrently so the worst-case wall clock is the
// per-device timeout, not timeout times fleet size. A device that times out,
// refuses the connection, or returns garbage is reported as offline; it
// never fails the sweep and never delays its siblings.
package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/farmhub/farmhub-core/internal/cache"
	"github.com/farmhub/farmhub-core/internal/device"
)

const (
	// defaultProbeTimeout bounds each per-device status query.
	defaultProbeTimeout = 3 * time.Second

	// defaultSweepTTL fronts the whole-fleet sweep to absorb bursts of
	// dashboard polling.
	defaultSweepTTL = 30 * time.Second

	// sweepCacheKey is the single cache key: a sweep always covers the
	// whole fleet, so there is exactly one entry.
	sweepCacheKey = "fleet"

	// maxStatusBody caps a device status response (64 KB). Field
	// controllers report a handful of sensor values.
	maxStatusBody = 64 << 10
)

// Logger defines the logging interface used by the Poller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tunes the Poller. Zero values select the defaults above.
type Options struct {
	// ProbeTimeout bounds each per-device query.
	ProbeTimeout time.Duration

	// SweepTTL is how long a completed sweep is served from cache.
	SweepTTL time.Duration

	// Client is the HTTP client used for probes. Its timeout is ignored;
	// per-probe contexts bound each call.
	Client *http.Client
}

// Poller fans out status probes across the registry and caches the result.
//
// All methods are safe for concurrent use. Concurrent callers during a
// cache miss share a single sweep via the cache's single-flight guarantee.
type Poller struct {
	registry *device.Registry
	client   *http.Client
	timeout  time.Duration
	ttl      time.Duration
	cache    *cache.Cache[Sweep]
	logger   Logger

	mu      sync.RWMutex
	onSweep func(Sweep)
}

// NewPoller creates a poller over the given registry.
func NewPoller(registry *device.Registry, opts Options) *Poller {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.SweepTTL <= 0 {
		opts.SweepTTL = defaultSweepTTL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{
			Transport: &http.Transport{
				// Small fleet on a local network; keep connections warm
				// but don't hoard them.
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Poller{
		registry: registry,
		client:   opts.Client,
		timeout:  opts.ProbeTimeout,
		ttl:      opts.SweepTTL,
		cache:    cache.New[Sweep](),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()
}

// log returns the current logger. Reads go through the mutex because
// SetLogger may race a sweep already in flight.
func (p *Poller) log() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// SweepTTL returns the configured sweep cache window. Background refresh
// loops tick on this so consumers see a fresh sweep per window.
func (p *Poller) SweepTTL() time.Duration {
	return p.ttl
}

// SetOnSweep registers a callback invoked with every freshly computed
// sweep (cache hits do not re-fire it). Used to push sweeps to WebSocket
// clients and the MQTT publisher.
func (p *Poller) SetOnSweep(fn func(Sweep)) {
	p.mu.Lock()
	p.onSweep = fn
	p.mu.Unlock()
}

// PollAll returns the current fleet sweep, serving a cached one within
// the TTL window.
//
// The sweep itself cannot fail: unreachable devices appear as offline
// entries, so the result always holds exactly one entry per registered
// device.
func (p *Poller) PollAll(ctx context.Context) Sweep {
	sweep, _ := p.cache.GetOrCompute(ctx, sweepCacheKey, p.ttl, func(ctx context.Context) (Sweep, error) {
		return p.sweep(ctx), nil
	})
	return sweep
}

// sweep probes every device concurrently and merges the results.
func (p *Poller) sweep(ctx context.Context) Sweep {
	devices := p.registry.Devices()
	reports := make([]Report, len(devices))

	start := time.Now()
	var wg sync.WaitGroup
	for i, d := range devices {
		wg.Add(1)
		go func(i int, d device.Device) {
			defer wg.Done()
			reports[i] = p.probe(ctx, d)
		}(i, d)
	}
	wg.Wait()

	sweep := make(Sweep, len(reports))
	online := 0
	for _, r := range reports {
		sweep[r.ID] = r
		if r.Status.Online {
			online++
		}
	}

	p.log().Debug("fleet sweep complete",
		"devices", len(reports),
		"online", online,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	p.mu.RLock()
	fn := p.onSweep
	p.mu.RUnlock()
	if fn != nil {
		fn(sweep)
	}

	return sweep
}

// probe queries one device's status endpoint with its own timeout.
// Every failure mode collapses to an offline report for that device.
func (p *Poller) probe(ctx context.Context, d device.Device) Report {
	report := Report{Device: d}
	logger := p.log()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.StatusURL(), nil)
	if err != nil {
		logger.Warn("building status request", "device", d.ID, "error", err)
		return report
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Debug("device unreachable", "device", d.ID, "error", err)
		return report
	}
	defer resp.Body.Close() //nolint:errcheck // Body fully consumed or abandoned

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("device status error", "device", d.ID, "status", resp.StatusCode)
		return report
	}

	var telemetry map[string]any
	body := io.LimitReader(resp.Body, maxStatusBody)
	if err := json.NewDecoder(body).Decode(&telemetry); err != nil {
		logger.Debug("malformed device status", "device", d.ID, "error", err)
		return report
	}

	// A device cannot claim to be offline while answering.
	delete(telemetry, "online")

	report.Status = Status{Online: true, Telemetry: telemetry}
	return report
}
