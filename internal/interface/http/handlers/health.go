// Package handlers holds the health probe machinery behind the server's
// /health, /ready, and /live endpoints.
package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker aggregates named dependency probes into one status.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	AddCheck(name string, check HealthCheckFunc)
	RemoveCheck(name string)
}

// HealthCheckFunc probes one dependency; nil means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregated probe outcome.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is one dependency's probe outcome.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// CompositeHealthChecker runs every registered probe concurrently under a
// per-probe timeout, so one hung dependency cannot stall the endpoint.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheckFunc
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a checker with a 5s per-probe timeout.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]HealthCheckFunc),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout changes the per-probe timeout.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// AddCheck registers a named probe, replacing any previous one.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RemoveCheck unregisters a probe.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check runs all probes and aggregates. An empty checker reports healthy,
// so a service without dependencies still answers its probes.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	probes := make([]HealthCheckFunc, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		probes = append(probes, check)
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(names) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	results := make([]CheckResult, len(probes))
	var wg sync.WaitGroup
	for i, probe := range probes {
		wg.Add(1)
		go func(i int, probe HealthCheckFunc) {
			defer wg.Done()
			results[i] = c.runProbe(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	var failed []string
	for i, name := range names {
		status.Checks[name] = results[i]
		if !results[i].Healthy {
			status.Healthy = false
			status.Ready = false
			failed = append(failed, name)
		}
	}

	if len(failed) == 0 {
		status.Message = "All checks passed"
		return status
	}
	sort.Strings(failed)
	status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	return status
}

func (c *CompositeHealthChecker) runProbe(ctx context.Context, probe HealthCheckFunc) CheckResult {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := probe(probeCtx)

	result := CheckResult{
		Healthy:     err == nil,
		Message:     "OK",
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		LastChecked: time.Now().UTC(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// PROBE CONSTRUCTORS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is satisfied by the postgres connection and the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the database connection.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return func(ctx context.Context) error { return db.Ping(ctx) }
}

// NewCacheCheck probes the cache.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return func(ctx context.Context) error { return cache.Ping(ctx) }
}

// ══════════════════════════════════════════════════════════════════════════════
// NOOP CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// NoopHealthChecker always reports healthy. Used in tests and in
// deployments without probe wiring.
type NoopHealthChecker struct {
	startTime time.Time
}

// NewNoopHealthChecker creates the always-healthy checker.
func NewNoopHealthChecker() *NoopHealthChecker {
	return &NoopHealthChecker{startTime: time.Now()}
}

// Check reports healthy unconditionally.
func (n *NoopHealthChecker) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Healthy:   true,
		Ready:     true,
		Message:   "OK",
		Uptime:    time.Since(n.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// AddCheck is a no-op.
func (n *NoopHealthChecker) AddCheck(name string, check HealthCheckFunc) {}

// RemoveCheck is a no-op.
func (n *NoopHealthChecker) RemoveCheck(name string) {}
