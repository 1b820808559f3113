// Package health exposes liveness information for long indexing runs.
// Probes for the run's dependencies (output directory, report database)
// are registered on a Checker, which serves an aggregate JSON report on
// the metrics listener.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"
)

// Probe checks one dependency, returning nil when it is usable.
type Probe func(ctx context.Context) error

// ComponentStatus is the outcome of a single probe.
type ComponentStatus struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// Report aggregates all probe outcomes. OK is false if any probe failed.
type Report struct {
	OK         bool                       `json:"ok"`
	Components map[string]ComponentStatus `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker runs registered probes concurrently and reports the worst
// outcome.
type Checker struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

func NewChecker() *Checker {
	return &Checker{probes: make(map[string]Probe)}
}

// Register adds a named probe. Later registrations replace earlier ones
// with the same name.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Run executes all probes concurrently and aggregates their outcomes.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	report := Report{
		OK:         true,
		Components: make(map[string]ComponentStatus, len(probes)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, probe := range probes {
		wg.Add(1)
		go func(n string, p Probe) {
			defer wg.Done()
			start := time.Now()
			err := p(ctx)
			status := ComponentStatus{
				OK:      err == nil,
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				status.Error = err.Error()
			}
			mu.Lock()
			report.Components[n] = status
			if err != nil {
				report.OK = false
			}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()
	return report
}

// Handler serves the aggregate report, with status 503 when any probe
// fails.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)

		w.Header().Set("Content-Type", "application/json")
		if report.OK {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}

// DirProbe checks that path exists and is a directory.
func DirProbe(path string) Probe {
	return func(_ context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return &os.PathError{Op: "probe", Path: path, Err: os.ErrInvalid}
		}
		return nil
	}
}
