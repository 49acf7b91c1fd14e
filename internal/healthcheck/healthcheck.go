package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const pingTimeout = 5 * time.Second

// Probe is a named dependency check.
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

type State struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// Monitor records the outcome of every probe it runs.
type Monitor struct {
	mutex  sync.RWMutex
	states map[string]State
}

func NewMonitor() *Monitor {
	return &Monitor{states: make(map[string]State)}
}

// Run pings probe immediately and then every interval until ctx is done.
// State changes are logged.
func (m *Monitor) Run(ctx context.Context, probe Probe, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx, probe, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped", slog.String("dependency", probe.Name))
			return

		case <-ticker.C:
			m.check(ctx, probe, logger)
		}
	}
}

func (m *Monitor) check(ctx context.Context, probe Probe, logger *slog.Logger) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := probe.Ping(pingCtx)
	if ctx.Err() != nil {
		return
	}

	state := State{Healthy: err == nil, CheckedAt: time.Now()}
	if err != nil {
		state.Error = err.Error()
	}

	if changed := m.set(probe.Name, state); !changed {
		return
	}

	if state.Healthy {
		logger.Info("Dependency is up", slog.String("dependency", probe.Name))
	} else {
		logger.Warn("Dependency is down",
			slog.String("dependency", probe.Name),
			slog.String("err", state.Error))
	}
}

func (m *Monitor) set(name string, state State) (changed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	prev, seen := m.states[name]
	m.states[name] = state
	return !seen || prev.Healthy != state.Healthy
}

// Status returns a copy of the latest state per dependency.
func (m *Monitor) Status() map[string]State {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make(map[string]State, len(m.states))
	for name, state := range m.states {
		out[name] = state
	}
	return out
}

// Healthy reports whether every checked dependency passed its last ping.
func (m *Monitor) Healthy() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, state := range m.states {
		if !state.Healthy {
			return false
		}
	}
	return true
}
