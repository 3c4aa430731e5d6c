package utils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

func RedisPinger(client redis.UniversalClient) Pinger {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

func MongoPinger(client *mongo.Client) Pinger {
	return func(ctx context.Context) error { return client.Ping(ctx, nil) }
}

// HealthStatus represents the current status of external services.
type HealthStatus struct {
	Checks    map[string]bool `json:"checks"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// Healthy reports whether every check passed. A status that was never
// checked is not healthy.
func (s HealthStatus) Healthy() bool {
	if s.CheckedAt.IsZero() {
		return false
	}
	for _, ok := range s.Checks {
		if !ok {
			return false
		}
	}
	return true
}

// HealthMonitor pings every dependency on an interval and keeps the last result.
type HealthMonitor struct {
	pingers  map[string]Pinger
	interval time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(pingers map[string]Pinger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HealthMonitor{pingers: pingers, interval: interval, timeout: 2 * time.Second}
}

// Check pings every dependency once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	names := make([]string, 0, len(m.pingers))
	for name := range m.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{Checks: make(map[string]bool, len(names))}
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		status.Checks[name] = m.pingers[name](pctx) == nil
		cancel()
	}
	status.CheckedAt = time.Now().UTC()

	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Run checks immediately and then on every tick until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Status returns the latest stored snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
