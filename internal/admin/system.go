// AngelaMos | 2026
// system.go

package admin

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

const probeTimeout = 2 * time.Second

// Probe is the outcome of one dependency ping. Latency is only set when the
// dependency answered.
type Probe struct {
	Healthy   bool    `json:"healthy"`
	LatencyMS float64 `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type DatabaseStatus struct {
	Probe
	Pool *DBPool `json:"pool,omitempty"`
}

type RedisStatus struct {
	Probe
	Pool *RedisPool `json:"pool,omitempty"`
}

type DBPool struct {
	MaxOpen        int    `json:"max_open"`
	Open           int    `json:"open"`
	InUse          int    `json:"in_use"`
	Idle           int    `json:"idle"`
	Waits          int64  `json:"waits"`
	WaitTime       string `json:"wait_time"`
	ClosedIdle     int64  `json:"closed_idle"`
	ClosedLifetime int64  `json:"closed_lifetime"`
}

type RedisPool struct {
	Total    uint32  `json:"total"`
	Idle     uint32  `json:"idle"`
	Stale    uint32  `json:"stale"`
	Timeouts uint32  `json:"timeouts"`
	HitRatio float64 `json:"hit_ratio"`
}

type ConsoleStatus struct {
	Mounted       bool       `json:"mounted"`
	Generation    uint64     `json:"generation"`
	LoadedAt      *time.Time `json:"loaded_at,omitempty"`
	StreamClients int        `json:"stream_clients"`
	SyncVersion   int64      `json:"sync_version"`
}

type RuntimeStats struct {
	GoVersion   string     `json:"go_version"`
	Goroutines  int        `json:"goroutines"`
	CPUs        int        `json:"cpus"`
	MaxProcs    int        `json:"gomaxprocs"`
	HeapBytes   uint64     `json:"heap_bytes"`
	HeapObjects uint64     `json:"heap_objects"`
	SysBytes    uint64     `json:"sys_bytes"`
	GCCycles    uint32     `json:"gc_cycles"`
	LastGC      *time.Time `json:"last_gc,omitempty"`
	Uptime      string     `json:"uptime"`
}

type SystemStatusResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Console  ConsoleStatus  `json:"console"`
	Runtime  RuntimeStats   `json:"runtime"`
}

// GetSystemStatus pings Postgres and Redis in parallel and reports them
// alongside the console loop and process state.
func (h *Handler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	var resp SystemStatusResponse
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		resp.Database = DatabaseStatus{Probe: probe(ctx, h.dbPing), Pool: h.dbPool()}
	}()
	go func() {
		defer wg.Done()
		resp.Redis = RedisStatus{Probe: probe(ctx, h.redisPing), Pool: h.redisPool()}
	}()
	wg.Wait()

	resp.Console = h.consoleStatus()
	resp.Runtime = h.runtimeStats()

	core.OK(w, resp)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.dbPool())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.redisPool())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.runtimeStats())
}

// probe treats a missing ping func as healthy; the dependency is not wired.
func probe(ctx context.Context, ping func(context.Context) error) Probe {
	if ping == nil {
		return Probe{Healthy: true}
	}

	start := time.Now()
	if err := ping(ctx); err != nil {
		return Probe{Error: err.Error()}
	}
	return Probe{
		Healthy:   true,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}
}

func (h *Handler) dbPool() *DBPool {
	if h.dbStats == nil {
		return nil
	}

	s := h.dbStats()
	return &DBPool{
		MaxOpen:        s.MaxOpenConnections,
		Open:           s.OpenConnections,
		InUse:          s.InUse,
		Idle:           s.Idle,
		Waits:          s.WaitCount,
		WaitTime:       s.WaitDuration.String(),
		ClosedIdle:     s.MaxIdleClosed + s.MaxIdleTimeClosed,
		ClosedLifetime: s.MaxLifetimeClosed,
	}
}

func (h *Handler) redisPool() *RedisPool {
	if h.redisStats == nil {
		return nil
	}

	s := h.redisStats()
	pool := &RedisPool{
		Total:    s.TotalConns,
		Idle:     s.IdleConns,
		Stale:    s.StaleConns,
		Timeouts: s.Timeouts,
	}
	if lookups := s.Hits + s.Misses; lookups > 0 {
		pool.HitRatio = float64(s.Hits) / float64(lookups)
	}
	return pool
}

func (h *Handler) consoleStatus() ConsoleStatus {
	var status ConsoleStatus

	if h.console != nil {
		snap := h.console.Snapshot()
		status.Mounted = h.console.Mounted()
		status.Generation = snap.Generation
		if !snap.LoadedAt.IsZero() {
			loadedAt := snap.LoadedAt.UTC()
			status.LoadedAt = &loadedAt
		}
	}
	if h.hub != nil {
		status.StreamClients = h.hub.TotalClients()
	}
	if h.syncVersion != nil {
		status.SyncVersion = h.syncVersion()
	}

	return status
}

func (h *Handler) runtimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		CPUs:        runtime.NumCPU(),
		MaxProcs:    runtime.GOMAXPROCS(0),
		HeapBytes:   mem.HeapAlloc,
		HeapObjects: mem.HeapObjects,
		SysBytes:    mem.Sys,
		GCCycles:    mem.NumGC,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}
	if mem.LastGC > 0 {
		last := time.Unix(0, int64(mem.LastGC)).UTC() //nolint:gosec // ns since epoch fits int64
		stats.LastGC = &last
	}
	return stats
}
