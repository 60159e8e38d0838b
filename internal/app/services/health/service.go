package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Snapshot is the payload served on the health endpoint.
type Snapshot struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Database      string  `json:"database"`
	MemoryUsedPct float64 `json:"memory_used_pct"`
	CPUUsedPct    float64 `json:"cpu_used_pct"`
	Time          string  `json:"time"`
}

// Service reports process health and host resource usage.
type Service struct {
	started time.Time
	db      Pinger
}

// New builds a health service. db may be nil when running on the in-memory
// store; the snapshot then reports the database as "none".
func New(db Pinger) *Service {
	return &Service{started: time.Now(), db: db}
}

// Check gathers a point-in-time snapshot. Resource probe failures are not
// fatal; the corresponding fields are left at zero.
func (s *Service) Check(ctx context.Context) Snapshot {
	snap := Snapshot{
		Status:        "ok",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Database:      "none",
		Time:          time.Now().UTC().Format(time.RFC3339),
	}

	if s.db != nil {
		snap.Database = "ok"
		if err := s.db.PingContext(ctx); err != nil {
			snap.Database = "unreachable"
			snap.Status = "degraded"
		}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryUsedPct = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUUsedPct = pct[0]
	}

	return snap
}
