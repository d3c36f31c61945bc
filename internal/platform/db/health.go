package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Health reports pool liveness and basic utilization for the /health
// endpoint.
type Health struct {
	OK           bool          `json:"ok"`
	Latency      time.Duration `json:"latency_ns"`
	TotalConns   int32         `json:"total_conns"`
	IdleConns    int32         `json:"idle_conns"`
	AcquireCount int64         `json:"acquire_count"`
}

// Check pings the database with a short deadline and snapshots pool stats.
func Check(ctx context.Context, pool *pgxpool.Pool) Health {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := pool.Ping(ctx)
	stat := pool.Stat()

	return Health{
		OK:           err == nil,
		Latency:      time.Since(start),
		TotalConns:   stat.TotalConns(),
		IdleConns:    stat.IdleConns(),
		AcquireCount: stat.AcquireCount(),
	}
}
