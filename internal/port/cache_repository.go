package port

import (
	"context"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops a key so the guarded work can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetStats returns the cached schedule stats, nil on a miss, and the
	// current stats generation
	GetStats(ctx context.Context) (*domain.ScheduleStats, int64, error)

	// SetStats stores stats computed at generation gen. It is a no-op when
	// the stats were invalidated after gen was read
	SetStats(ctx context.Context, gen int64, stats domain.ScheduleStats) error

	// InvalidateStats drops the cached stats and bumps the generation
	InvalidateStats(ctx context.Context) error
}
