package supervisor

import (
	"context"
	"time"
)

// GarbageCollector reclaims space in the object store.
type GarbageCollector interface {
	RunGC()
}

// GCService runs value-log garbage collection on a fixed interval.
type GCService struct {
	store    GarbageCollector
	interval time.Duration
}

// NewGCService creates a GC service; interval defaults to 10 minutes.
func NewGCService(store GarbageCollector, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.store.RunGC()
		}
	}
}

// String implements fmt.Stringer.
func (g *GCService) String() string {
	return "storage-gc"
}
