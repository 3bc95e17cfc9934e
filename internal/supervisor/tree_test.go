package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingGC struct{ runs atomic.Int32 }

func (c *countingGC) RunGC() { c.runs.Add(1) }

type flakyService struct {
	starts atomic.Int32
}

func (f *flakyService) Serve(ctx context.Context) error {
	if f.starts.Add(1) == 1 {
		panic("first run crashes")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestNewTreeDefaults(t *testing.T) {
	tree := NewTree(TreeConfig{})
	if tree.config.FailureThreshold != 5.0 || tree.config.FailureDecay != 30.0 {
		t.Errorf("unexpected failure defaults: %+v", tree.config)
	}
	if tree.config.FailureBackoff != 15*time.Second || tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected duration defaults: %+v", tree.config)
	}
}

func TestTreeRunsAndStopsServices(t *testing.T) {
	tree := NewTree(TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	gc := &countingGC{}
	tree.AddWorker(NewGCService(gc, 5*time.Millisecond))
	flaky := &flakyService{}
	tree.AddWorker(flaky)

	server := newMockHTTPServer()
	tree.AddAPIService(NewHTTPServerService(server, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for (gc.runs.Load() < 2 || flaky.starts.Load() < 2) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if gc.runs.Load() < 2 {
		t.Errorf("gc ran %d times, want at least 2", gc.runs.Load())
	}
	if flaky.starts.Load() < 2 {
		t.Errorf("crashed worker was not restarted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	if server.listenAndServeCount.Load() != 1 {
		t.Errorf("HTTP server started %d times, want 1", server.listenAndServeCount.Load())
	}
	if server.shutdownCount.Load() != 1 {
		t.Errorf("HTTP server shut down %d times, want 1", server.shutdownCount.Load())
	}
}

func TestGCServiceStopsOnCancel(t *testing.T) {
	svc := NewGCService(&countingGC{}, 0)
	if svc.interval != 10*time.Minute {
		t.Errorf("interval = %v, want default 10m", svc.interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); err != context.Canceled {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}
