package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeChecker struct {
	name    string
	healthy atomic.Int32
}

func (f *fakeChecker) Name() string                               { return f.name }
func (f *fakeChecker) IsHealthy() bool                            { return f.healthy.Load() == 1 }
func (f *fakeChecker) Start(ctx context.Context, _ time.Duration) { /* no-op */ }

func TestServiceHealthChecker_Transitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := zerolog.Nop()

	store := &fakeChecker{name: "store"}
	classifier := &fakeChecker{name: "classifier"}
	store.healthy.Store(1)
	classifier.healthy.Store(1)

	svc := NewServiceHealthChecker(logger, store, classifier)
	go svc.Start(ctx, 10*time.Millisecond)

	// Initially healthy
	waitTrue(t, func() bool { return svc.IsHealthy() })

	// Flip one to unhealthy
	classifier.healthy.Store(0)
	waitTrue(t, func() bool { return !svc.IsHealthy() })

	// Recover
	classifier.healthy.Store(1)
	waitTrue(t, func() bool { return svc.IsHealthy() })
}

func TestServiceHealthChecker_NamesFailingDeps(t *testing.T) {
	logger := zerolog.Nop()

	up := &fakeChecker{name: "store"}
	down := &fakeChecker{name: "classifier"}
	up.healthy.Store(1)

	svc := NewServiceHealthChecker(logger, up, down)
	got := svc.Unhealthy()
	if len(got) != 1 || got[0] != "classifier" {
		t.Fatalf("Unhealthy() = %v, want [classifier]", got)
	}
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
