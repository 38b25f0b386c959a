package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
)

// --- Fakes ---

type fakeRecords struct {
	mu      sync.Mutex
	cutoffs []time.Time
	purged  int64
	err     error
}

func (f *fakeRecords) PurgeDeleted(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return f.purged, f.err
}

func (f *fakeRecords) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func (f *fakeRecords) lastCutoff() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cutoffs[len(f.cutoffs)-1]
}

func (f *fakeRecords) Create(context.Context, *model.Record) (*model.Record, error) {
	panic("unused")
}
func (f *fakeRecords) Get(context.Context, string, string) (*model.Record, error) {
	panic("unused")
}
func (f *fakeRecords) List(context.Context, string, model.RecordFilter) ([]*model.Record, error) {
	panic("unused")
}
func (f *fakeRecords) Update(context.Context, string, string, model.RecordUpdate) (*model.Record, error) {
	panic("unused")
}

type fakeStore struct {
	records *fakeRecords
}

func (f *fakeStore) Records() store.Records         { return f.records }
func (f *fakeStore) Categories() store.Categories   { panic("unused") }
func (f *fakeStore) Connections() store.Connections { panic("unused") }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

// --- Tests ---

func TestSweeper_SweepsImmediatelyAndOnTicks(t *testing.T) {
	fr := &fakeRecords{purged: 3}
	s := NewSweeper(&fakeStore{records: fr}, Config{MaxAge: time.Hour, Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return fr.calls() >= 2 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	cutoff := fr.lastCutoff()
	want := time.Now().UTC().Add(-time.Hour)
	if d := want.Sub(cutoff); d < 0 || d > time.Minute {
		t.Fatalf("cutoff %v not near now-1h", cutoff)
	}
}

func TestSweeper_KeepsRunningAfterStoreError(t *testing.T) {
	fr := &fakeRecords{err: errors.New("connection refused")}
	s := NewSweeper(&fakeStore{records: fr}, Config{MaxAge: time.Hour, Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Multiple sweeps despite every one failing.
	waitFor(t, func() bool { return fr.calls() >= 3 })
	cancel()
	<-done
}

func TestNewSweeper_Defaults(t *testing.T) {
	s := NewSweeper(&fakeStore{}, Config{}, zerolog.Nop())
	if s.cfg.MaxAge != 24*time.Hour {
		t.Fatalf("default MaxAge = %v", s.cfg.MaxAge)
	}
	if s.cfg.Interval != time.Hour {
		t.Fatalf("default Interval = %v", s.cfg.Interval)
	}
}
