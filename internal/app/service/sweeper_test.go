package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockSweepTarget struct {
	mu      sync.Mutex
	pads    []string
	purgeFn func(ctx context.Context, padID string) (int, error)
	purged  []string
}

func (m *mockSweepTarget) PadsWithExpired(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pads, nil
}

func (m *mockSweepTarget) PurgeExpired(ctx context.Context, padID string) (int, error) {
	m.mu.Lock()
	m.purged = append(m.purged, padID)
	m.mu.Unlock()
	if m.purgeFn != nil {
		return m.purgeFn(ctx, padID)
	}
	return 1, nil
}

func (m *mockSweepTarget) purgedPads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.purged...)
}

func TestSweeper_SweepVisitsEveryPad(t *testing.T) {
	target := &mockSweepTarget{pads: []string{"a", "b", "c"}}
	sw := NewSweeper(nil, target, nil, time.Hour)

	sw.Sweep(context.Background())

	purged := target.purgedPads()
	if len(purged) != 3 {
		t.Fatalf("expected 3 pads purged, got %v", purged)
	}
}

func TestSweeper_PadErrorDoesNotAbortPass(t *testing.T) {
	target := &mockSweepTarget{
		pads: []string{"a", "b", "c"},
		purgeFn: func(ctx context.Context, padID string) (int, error) {
			if padID == "b" {
				return 0, errors.New("purge failed")
			}
			return 1, nil
		},
	}
	sw := NewSweeper(nil, target, nil, time.Hour)

	sw.Sweep(context.Background())

	purged := target.purgedPads()
	if len(purged) != 3 {
		t.Fatalf("a failing pad must not stop the pass, visited %v", purged)
	}
}

func TestSweeper_StartRunsImmediatePass(t *testing.T) {
	target := &mockSweepTarget{pads: []string{"a"}}
	sw := NewSweeper(nil, target, nil, time.Hour)

	sw.Start()
	defer sw.Stop()

	deadline := time.After(2 * time.Second)
	for len(target.purgedPads()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected an immediate sweep pass after Start")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
