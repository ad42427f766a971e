package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type purger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (p *purger) PurgeRead(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, before)
	return 3, p.err
}

func (p *purger) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestPurgeOnce_UsesRetentionCutoff(t *testing.T) {
	store := &purger{}
	r := NewRetention(store, 0, 0, zap.NewNop())
	now := time.Date(2025, 6, 30, 2, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	n, err := r.PurgeOnce(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, time.Date(2025, 5, 31, 2, 0, 0, 0, time.UTC), store.cutoffs[0])
}

func TestPurgeOnce_Error(t *testing.T) {
	r := NewRetention(&purger{err: errors.New("db down")}, time.Hour, time.Hour, zap.NewNop())

	n, err := r.PurgeOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &purger{}
	r := NewRetention(store, time.Hour, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return store.calls() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
