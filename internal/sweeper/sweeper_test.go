package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom-backend/config"
)

// mockAbandoner is a mock implementation of the Abandoner interface.
type mockAbandoner struct {
	mu     sync.Mutex
	calls  int
	graces []time.Duration
	result int
	err    error
}

func (m *mockAbandoner) AbandonStale(ctx context.Context, grace time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.graces = append(m.graces, grace)
	return m.result, m.err
}

func (m *mockAbandoner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRunOnce(t *testing.T) {
	m := &mockAbandoner{result: 3}
	s := NewService(config.SweeperConfig{Enabled: true, Schedule: "@every 1h", GraceMinutes: 15}, m)

	assert.Equal(t, 3, s.RunOnce(context.Background()))
	require.Len(t, m.graces, 1)
	assert.Equal(t, 15*time.Minute, m.graces[0])

	// errors are logged, the count still comes back
	m.err = errors.New("db down")
	m.result = 1
	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestRun_SweepsOnStartAndStops(t *testing.T) {
	m := &mockAbandoner{}
	s := NewService(config.SweeperConfig{Enabled: true, Schedule: "@every 1h", GraceMinutes: 30}, m)

	var housekeeping atomic.Int32
	require.NoError(t, s.Every("@every 1s", "counter", func() { housekeeping.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return m.Calls() == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return housekeeping.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRun_Disabled(t *testing.T) {
	m := &mockAbandoner{}
	s := NewService(config.SweeperConfig{Enabled: false, Schedule: "@every 1h"}, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Zero(t, m.Calls())
}

func TestRun_InvalidSchedule(t *testing.T) {
	s := NewService(config.SweeperConfig{Enabled: true, Schedule: "not a schedule"}, &mockAbandoner{})
	assert.Error(t, s.Run(context.Background()))
}
