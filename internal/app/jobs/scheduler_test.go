package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRouter struct {
	calls []time.Time
	err   error
}

func (f *fakeRouter) RouteTimedOutCalls(now time.Time) (int, error) {
	f.calls = append(f.calls, now)
	return len(f.calls), f.err
}

func TestAddDoorbellScanRejectsBadSpec(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	err := s.AddDoorbellScan("not a spec", &fakeRouter{})
	assert.Error(t, err)
}

func TestScanDoorbellsUsesClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(zap.NewNop())
	s.now = func() time.Time { return fixed }

	router := &fakeRouter{}
	require.NoError(t, s.AddDoorbellScan("@every 10s", router))

	s.scanDoorbells(router)
	require.Len(t, router.calls, 1)
	assert.Equal(t, fixed, router.calls[0])

	router.err = errors.New("db down")
	s.scanDoorbells(router)
	assert.Len(t, router.calls, 2)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.AddDoorbellScan("@every 1h", &fakeRouter{}))
	s.Start()
	s.Stop()
}
