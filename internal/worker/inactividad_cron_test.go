package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeReaper struct {
	calls int32
	err   error
}

func (r *fakeReaper) ProcesarInactivos(context.Context) (int, error) {
	atomic.AddInt32(&r.calls, 1)
	return 1, r.err
}

func TestInactividadCron_TicksUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	reaper := &fakeReaper{err: errors.New("redis caído")}
	ctx, cancel := context.WithCancel(context.Background())

	done := StartInactividadCron(ctx, reaper, 5*time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&reaper.calls) >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cron did not stop")
	}
	n := atomic.LoadInt32(&reaper.calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, atomic.LoadInt32(&reaper.calls))
}
