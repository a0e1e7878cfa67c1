package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSettled(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("race did not settle")
		return nil
	}
}

func TestFirstToSettleTimeoutWins(t *testing.T) {
	clock := newManualClock()
	done := make(chan error, 2)
	fnCtx := make(chan context.Context, 1)

	firstToSettle(context.Background(), clock, time.Minute, func(ctx context.Context) error {
		fnCtx <- ctx
		<-ctx.Done()
		return ctx.Err()
	}, func(err error) { done <- err })

	ctx := <-fnCtx
	clock.Advance(time.Minute)

	err := waitSettled(t, done)
	assert.ErrorIs(t, err, ErrJoinTimeout)
	<-ctx.Done()
	assert.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestFirstToSettleResultWins(t *testing.T) {
	clock := newManualClock()
	done := make(chan error, 2)
	boom := errors.New("boom")

	firstToSettle(context.Background(), clock, time.Minute, func(context.Context) error {
		return boom
	}, func(err error) { done <- err })

	assert.ErrorIs(t, waitSettled(t, done), boom)
	require.Eventually(t, func() bool { return clock.Active() == 0 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestFirstToSettleCancel(t *testing.T) {
	clock := newManualClock()
	done := make(chan error, 2)
	started := make(chan struct{})

	cancel := firstToSettle(context.Background(), clock, time.Minute, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return errors.New("late")
	}, func(err error) { done <- err })

	<-started
	cancel()
	cancel()
	assert.ErrorIs(t, waitSettled(t, done), context.Canceled)
	assert.Zero(t, clock.Active())
}
