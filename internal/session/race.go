package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// firstToSettle races fn against a timeout timer. done is called exactly once
// with whichever settles first; the loser is cancelled. The timer is armed
// before firstToSettle returns. The returned cancel settles the race with
// context.Canceled if it is still open.
func firstToSettle(ctx context.Context, clock Clock, timeout time.Duration,
	fn func(context.Context) error, done func(error)) (cancel func()) {

	ctx, cancelCtx := context.WithCancel(ctx)

	var (
		once  sync.Once
		mu    sync.Mutex
		timer Timer
	)
	settle := func(err error) {
		once.Do(func() {
			cancelCtx()
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			done(err)
		})
	}

	mu.Lock()
	timer = clock.AfterFunc(timeout, func() {
		settle(fmt.Errorf("%w (%s)", ErrJoinTimeout, timeout))
	})
	mu.Unlock()

	go func() {
		settle(fn(ctx))
	}()

	return func() { settle(context.Canceled) }
}
