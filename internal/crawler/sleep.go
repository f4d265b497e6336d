package crawler

import (
	"context"
	"math/rand"
	"time"
)

func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	if ctx == nil {
		time.Sleep(d)
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RandomDelay blocks for a uniformly random duration within [min, max].
// This is the per-task politeness control between page fetches; it stays
// a range, not a fixed sleep.
func RandomDelay(ctx context.Context, min, max time.Duration) bool {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)+1))
	}
	return Sleep(ctx, d)
}
