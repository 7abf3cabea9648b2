package analyzer

import (
	"context"
	"time"
)

// Clock abstracts timing so tests can run the retry loop without real
// delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until the context is cancelled, in which
	// case it returns the context's error.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
