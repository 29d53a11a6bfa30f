package monitor

import (
	"context"
	"time"
)

// Sleeper pausa por d ou até o contexto ser cancelado
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep é o Sleeper real, baseado em timer
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
