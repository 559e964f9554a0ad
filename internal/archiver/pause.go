package archiver

import (
	"context"
	"fmt"
	"time"
)

// TimerPauser sleeps for the full delay unless the context ends first.
type TimerPauser struct{}

// Pause blocks for delay.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("courtesy delay: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
