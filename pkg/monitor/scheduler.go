package monitor

import (
	"context"
	"time"
)

// Scheduler はサイクル間の待機を抽象化します。テストでは実時間を使わずに差し替えます。
type Scheduler interface {
	// Wait は d だけ待機します。ctx が終了した場合はその理由を返します。
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler は time.Timer で待機する Scheduler です。
type TimerScheduler struct{}

func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
