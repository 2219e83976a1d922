package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, uint64(DefaultMaxRetries), cfg.MaxRetries)
	require.Equal(t, InitialBackoffInterval, cfg.InitialInterval)
	require.Equal(t, MaxBackoffInterval, cfg.MaxInterval)
}

func TestNewBackOffPolicy(t *testing.T) {
	cfg := Config{
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}

	bo := newBackOffPolicy(context.Background(), cfg)
	require.NotNil(t, bo)
}

func TestDo(t *testing.T) {
	// テスト用の高速な設定
	testCfg := Config{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	errRetryable := errors.New("retryable error")
	errFatal := errors.New("permanent error")

	tests := []struct {
		name          string
		results       []error
		shouldRetry   ShouldRetryFunc
		wantCalls     int
		wantErr       error
		wantPermanent bool
	}{
		{
			name:        "成功",
			results:     []error{nil},
			shouldRetry: func(error) bool { return true },
			wantCalls:   1,
		},
		{
			name:        "リトライ後に成功",
			results:     []error{errRetryable, errRetryable, nil},
			shouldRetry: func(error) bool { return true },
			wantCalls:   3,
		},
		{
			name:        "最大リトライ回数に到達",
			results:     []error{errRetryable, errRetryable, errRetryable, errRetryable, errRetryable},
			shouldRetry: func(error) bool { return true },
			wantCalls:   4,
			wantErr:     errRetryable,
		},
		{
			name:          "致命的エラーで即時終了",
			results:       []error{errFatal, nil},
			shouldRetry:   func(err error) bool { return !errors.Is(err, errFatal) },
			wantCalls:     1,
			wantErr:       errFatal,
			wantPermanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			op := func() error {
				res := tt.results[calls]
				calls++
				return res
			}

			err := Do(context.Background(), testCfg, "test_operation", op, tt.shouldRetry)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "test_operationに失敗しました")
			assert.Equal(t, tt.wantPermanent, errors.Is(err, ErrPermanent))
		})
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{MaxRetries: 10, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	err := Do(ctx, cfg, "canceled_operation", func() error {
		return errors.New("should not matter")
	}, func(error) bool { return true })

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
