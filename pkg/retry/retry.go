package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// リトライ関連の定数
	DefaultMaxRetries = 3 // 最大リトライ回数

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// ErrPermanent は、リトライを中止した致命的なエラーをラップする際の目印です。
var ErrPermanent = errors.New("リトライ対象外のエラー")

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// newBackOffPolicy は Config とコンテキストから backoff.BackOff を組み立てます。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	// 経過時間による打ち切りは行わず、回数とコンテキストだけで制御する
	b.MaxElapsedTime = 0

	bo := backoff.WithMaxRetries(b, cfg.MaxRetries)
	return backoff.WithContext(bo, ctx)
}

// Do は指数バックオフとカスタムエラー判定を使用して操作をリトライします。
// 返されるエラーは常に最後の操作エラーを %w でラップしているため、
// 呼び出し元は errors.As で元のエラー型を取り出せます。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	var lastErr error
	attempts := 0

	retryableOp := func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if shouldRetryFn != nil && shouldRetryFn(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(retryableOp, newBackOffPolicy(ctx, cfg))
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr == nil {
			return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, ctxErr)
		}
		return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w: %w", operationName, ctxErr, lastErr)
	}

	if lastErr == nil {
		return fmt.Errorf("%sに失敗しました: %w", operationName, err)
	}

	if shouldRetryFn == nil || !shouldRetryFn(lastErr) {
		return fmt.Errorf("%sに失敗しました: %w: %w", operationName, ErrPermanent, lastErr)
	}

	return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。試行回数 %d。最終エラー: %w", operationName, cfg.MaxRetries, attempts, lastErr)
}
