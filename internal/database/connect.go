package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenk/backoff"
)

// Pinger はストアへの到達性確認インターフェース。repository.UserRepositoryが満たす。
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingWithBackoff はストアに到達できるまで指数バックオフでPingを繰り返す。
// maxElapsedを超えるか、ctxがキャンセルされた時点で最後のエラーを返す。
// maxElapsedが0以下の場合は1回だけ試行する。
func PingWithBackoff(ctx context.Context, p Pinger, maxElapsed time.Duration) error {
	if maxElapsed <= 0 {
		return p.Ping(ctx)
	}

	bo := newBackOff()
	bo.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(func() error { return p.Ping(ctx) }, backoff.WithContext(bo, ctx), notifyRetry)
}

// RetryUntilReady はopが成功するかctxがキャンセルされるまで、指数バックオフで繰り返す。
// 起動時に到達できなかったストアの復帰待ちに使う。
func RetryUntilReady(ctx context.Context, op func() error) error {
	bo := newBackOff()
	bo.MaxElapsedTime = 0

	return backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notifyRetry)
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	return bo
}

func notifyRetry(err error, next time.Duration) {
	slog.Warn("record store not reachable, retrying",
		slog.String("error", err.Error()),
		slog.Duration("retry_in", next),
	)
}
