package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthPingTimeout はヘルスチェック時のストア疎通確認のタイムアウト。
const healthPingTimeout = 2 * time.Second

// StorePinger はヘルスチェックで使うストア疎通確認のインターフェース。
type StorePinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// NewHealthHandler はプロセスの生存とストアの到達性を返すハンドラーを生成する。
// ストアに到達できなくてもプロセス自体は応答しているため200を返す。
// GET /health
func NewHealthHandler(pinger StorePinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := "up"
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				slog.Warn("health check: record store unreachable", slog.String("error", err.Error()))
				store = "down"
			}
		}

		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: store})
	}
}
