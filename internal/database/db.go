package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Backend はレコードストアの実装種別を表す。
type Backend string

const (
	// BackendPostgres はPostgreSQLのJSONBカラムをドキュメントストアとして使う。
	BackendPostgres Backend = "postgres"
	// BackendSQLite は組み込みSQLiteにJSONテキストを保存する。
	BackendSQLite Backend = "sqlite3"
	// BackendMemory はプロセス内メモリに保持する（永続化なし）。
	BackendMemory Backend = "memory"
)

// ParseURL は接続文字列のスキームからバックエンドを判定し、ドライバに渡すDSNを返す。
//
//	postgres://... / postgresql://...  → BackendPostgres（URLをそのまま使用）
//	sqlite://<path>                    → BackendSQLite（<path>部分をDSNとする）
//	memory://                          → BackendMemory
func ParseURL(databaseURL string) (Backend, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return BackendPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite database path is empty: %q", databaseURL)
		}
		return BackendSQLite, dsn, nil
	case strings.HasPrefix(databaseURL, "memory://"):
		return BackendMemory, "", nil
	default:
		return "", "", fmt.Errorf("unsupported database URL scheme: %q", databaseURL)
	}
}

// Open はSQLバックエンドのデータベース接続を開く。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
// SQLiteは単一ライターのため接続数を1に制限する（:memory:のDBを接続間で共有する目的もある）。
func Open(backend Backend, dsn string) (*sql.DB, error) {
	switch backend {
	case BackendPostgres, BackendSQLite:
	default:
		return nil, fmt.Errorf("backend %q has no SQL connection", backend)
	}

	db, err := sql.Open(string(backend), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if backend == BackendSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
