// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator はPostgreSQL用のmigrateインスタンスを生成する。
// databaseURLはPostgreSQLの接続URLを指定する。migrateは独自の接続を開く。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// NewSQLiteMigrator は既存のSQLite接続上で動くmigrateインスタンスを生成する。
// :memory: のDBは接続ごとに別物になるため、アプリと同じ*sql.DBを共有する。
// 返したmigrateをCloseするとdbも閉じられる点に注意。
func NewSQLiteMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations/sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(BackendSQLite), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// Migrate はバックエンドに応じてすべてのマイグレーションを適用する。
// PostgreSQLはdatabaseURLから独自接続を開き、SQLiteは渡されたdbを使用する。
// メモリバックエンドは何もしない。すでに最新の場合はエラーなしで返る。
func Migrate(backend Backend, databaseURL string, db *sql.DB) error {
	var (
		m   *migrate.Migrate
		err error
	)
	switch backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
		m, err = NewMigrator(databaseURL)
		if err != nil {
			return err
		}
		defer m.Close()
	case BackendSQLite:
		// Closeするとdbまで閉じられるため呼ばない
		m, err = NewSQLiteMigrator(db)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("backend %q has no migrations", backend)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RunMigrations は接続文字列で指定されたストアにすべてのマイグレーションを適用する。
// migrateサブコマンドから使用する。
func RunMigrations(databaseURL string) error {
	backend, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return err
	}

	switch backend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		db, err := Open(backend, dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		return Migrate(backend, databaseURL, db)
	default:
		return Migrate(backend, databaseURL, nil)
	}
}
