package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/usermanager/internal/model"
)

// PostgresUserRepo はPostgreSQLのJSONBカラムをドキュメントストアとして使用するユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// List は全ユーザーを挿入順（seq昇順）で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, doc FROM users ORDER BY seq`,
	)
	if err != nil {
		return nil, wrapStoreError("list users", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode user document %s: %w", id, err)
		}
		users = append(users, doc.toUser(id))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("iterate users", err)
	}

	return users, nil
}

// Create はUUIDを採番してドキュメントを挿入する。
func (r *PostgresUserRepo) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	doc := newDocument(in)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user document: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, doc, created_at, updated_at)
		 VALUES ($1, $2::jsonb, now(), now())`,
		id, string(raw),
	)
	if err != nil {
		return nil, wrapStoreError("insert user", err)
	}

	user := doc.toUser(id)
	return &user, nil
}

// Update はドキュメント全体を置き換える。存在確認は行わない。
func (r *PostgresUserRepo) Update(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error) {
	raw, err := json.Marshal(newDocument(in))
	if err != nil {
		return nil, fmt.Errorf("failed to encode user document: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET doc = $2::jsonb, updated_at = now() WHERE id = $1`,
		id, string(raw),
	)
	if err != nil {
		return nil, wrapStoreError("update user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return &model.UpdateResult{Acknowledged: true, MatchedCount: n, ModifiedCount: n}, nil
}

// Delete は指定IDのドキュメントを削除する。存在しない場合もエラーにしない。
func (r *PostgresUserRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, wrapStoreError("delete user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return &model.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

// Ping はデータベースへの到達性を確認する。
func (r *PostgresUserRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return wrapStoreError("ping postgres", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
