package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/usermanager/internal/model"
)

// SQLiteUserRepo はSQLiteのTEXTカラムにJSONドキュメントを保存するユーザーリポジトリ。
// ローカル実行や単一ノード構成向けの組み込みバックエンド。
type SQLiteUserRepo struct {
	db *sqlx.DB
}

// NewSQLiteUserRepo はSQLiteUserRepoを生成する。
func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: sqlx.NewDb(db, "sqlite3")}
}

// sqliteUserRow はusersテーブルの1行を表す。
type sqliteUserRow struct {
	ID  string `db:"id"`
	Doc string `db:"doc"`
}

// List は全ユーザーを挿入順（seq昇順）で返す。
func (r *SQLiteUserRepo) List(ctx context.Context) ([]model.User, error) {
	query, args, err := sq.Select("id", "doc").From("users").OrderBy("seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	var rows []sqliteUserRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapStoreError("list users", err)
	}

	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		var doc document
		if err := json.Unmarshal([]byte(row.Doc), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode user document %s: %w", row.ID, err)
		}
		users = append(users, doc.toUser(row.ID))
	}

	return users, nil
}

// Create はUUIDを採番してドキュメントを挿入する。
func (r *SQLiteUserRepo) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	doc := newDocument(in)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user document: %w", err)
	}

	id := uuid.New().String()
	query, args, err := sq.Insert("users").
		Columns("id", "doc").
		Values(id, string(raw)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrapStoreError("insert user", err)
	}

	user := doc.toUser(id)
	return &user, nil
}

// Update はドキュメント全体を置き換える。存在確認は行わない。
func (r *SQLiteUserRepo) Update(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error) {
	raw, err := json.Marshal(newDocument(in))
	if err != nil {
		return nil, fmt.Errorf("failed to encode user document: %w", err)
	}

	query, args, err := sq.Update("users").
		Set("doc", string(raw)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
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
func (r *SQLiteUserRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	query, args, err := sq.Delete("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
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
func (r *SQLiteUserRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return wrapStoreError("ping sqlite", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*SQLiteUserRepo)(nil)
