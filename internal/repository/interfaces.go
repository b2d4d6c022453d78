// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/hitoshi/usermanager/internal/model"
)

// UserRepository はユーザードキュメントの永続化インターフェース。
// レコードストアに対する単一ドキュメント操作のみを提供し、複数ドキュメントの
// トランザクションは使用しない。
type UserRepository interface {
	// List は全ユーザーをストアの自然順（挿入順）で返す。
	List(ctx context.Context) ([]model.User, error)

	// Create はユーザーを作成し、採番されたIDを含むレコードを返す。
	Create(ctx context.Context, in model.UserInput) (*model.User, error)

	// Update は指定IDのレコードのname、email、ageを置き換える。
	// 該当IDが存在しない場合もエラーにはせず、MatchedCount=0の結果を返す。
	Update(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error)

	// Delete は指定IDのレコードを削除する。
	// 該当IDが存在しない場合もエラーにはせず、DeletedCount=0の結果を返す。
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)

	// Ping はストアへの到達性を確認する。
	Ping(ctx context.Context) error
}

// document はストアに保存するドキュメント本体。IDはドキュメント外で管理する。
type document struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Age   model.Age `json:"age"`
}

func newDocument(in model.UserInput) document {
	return document{Name: in.Name, Email: in.Email, Age: in.Age}
}

func (d document) toUser(id string) model.User {
	return model.User{ID: id, Name: d.Name, Email: d.Email, Age: d.Age}
}

// wrapStoreError は接続系のエラーをmodel.ErrStoreUnavailableでラップする。
// それ以外のエラーはメッセージを付与してそのまま返す。
func wrapStoreError(op string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, model.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
