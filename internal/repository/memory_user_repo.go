package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hitoshi/usermanager/internal/model"
)

// MemoryUserRepo はプロセス内メモリにユーザーを保持するリポジトリ。
// テストや使い捨てのローカル実行で使用する。再起動でデータは失われる。
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users []model.User
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make([]model.User, 0, 16)}
}

// List は全ユーザーのコピーを挿入順で返す。
func (r *MemoryUserRepo) List(ctx context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

// Create はUUIDを採番してユーザーを末尾に追加する。
func (r *MemoryUserRepo) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	user := newDocument(in).toUser(uuid.New().String())

	r.mu.Lock()
	r.users = append(r.users, user)
	r.mu.Unlock()

	return &user, nil
}

// Update は該当IDのレコードの3フィールドを置き換える。
func (r *MemoryUserRepo) Update(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i] = newDocument(in).toUser(id)
			return &model.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return &model.UpdateResult{Acknowledged: true}, nil
}

// Delete は該当IDのレコードを削除する。
func (r *MemoryUserRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return &model.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
		}
	}
	return &model.DeleteResult{Acknowledged: true}, nil
}

// Ping は常に成功する。
func (r *MemoryUserRepo) Ping(ctx context.Context) error {
	return nil
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
