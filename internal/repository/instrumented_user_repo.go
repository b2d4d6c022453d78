package repository

import (
	"context"
	"time"

	"github.com/hitoshi/usermanager/internal/model"
)

// OperationRecorder はストア操作の結果とレイテンシを記録するインターフェース。
// metrics.Collectorが実装する。
type OperationRecorder interface {
	RecordStoreOperation(operation string, err error, duration time.Duration)
}

// InstrumentedUserRepo はUserRepositoryをラップし、各操作をOperationRecorderに記録する。
type InstrumentedUserRepo struct {
	next     UserRepository
	recorder OperationRecorder
}

// NewInstrumentedUserRepo はInstrumentedUserRepoを生成する。
func NewInstrumentedUserRepo(next UserRepository, recorder OperationRecorder) *InstrumentedUserRepo {
	return &InstrumentedUserRepo{next: next, recorder: recorder}
}

func (r *InstrumentedUserRepo) observe(op string, start time.Time, err error) {
	r.recorder.RecordStoreOperation(op, err, time.Since(start))
}

// List は内側のリポジトリのListを呼び出して記録する。
func (r *InstrumentedUserRepo) List(ctx context.Context) (users []model.User, err error) {
	defer func(start time.Time) { r.observe("list", start, err) }(time.Now())
	return r.next.List(ctx)
}

// Create は内側のリポジトリのCreateを呼び出して記録する。
func (r *InstrumentedUserRepo) Create(ctx context.Context, in model.UserInput) (user *model.User, err error) {
	defer func(start time.Time) { r.observe("create", start, err) }(time.Now())
	return r.next.Create(ctx, in)
}

// Update は内側のリポジトリのUpdateを呼び出して記録する。
func (r *InstrumentedUserRepo) Update(ctx context.Context, id string, in model.UserInput) (result *model.UpdateResult, err error) {
	defer func(start time.Time) { r.observe("update", start, err) }(time.Now())
	return r.next.Update(ctx, id, in)
}

// Delete は内側のリポジトリのDeleteを呼び出して記録する。
func (r *InstrumentedUserRepo) Delete(ctx context.Context, id string) (result *model.DeleteResult, err error) {
	defer func(start time.Time) { r.observe("delete", start, err) }(time.Now())
	return r.next.Delete(ctx, id)
}

// Ping は計測せずに内側のリポジトリへ委譲する。
func (r *InstrumentedUserRepo) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// compile-time interface check
var _ UserRepository = (*InstrumentedUserRepo)(nil)
