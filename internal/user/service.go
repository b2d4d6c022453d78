// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/usermanager/internal/model"
	"github.com/hitoshi/usermanager/internal/repository"
)

// Service はユーザー管理のサービス層。
// 入力値の検証は行わず、受け取ったフィールドをそのままストアへ渡す。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// List は全ユーザーをストアの自然順で返す。0件の場合も空スライスを返す。
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Create はユーザーを作成し、IDが採番されたレコードを返す。
func (s *Service) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	created, err := s.userRepo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", created.ID),
	)

	return created, nil
}

// Update は指定IDのユーザーのname、email、ageを置き換える。
// 存在しないIDでもエラーにはならず、MatchedCount=0の結果を返す。
func (s *Service) Update(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error) {
	result, err := s.userRepo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	if result.MatchedCount == 0 {
		slog.Debug("更新対象のユーザーが存在しません",
			slog.String("user_id", id),
		)
	} else {
		slog.Info("ユーザーを更新しました",
			slog.String("user_id", id),
		)
	}

	return result, nil
}

// Delete は指定IDのユーザーを削除する。存在しない場合も成功として扱う。
func (s *Service) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	result, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザーを削除しました",
		slog.String("user_id", id),
		slog.Int64("deleted_count", result.DeletedCount),
	)

	return result, nil
}

// Ping はレコードストアへの到達性を確認する。
func (s *Service) Ping(ctx context.Context) error {
	return s.userRepo.Ping(ctx)
}
