// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notifyman/internal/directory"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/repository"
)

// Service はユーザー管理のサービス層。
// ユーザーの作成・取得・削除のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	resolver directory.Resolver
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, resolver directory.Resolver) *Service {
	return &Service{
		userRepo: userRepo,
		resolver: resolver,
	}
}

// Create はユーザーをデフォルトのメッセージ設定付きで作成する。
// 名前が未指定の場合はディレクトリサービスで実体を解決して補完する。
// 同一メールアドレスのユーザーが既に存在する場合はDUPLICATE_USERを返す。
func (s *Service) Create(ctx context.Context, email, name string) (*model.User, error) {
	if email == "" {
		return nil, model.NewInvalidArgumentError("メールアドレスは必須です")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserError(email)
	}

	externalID := ""
	if name == "" && s.resolver != nil {
		identity, err := s.resolver.ResolveIdentity(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("ディレクトリサービスでの実体解決に失敗しました: %w", err)
		}
		if identity == nil {
			return nil, model.NewUserNotFoundError(email)
		}
		name = identity.Name
		externalID = identity.ExternalID
	}

	now := time.Now()
	u := &model.User{
		ID:         uuid.New().String(),
		Email:      email,
		Name:       name,
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	send, del := model.DefaultMessageConfig()
	cfg := &model.MessageConfig{
		ID:             uuid.New().String(),
		UserID:         u.ID,
		SendInterval:   send,
		DeleteInterval: del,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.CreateWithConfig(ctx, u, cfg); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", u.ID),
		slog.String("email", email),
	)
	return u, nil
}

// Get は指定IDのユーザーを返す。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return u, nil
}

// Delete はユーザーを削除する。
// メッセージ設定・メッセージ・購読・保存済み検索はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID string) error {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError(userID)
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザーを削除しました",
		slog.String("user_id", userID),
	)
	return nil
}
