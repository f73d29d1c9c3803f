package message

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/repository"
)

// Service はメッセージとメッセージ設定のサービス層。
// メッセージ一覧取得、既読/配信済み遷移、設定の検証付き更新と
// タイムスタンプ一括再計算のビジネスロジックを提供する。
type Service struct {
	msgRepo  repository.MessageRepository
	cfgRepo  repository.MessageConfigRepository
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	msgRepo repository.MessageRepository,
	cfgRepo repository.MessageConfigRepository,
	userRepo repository.UserRepository,
) *Service {
	return &Service{
		msgRepo:  msgRepo,
		cfgRepo:  cfgRepo,
		userRepo: userRepo,
	}
}

// ValidateConfig は送信間隔と削除間隔の組み合わせを検証する。
// ordinal(送信) >= ordinal(削除) の場合はINVALID_CONFIGURATIONを返す。
func ValidateConfig(send interval.SendInterval, del interval.DeleteInterval) error {
	if !send.IsValid() {
		return model.NewInvalidArgumentError(fmt.Sprintf("不明な送信間隔です: %s", send))
	}
	if !del.IsValid() {
		return model.NewInvalidArgumentError(fmt.Sprintf("不明な削除間隔です: %s", del))
	}
	if send.Ordinal() >= del.Ordinal() {
		return model.NewInvalidConfigurationError(string(send), string(del))
	}
	return nil
}

// ListMessages はユーザーの全メッセージを返す。
func (s *Service) ListMessages(ctx context.Context, userID string) ([]*model.Message, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	messages, err := s.msgRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	return messages, nil
}

// MarkMessageRead は指定メッセージを既読にして返す。
// 既読済みの場合は変更せずそのまま返す（冪等）。
func (s *Service) MarkMessageRead(ctx context.Context, userID, messageID string) (*model.Message, error) {
	m, err := s.findOwned(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	if MarkRead(m, time.Now()) {
		if err := s.msgRepo.Update(ctx, m); err != nil {
			return nil, fmt.Errorf("メッセージの更新に失敗しました: %w", err)
		}
	}
	return m, nil
}

// MarkMessageSent は指定メッセージを配信済みにして返す。
// 送信対象でない（send_on未設定の）メッセージは変更しない。
func (s *Service) MarkMessageSent(ctx context.Context, userID, messageID string) (*model.Message, error) {
	m, err := s.findOwned(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	if MarkSent(m, time.Now()) {
		if err := s.msgRepo.Update(ctx, m); err != nil {
			return nil, fmt.Errorf("メッセージの更新に失敗しました: %w", err)
		}
	}
	return m, nil
}

// MarkMessagesRead はユーザーの複数メッセージを一括で既読にし、既読化した件数を返す。
// ユーザーのメッセージに解決できないIDはエラーとせず黙ってスキップする
// （クライアントのat-least-onceリトライを許容するため）。
func (s *Service) MarkMessagesRead(ctx context.Context, userID string, messageIDs []string) (int, error) {
	messages, err := s.msgRepo.ListByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}

	byID := make(map[string]*model.Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}

	now := time.Now()
	marked := 0
	for _, id := range messageIDs {
		m, ok := byID[id]
		if !ok {
			continue
		}
		if MarkRead(m, now) {
			if err := s.msgRepo.Update(ctx, m); err != nil {
				return marked, fmt.Errorf("メッセージの更新に失敗しました: %w", err)
			}
			marked++
		}
	}

	return marked, nil
}

// GetConfig はユーザーのメッセージ設定を返す。
func (s *Service) GetConfig(ctx context.Context, userID string) (*model.MessageConfig, error) {
	cfg, err := s.cfgRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ設定の取得に失敗しました: %w", err)
	}
	if cfg == nil {
		return nil, model.NewConfigNotFoundError(userID)
	}
	return cfg, nil
}

// UpdateConfig はユーザーのメッセージ設定を検証付きで更新する。
// 変更点が無い場合はNOT_MODIFIEDを返す（no-op更新はエラー扱い）。
// 更新時はユーザーの全メッセージのタイムスタンプを一括再計算し、
// 設定とメッセージを単一トランザクションで書き込む。部分適用は発生しない。
func (s *Service) UpdateConfig(ctx context.Context, userID string, send interval.SendInterval, del interval.DeleteInterval) (*model.MessageConfig, error) {
	if err := ValidateConfig(send, del); err != nil {
		return nil, err
	}

	cfg, err := s.cfgRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ設定の取得に失敗しました: %w", err)
	}
	if cfg == nil {
		return nil, model.NewConfigNotFoundError(userID)
	}

	if cfg.SendInterval == send && cfg.DeleteInterval == del {
		return nil, model.NewNotModifiedError()
	}

	messages, err := s.msgRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}

	now := time.Now()
	cfg.SendInterval = send
	cfg.DeleteInterval = del
	cfg.UpdatedAt = now

	for _, m := range messages {
		Recompute(m, cfg, now)
	}

	if err := s.cfgRepo.UpdateWithMessages(ctx, cfg, messages); err != nil {
		return nil, fmt.Errorf("メッセージ設定の更新に失敗しました: %w", err)
	}

	slog.Info("メッセージ設定を更新しました",
		slog.String("user_id", userID),
		slog.String("send_interval", string(send)),
		slog.String("delete_interval", string(del)),
		slog.Int("recomputed_messages", len(messages)),
	)

	return cfg, nil
}

// findOwned は指定ユーザーが所有するメッセージを取得する。
// 存在しない場合、または他ユーザーのメッセージの場合はMESSAGE_NOT_FOUNDを返す。
func (s *Service) findOwned(ctx context.Context, userID, messageID string) (*model.Message, error) {
	m, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	if m == nil || m.UserID != userID {
		return nil, model.NewMessageNotFoundError(messageID)
	}
	return m, nil
}
