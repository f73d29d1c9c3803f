// Package fanout はカタログエントリの購読管理と購読者へのメッセージ一斉配信を提供する。
//
// カタログ側からの「エントリが更新/削除された」というトリガーを受け、
// 購読者ごとのメッセージ設定に従ってタイムスタンプ計算済みのメッセージを生成する。
// 1人への配信失敗が他の購読者への配信を止めることはない（continue-on-error）。
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notifyman/internal/cache"
	"github.com/hitoshi/notifyman/internal/directory"
	"github.com/hitoshi/notifyman/internal/message"
	"github.com/hitoshi/notifyman/internal/model"
	"github.com/hitoshi/notifyman/internal/repository"
	"github.com/hitoshi/notifyman/internal/security"
)

// InvalidContactEntry は連絡先が無効になっているカタログエントリの通知対象。
type InvalidContactEntry struct {
	ColidPidURI  string // 対象エントリの識別子
	Label        string // 対象エントリの表示名
	ContactEmail string // 無効な連絡先として登録されているメールアドレス
}

// Service は購読管理とメッセージ一斉配信のサービス層。
type Service struct {
	subRepo   repository.SubscriptionRepository
	userRepo  repository.UserRepository
	cfgRepo   repository.MessageConfigRepository
	msgRepo   repository.MessageRepository
	resolver  directory.Resolver
	sanitizer security.ContentSanitizerService
	templates *templateStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	subRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	cfgRepo repository.MessageConfigRepository,
	msgRepo repository.MessageRepository,
	resolver directory.Resolver,
	sanitizer security.ContentSanitizerService,
	templateCache cache.Cache,
) *Service {
	return &Service{
		subRepo:   subRepo,
		userRepo:  userRepo,
		cfgRepo:   cfgRepo,
		msgRepo:   msgRepo,
		resolver:  resolver,
		sanitizer: sanitizer,
		templates: newTemplateStore(templateCache),
	}
}

// Subscribe はユーザーのカタログエントリ購読を作成する。
// 同一エントリを既に購読している場合はDUPLICATE_SUBSCRIPTIONを返す。
// メモはサニタイズしてから保存する。
func (s *Service) Subscribe(ctx context.Context, userID, colidPidURI, note string) (*model.ColidEntrySubscription, error) {
	if colidPidURI == "" {
		return nil, model.NewInvalidArgumentError("カタログエントリのURIは必須です")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	existing, err := s.subRepo.FindByUserAndEntry(ctx, userID, colidPidURI)
	if err != nil {
		return nil, fmt.Errorf("購読の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSubscriptionError(colidPidURI)
	}

	now := time.Now()
	sub := &model.ColidEntrySubscription{
		ID:          uuid.New().String(),
		UserID:      userID,
		ColidPidURI: colidPidURI,
		Note:        s.sanitizer.Sanitize(note),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	slog.Info("購読を作成しました",
		slog.String("user_id", userID),
		slog.String("colid_pid_uri", colidPidURI),
	)
	return sub, nil
}

// Unsubscribe はユーザーの購読を削除する。
// 存在しない場合、または他ユーザーの購読の場合はSUBSCRIPTION_NOT_FOUNDを返す。
func (s *Service) Unsubscribe(ctx context.Context, userID, subscriptionID string) error {
	sub, err := s.subRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	if sub == nil || sub.UserID != userID {
		return model.NewSubscriptionNotFoundError(subscriptionID)
	}

	if err := s.subRepo.Delete(ctx, subscriptionID); err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}

// ListSubscriptions はユーザーの購読一覧を返す。
func (s *Service) ListSubscriptions(ctx context.Context, userID string) ([]*model.ColidEntrySubscription, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	subs, err := s.subRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	return subs, nil
}

// CountSubscribers は要求されたエントリごとの購読者数を返す。
// 購読者のいないエントリも0件として結果に含まれる。
func (s *Service) CountSubscribers(ctx context.Context, colidPidURIs []string) (map[string]int, error) {
	counts, err := s.subRepo.CountByEntries(ctx, colidPidURIs)
	if err != nil {
		return nil, fmt.Errorf("購読者数の集計に失敗しました: %w", err)
	}
	return counts, nil
}

// NotifyUpdated はエントリの全購読者に更新通知メッセージを生成し、生成件数を返す。
// 購読者が0人の場合は何もせず0を返す。
func (s *Service) NotifyUpdated(ctx context.Context, colidPidURI, label string) (int, error) {
	tpl := s.templates.Get(ctx, templateEntryUpdated)
	subject, body := renderEntry(tpl, colidPidURI, label)
	return s.notifySubscribers(ctx, colidPidURI, subject, body)
}

// NotifyDeleted はエントリの全購読者に削除通知メッセージを生成し、
// その後エントリを指す全購読を削除する。生成件数を返す。
func (s *Service) NotifyDeleted(ctx context.Context, colidPidURI, label string) (int, error) {
	tpl := s.templates.Get(ctx, templateEntryDeleted)
	subject, body := renderEntry(tpl, colidPidURI, label)

	notified, err := s.notifySubscribers(ctx, colidPidURI, subject, body)
	if err != nil {
		return notified, err
	}

	removed, err := s.subRepo.DeleteByEntry(ctx, colidPidURI)
	if err != nil {
		return notified, fmt.Errorf("購読の一括削除に失敗しました: %w", err)
	}

	slog.Info("削除されたエントリの購読を解除しました",
		slog.String("colid_pid_uri", colidPidURI),
		slog.Int64("removed_subscriptions", removed),
	)
	return notified, nil
}

// NotifyInvalidContacts は無効な連絡先を持つエントリごとに、その連絡先の
// ユーザーへメッセージを生成する。ユーザーが未登録の場合はディレクトリサービスで
// 実体を解決し、デフォルト設定付きで作成してから通知する。
// 1件の失敗は残りの処理を止めない。生成件数を返す。
func (s *Service) NotifyInvalidContacts(ctx context.Context, entries []InvalidContactEntry) (int, error) {
	tpl := s.templates.Get(ctx, templateInvalidContact)

	notified := 0
	for _, entry := range entries {
		user, err := s.findOrCreateUserByEmail(ctx, entry.ContactEmail)
		if err != nil {
			slog.Error("連絡先ユーザーの解決に失敗しました",
				slog.String("email", entry.ContactEmail),
				slog.String("colid_pid_uri", entry.ColidPidURI),
				slog.String("error", err.Error()),
			)
			continue
		}
		if user == nil {
			// ディレクトリにも存在しない連絡先は通知のしようがない
			slog.Warn("ディレクトリに存在しない連絡先をスキップします",
				slog.String("email", entry.ContactEmail),
				slog.String("colid_pid_uri", entry.ColidPidURI),
			)
			continue
		}

		subject, body := renderEntry(tpl, entry.ColidPidURI, entry.Label)
		if err := s.composeForUser(ctx, user.ID, subject, body, entry.ColidPidURI); err != nil {
			slog.Error("無効連絡先通知の生成に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("colid_pid_uri", entry.ColidPidURI),
				slog.String("error", err.Error()),
			)
			continue
		}
		notified++
	}
	return notified, nil
}

// NotifySearchChanged は保存済み検索の結果変化を所有者に通知する。
// ChangeDetectorが差分ありと判定した場合にのみ呼ばれる。
func (s *Service) NotifySearchChanged(ctx context.Context, userID, searchName string, changedURIs []string) error {
	tpl := s.templates.Get(ctx, templateSearchChanged)
	subject, body := renderSearch(tpl, searchName, len(changedURIs))

	if err := s.composeForUser(ctx, userID, subject, body, ""); err != nil {
		return fmt.Errorf("検索変化通知の生成に失敗しました: %w", err)
	}
	return nil
}

// notifySubscribers はエントリの全購読者にメッセージを生成する。
// 1人への生成失敗はログに残して続行する。
func (s *Service) notifySubscribers(ctx context.Context, colidPidURI, subject, body string) (int, error) {
	subs, err := s.subRepo.ListByEntry(ctx, colidPidURI)
	if err != nil {
		return 0, fmt.Errorf("購読者一覧の取得に失敗しました: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	notified := 0
	for _, sub := range subs {
		if err := s.composeForUser(ctx, sub.UserID, subject, body, colidPidURI); err != nil {
			slog.Error("購読者へのメッセージ生成に失敗しました",
				slog.String("user_id", sub.UserID),
				slog.String("colid_pid_uri", colidPidURI),
				slog.String("error", err.Error()),
			)
			continue
		}
		notified++
	}

	slog.Info("購読者への一斉通知が完了しました",
		slog.String("colid_pid_uri", colidPidURI),
		slog.Int("subscribers", len(subs)),
		slog.Int("notified", notified),
	)
	return notified, nil
}

// composeForUser はユーザーのメッセージ設定に従ってメッセージを生成・保存する。
// 設定が存在しないユーザーにはデフォルト設定（送信=週次、削除=月次）を適用する。
func (s *Service) composeForUser(ctx context.Context, userID, subject, body, additionalInfo string) error {
	cfg, err := s.cfgRepo.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("メッセージ設定の取得に失敗しました: %w", err)
	}
	if cfg == nil {
		send, del := model.DefaultMessageConfig()
		cfg = &model.MessageConfig{
			UserID:         userID,
			SendInterval:   send,
			DeleteInterval: del,
		}
	}

	m := message.Compose(subject, s.sanitizer.Sanitize(body), additionalInfo, cfg, time.Now())
	if err := s.msgRepo.Create(ctx, m); err != nil {
		return fmt.Errorf("メッセージの保存に失敗しました: %w", err)
	}
	return nil
}

// findOrCreateUserByEmail はメールアドレスでユーザーを検索し、
// 未登録の場合はディレクトリサービスで実体を解決してデフォルト設定付きで作成する。
// ディレクトリにも存在しない場合はnilを返す。
func (s *Service) findOrCreateUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user != nil {
		return user, nil
	}

	identity, err := s.resolver.ResolveIdentity(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリサービスでの実体解決に失敗しました: %w", err)
	}
	if identity == nil {
		return nil, nil
	}

	now := time.Now()
	user = &model.User{
		ID:         uuid.New().String(),
		Email:      identity.Email,
		Name:       identity.Name,
		ExternalID: identity.ExternalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	send, del := model.DefaultMessageConfig()
	cfg := &model.MessageConfig{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		SendInterval:   send,
		DeleteInterval: del,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.CreateWithConfig(ctx, user, cfg); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ディレクトリサービスからユーザーを作成しました",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)
	return user, nil
}
