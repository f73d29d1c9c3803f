package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// PostgresMessageConfigRepo はPostgreSQLを使用したメッセージ設定リポジトリ。
type PostgresMessageConfigRepo struct {
	db *sql.DB
}

// NewPostgresMessageConfigRepo はPostgresMessageConfigRepoを生成する。
func NewPostgresMessageConfigRepo(db *sql.DB) *PostgresMessageConfigRepo {
	return &PostgresMessageConfigRepo{db: db}
}

// FindByUserID は指定ユーザーのメッセージ設定を取得する。見つからない場合はnilを返す。
func (r *PostgresMessageConfigRepo) FindByUserID(ctx context.Context, userID string) (*model.MessageConfig, error) {
	cfg := &model.MessageConfig{}
	var send, del string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, send_interval, delete_interval, created_at, updated_at
		 FROM message_configs WHERE user_id = $1`,
		userID,
	).Scan(&cfg.ID, &cfg.UserID, &send, &del, &cfg.CreatedAt, &cfg.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メッセージ設定の取得に失敗しました: %w", err)
	}

	cfg.SendInterval = interval.SendInterval(send)
	cfg.DeleteInterval = interval.DeleteInterval(del)
	return cfg, nil
}

// UpdateWithMessages は設定と再計算済みメッセージ群を単一トランザクションで更新する。
// ユーザー集約全体をひとつの単位として書き込むため、途中で失敗した場合は
// 設定もメッセージも一切変更されない。
func (r *PostgresMessageConfigRepo) UpdateWithMessages(ctx context.Context, cfg *model.MessageConfig, messages []*model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE message_configs
		 SET send_interval = $2, delete_interval = $3, updated_at = $4
		 WHERE user_id = $1`,
		cfg.UserID, string(cfg.SendInterval), string(cfg.DeleteInterval), cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("メッセージ設定の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("メッセージ設定が見つかりません: user_id=%s", cfg.UserID)
	}

	for _, m := range messages {
		_, err := tx.ExecContext(ctx,
			`UPDATE messages
			 SET send_on = $2, read_on = $3, delete_on = $4, updated_at = $5
			 WHERE id = $1 AND user_id = $6`,
			m.ID, m.SendOn, m.ReadOn, m.DeleteOn, m.UpdatedAt, cfg.UserID,
		)
		if err != nil {
			return fmt.Errorf("メッセージの再計算結果の保存に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}
