package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notifyman/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
func (r *PostgresMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	m := &model.Message{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, subject, body, additional_info, send_on, read_on, delete_on, created_at, updated_at
		 FROM messages WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.UserID, &m.Subject, &m.Body, &m.AdditionalInfo,
		&m.SendOn, &m.ReadOn, &m.DeleteOn, &m.CreatedAt, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}

	return m, nil
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, m *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, subject, body, additional_info, send_on, read_on, delete_on, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.UserID, m.Subject, m.Body, m.AdditionalInfo,
		m.SendOn, m.ReadOn, m.DeleteOn, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はメッセージのタイムスタンプ等を上書き更新する。
func (r *PostgresMessageRepo) Update(ctx context.Context, m *model.Message) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages
		 SET subject = $2, body = $3, additional_info = $4,
		     send_on = $5, read_on = $6, delete_on = $7, updated_at = $8
		 WHERE id = $1`,
		m.ID, m.Subject, m.Body, m.AdditionalInfo,
		m.SendOn, m.ReadOn, m.DeleteOn, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("メッセージの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("メッセージが見つかりません: %s", m.ID)
	}
	return nil
}

// ListByUserID はユーザーの全メッセージを作成日時昇順で返す。
func (r *PostgresMessageRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, subject, body, additional_info, send_on, read_on, delete_on, created_at, updated_at
		 FROM messages WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		m := &model.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Subject, &m.Body, &m.AdditionalInfo,
			&m.SendOn, &m.ReadOn, &m.DeleteOn, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("メッセージ行の読み取りに失敗しました: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メッセージ一覧の走査に失敗しました: %w", err)
	}
	return messages, nil
}
