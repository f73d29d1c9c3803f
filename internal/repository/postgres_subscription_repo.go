package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/notifyman/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, id string) (*model.ColidEntrySubscription, error) {
	sub := &model.ColidEntrySubscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, colid_pid_uri, note, created_at, updated_at
		 FROM colid_entry_subscriptions WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.UserID, &sub.ColidPidURI, &sub.Note, &sub.CreatedAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}

	return sub, nil
}

// FindByUserAndEntry はユーザーIDとエントリURIで購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByUserAndEntry(ctx context.Context, userID, colidPidURI string) (*model.ColidEntrySubscription, error) {
	sub := &model.ColidEntrySubscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, colid_pid_uri, note, created_at, updated_at
		 FROM colid_entry_subscriptions WHERE user_id = $1 AND colid_pid_uri = $2`,
		userID, colidPidURI,
	).Scan(&sub.ID, &sub.UserID, &sub.ColidPidURI, &sub.Note, &sub.CreatedAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーとエントリによる購読の検索に失敗しました: %w", err)
	}

	return sub, nil
}

// Create は購読を作成する。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.ColidEntrySubscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO colid_entry_subscriptions (id, user_id, colid_pid_uri, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.UserID, sub.ColidPidURI, sub.Note, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByEntry は指定エントリの全購読者の購読一覧を返す。
func (r *PostgresSubscriptionRepo) ListByEntry(ctx context.Context, colidPidURI string) ([]*model.ColidEntrySubscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, colid_pid_uri, note, created_at, updated_at
		 FROM colid_entry_subscriptions WHERE colid_pid_uri = $1 ORDER BY created_at ASC`,
		colidPidURI,
	)
	if err != nil {
		return nil, fmt.Errorf("エントリの購読者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListByUserID はユーザーの購読一覧を返す。
func (r *PostgresSubscriptionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.ColidEntrySubscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, colid_pid_uri, note, created_at, updated_at
		 FROM colid_entry_subscriptions WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// scanSubscriptions は購読行を走査してスライスに変換する。
func scanSubscriptions(rows *sql.Rows) ([]*model.ColidEntrySubscription, error) {
	var subs []*model.ColidEntrySubscription
	for rows.Next() {
		sub := &model.ColidEntrySubscription{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.ColidPidURI, &sub.Note, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("購読行の読み取りに失敗しました: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}
	return subs, nil
}

// Delete は指定IDの購読を削除する。
func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM colid_entry_subscriptions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("購読が見つかりません: %s", id)
	}
	return nil
}

// DeleteByEntry は指定エントリを指す全ユーザーの購読を削除し、削除件数を返す。
func (r *PostgresSubscriptionRepo) DeleteByEntry(ctx context.Context, colidPidURI string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM colid_entry_subscriptions WHERE colid_pid_uri = $1`,
		colidPidURI,
	)
	if err != nil {
		return 0, fmt.Errorf("エントリの全購読の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// CountByEntries は要求されたエントリごとの購読者数を返す。
// 購読者が0のエントリも結果に0件として含まれる。
func (r *PostgresSubscriptionRepo) CountByEntries(ctx context.Context, colidPidURIs []string) (map[string]int, error) {
	counts := make(map[string]int, len(colidPidURIs))
	for _, uri := range colidPidURIs {
		counts[uri] = 0
	}
	if len(colidPidURIs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT colid_pid_uri, COUNT(*)
		 FROM colid_entry_subscriptions
		 WHERE colid_pid_uri = ANY($1)
		 GROUP BY colid_pid_uri`,
		pq.Array(colidPidURIs),
	)
	if err != nil {
		return nil, fmt.Errorf("購読者数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uri string
		var count int
		if err := rows.Scan(&uri, &count); err != nil {
			return nil, fmt.Errorf("購読者数行の読み取りに失敗しました: %w", err)
		}
		counts[uri] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読者数の走査に失敗しました: %w", err)
	}
	return counts, nil
}
