package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/notifyman/internal/interval"
	"github.com/hitoshi/notifyman/internal/model"
)

// PostgresSavedSearchRepo はPostgreSQLを使用した保存済み検索リポジトリ。
type PostgresSavedSearchRepo struct {
	db *sql.DB
}

// NewPostgresSavedSearchRepo はPostgresSavedSearchRepoを生成する。
func NewPostgresSavedSearchRepo(db *sql.DB) *PostgresSavedSearchRepo {
	return &PostgresSavedSearchRepo{db: db}
}

// savedSearchQuery は保存済み検索とストアドクエリをLEFT JOINで取得する共通SELECT。
const savedSearchQuery = `
	SELECT s.id, s.user_id, s.name, s.filter_json, s.created_at, s.updated_at,
	       q.id, q.execution_interval, q.latest_execution_date,
	       q.search_result_hash, q.number_search_results, q.created_at, q.updated_at
	FROM saved_searches s
	LEFT JOIN stored_queries q ON q.saved_search_id = s.id`

// scanSavedSearch は保存済み検索の1行を読み取る。ストアドクエリが無い行はnilのまま返す。
func scanSavedSearch(scan func(dest ...any) error) (*model.SavedSearch, error) {
	s := &model.SavedSearch{}
	var (
		qID       sql.NullString
		qInterval sql.NullString
		qLatest   sql.NullTime
		qHash     sql.NullString
		qCount    sql.NullInt64
		qCreated  sql.NullTime
		qUpdated  sql.NullTime
	)
	err := scan(&s.ID, &s.UserID, &s.Name, &s.FilterJSON, &s.CreatedAt, &s.UpdatedAt,
		&qID, &qInterval, &qLatest, &qHash, &qCount, &qCreated, &qUpdated)
	if err != nil {
		return nil, err
	}
	if qID.Valid {
		s.StoredQuery = &model.StoredQuery{
			ID:                  qID.String,
			SavedSearchID:       s.ID,
			ExecutionInterval:   interval.ExecutionInterval(qInterval.String),
			LatestExecutionDate: qLatest.Time,
			SearchResultHash:    qHash.String,
			NumberSearchResults: int(qCount.Int64),
			CreatedAt:           qCreated.Time,
			UpdatedAt:           qUpdated.Time,
		}
	}
	return s, nil
}

// FindByID は指定IDの保存済み検索をストアドクエリ付きで取得する。見つからない場合はnilを返す。
func (r *PostgresSavedSearchRepo) FindByID(ctx context.Context, id string) (*model.SavedSearch, error) {
	row := r.db.QueryRowContext(ctx, savedSearchQuery+` WHERE s.id = $1`, id)
	s, err := scanSavedSearch(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("保存済み検索の取得に失敗しました: %w", err)
	}
	return s, nil
}

// Create は保存済み検索を作成する。
// StoredQueryが設定されている場合は同一トランザクションで作成する。
func (r *PostgresSavedSearchRepo) Create(ctx context.Context, search *model.SavedSearch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saved_searches (id, user_id, name, filter_json, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		search.ID, search.UserID, search.Name, search.FilterJSON, search.CreatedAt, search.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存済み検索の作成に失敗しました: %w", err)
	}

	if search.StoredQuery != nil {
		q := search.StoredQuery
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stored_queries (id, saved_search_id, execution_interval, latest_execution_date,
			                             search_result_hash, number_search_results, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID, q.SavedSearchID, string(q.ExecutionInterval), q.LatestExecutionDate,
			q.SearchResultHash, q.NumberSearchResults, q.CreatedAt, q.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("ストアドクエリの作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの保存済み検索一覧をストアドクエリ付きで返す。
func (r *PostgresSavedSearchRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx, savedSearchQuery+` WHERE s.user_id = $1 ORDER BY s.created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済み検索一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSavedSearches(rows)
}

// ListScheduled はストアドクエリが紐付く全保存済み検索を返す。
func (r *PostgresSavedSearchRepo) ListScheduled(ctx context.Context) ([]*model.SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx, savedSearchQuery+` WHERE q.id IS NOT NULL ORDER BY s.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("評価対象の保存済み検索の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSavedSearches(rows)
}

// scanSavedSearches は保存済み検索の行を走査してスライスに変換する。
func scanSavedSearches(rows *sql.Rows) ([]*model.SavedSearch, error) {
	var searches []*model.SavedSearch
	for rows.Next() {
		s, err := scanSavedSearch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("保存済み検索行の読み取りに失敗しました: %w", err)
		}
		searches = append(searches, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("保存済み検索一覧の走査に失敗しました: %w", err)
	}
	return searches, nil
}

// UpdateStoredQuery はストアドクエリの評価状態（ハッシュ・件数・最終実行日時）を更新する。
func (r *PostgresSavedSearchRepo) UpdateStoredQuery(ctx context.Context, sq *model.StoredQuery) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stored_queries
		 SET latest_execution_date = $2, search_result_hash = $3, number_search_results = $4, updated_at = $5
		 WHERE id = $1`,
		sq.ID, sq.LatestExecutionDate, sq.SearchResultHash, sq.NumberSearchResults, sq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ストアドクエリの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ストアドクエリが見つかりません: %s", sq.ID)
	}
	return nil
}
