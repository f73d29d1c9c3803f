// Package search は検索バックエンドとの連携機能を提供する。
// 保存済み検索のフィルタを実行し、結果セットを取得する。
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/notifyman/internal/model"
)

// Searcher は保存済み検索のフィルタを実行するインターフェース。
type Searcher interface {
	// Search はフィルタ定義（JSON）を検索バックエンドで実行し、結果セットを返す。
	Search(ctx context.Context, filterJSON string) ([]model.SearchHit, error)
}

// Client は検索バックエンドのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// endpointは検索バックエンドのベースURL。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
	}
}

// searchHit は検索バックエンドのレスポンスの1件。
type searchHit struct {
	ID                 string `json:"id"`
	DateCreated        string `json:"dateCreated"`
	LastChangeDateTime string `json:"lastChangeDateTime"`
}

// searchResponse は検索バックエンドのレスポンス。
type searchResponse struct {
	Hits []searchHit `json:"hits"`
}

// Search はフィルタ定義を検索バックエンドで実行し、結果セットを返す。
// フィルタはそのままリクエストボディとして転送される。
func (c *Client) Search(ctx context.Context, filterJSON string) ([]model.SearchHit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/api/search", bytes.NewBufferString(filterJSON))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("検索バックエンドの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("検索バックエンドがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("検索バックエンドがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	hits := make([]model.SearchHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		created, err := time.Parse(time.RFC3339, h.DateCreated)
		if err != nil {
			return nil, fmt.Errorf("dateCreatedのパースに失敗しました: %w", err)
		}
		changed, err := time.Parse(time.RFC3339, h.LastChangeDateTime)
		if err != nil {
			return nil, fmt.Errorf("lastChangeDateTimeのパースに失敗しました: %w", err)
		}
		hits = append(hits, model.SearchHit{
			ID:                 h.ID,
			DateCreated:        created,
			LastChangeDateTime: changed,
		})
	}
	return hits, nil
}
