// Package directory は社内ディレクトリサービスとの連携機能を提供する。
// 連絡先メールアドレスからユーザーの実体（表示名・外部ID）を解決する。
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Identity はディレクトリサービスが返すユーザーの実体情報。
type Identity struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	ExternalID string `json:"externalId"`
}

// Resolver はメールアドレスからユーザーの実体を解決するインターフェース。
type Resolver interface {
	// ResolveIdentity はメールアドレスに対応する実体情報を取得する。
	// ディレクトリに存在しない場合はnilを返す。
	ResolveIdentity(ctx context.Context, email string) (*Identity, error)
}

// Client はディレクトリサービスのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// endpointはディレクトリサービスのベースURL。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
	}
}

// ResolveIdentity はメールアドレスに対応する実体情報を取得する。
// ディレクトリに存在しない（404）場合はnilを返す。
func (c *Client) ResolveIdentity(ctx context.Context, email string) (*Identity, error) {
	reqURL, err := url.Parse(c.endpoint + "/api/identities")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("email", email)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ディレクトリサービスの呼び出しに失敗しました",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ディレクトリサービスがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("email", email),
		)
		return nil, fmt.Errorf("ディレクトリサービスがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return &identity, nil
}
