package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestClient_ResolveIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("email"); got != "tanaka@example.com" {
			t.Errorf("emailパラメータ = %s, want tanaka@example.com", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Identity{
			Email:      "tanaka@example.com",
			Name:       "田中太郎",
			ExternalID: "EXT-001",
		})
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	identity, err := c.ResolveIdentity(context.Background(), "tanaka@example.com")
	if err != nil {
		t.Fatalf("ResolveIdentity がエラーを返した: %v", err)
	}
	if identity == nil {
		t.Fatal("identity が nil")
	}
	if identity.Name != "田中太郎" {
		t.Errorf("Name = %s, want 田中太郎", identity.Name)
	}
	if identity.ExternalID != "EXT-001" {
		t.Errorf("ExternalID = %s, want EXT-001", identity.ExternalID)
	}
}

func TestClient_ResolveIdentity_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	identity, err := c.ResolveIdentity(context.Background(), "unknown@example.com")
	if err != nil {
		t.Fatalf("ResolveIdentity がエラーを返した: %v", err)
	}
	// 404は「ディレクトリに存在しない」を意味し、エラーではなくnilを返す
	if identity != nil {
		t.Errorf("identity = %+v, want nil", identity)
	}
}

func TestClient_ResolveIdentity_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), server.URL)

	_, err := c.ResolveIdentity(context.Background(), "tanaka@example.com")
	if err == nil {
		t.Fatal("サーバーエラー時にエラーを返すべき")
	}
}
