package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/notifyman/internal/cache"
)

// メッセージ本文に埋め込まれるプレースホルダー。
const (
	PlaceholderPidURI = "%COLID_PID_URI%"
	PlaceholderLabel  = "%COLID_LABEL%"

	PlaceholderSearchName   = "%SEARCH_NAME%"
	PlaceholderChangedCount = "%CHANGED_COUNT%"
)

// テンプレートキー。
const (
	templateEntryUpdated   = "entry_updated"
	templateEntryDeleted   = "entry_deleted"
	templateInvalidContact = "invalid_contact"
	templateSearchChanged  = "search_changed"
)

// templateTTL はキャッシュ上のテンプレートの有効期間。
const templateTTL = 10 * time.Minute

// Template は通知メッセージの件名と本文のテンプレート。
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// defaultTemplates は組み込みのテンプレート定義。
// キャッシュミス時・キャッシュ障害時のフォールバックとしても使用される。
var defaultTemplates = map[string]Template{
	templateEntryUpdated: {
		Subject: "カタログエントリ「" + PlaceholderLabel + "」が更新されました",
		Body: "<p>購読中のカタログエントリ「<strong>" + PlaceholderLabel + "</strong>」が更新されました。</p>" +
			`<p><a href="` + PlaceholderPidURI + `">エントリを確認する</a></p>`,
	},
	templateEntryDeleted: {
		Subject: "カタログエントリ「" + PlaceholderLabel + "」が削除されました",
		Body: "<p>購読中のカタログエントリ「<strong>" + PlaceholderLabel + "</strong>」が削除されました。</p>" +
			"<p>このエントリの購読は自動的に解除されます。</p>",
	},
	templateInvalidContact: {
		Subject: "カタログエントリ「" + PlaceholderLabel + "」の連絡先が無効です",
		Body: "<p>あなたが連絡先として登録されているカタログエントリ「<strong>" + PlaceholderLabel + "</strong>」の" +
			"連絡先情報が無効になっています。</p>" +
			`<p><a href="` + PlaceholderPidURI + `">エントリを確認して連絡先を更新してください。</a></p>`,
	},
	templateSearchChanged: {
		Subject: "保存済み検索「" + PlaceholderSearchName + "」の結果が変化しました",
		Body: "<p>保存済み検索「<strong>" + PlaceholderSearchName + "</strong>」の結果に " +
			PlaceholderChangedCount + " 件の新規・更新エントリがあります。</p>",
	},
}

// templateStore はテンプレートのread-throughキャッシュ付きルックアップ。
// キャッシュが利用できない場合は組み込みテンプレートにフォールバックする。
type templateStore struct {
	cache cache.Cache
}

func newTemplateStore(c cache.Cache) *templateStore {
	return &templateStore{cache: c}
}

// Get は指定キーのテンプレートを返す。
func (ts *templateStore) Get(ctx context.Context, key string) Template {
	fallback := defaultTemplates[key]

	raw, err := ts.cache.GetOrAdd(ctx, "template:"+key, templateTTL, func(ctx context.Context) (string, error) {
		b, err := json.Marshal(fallback)
		if err != nil {
			return "", fmt.Errorf("テンプレートのシリアライズに失敗しました: %w", err)
		}
		return string(b), nil
	})
	if err != nil {
		return fallback
	}

	var tpl Template
	if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
		return fallback
	}
	return tpl
}

// renderEntry はエントリ系テンプレートのプレースホルダーを置換する。
// labelが空の場合はPID URIを表示名として使用する。
func renderEntry(tpl Template, colidPidURI, label string) (subject, body string) {
	if label == "" {
		label = colidPidURI
	}
	replacer := strings.NewReplacer(
		PlaceholderPidURI, colidPidURI,
		PlaceholderLabel, label,
	)
	return replacer.Replace(tpl.Subject), replacer.Replace(tpl.Body)
}

// renderSearch は検索変化テンプレートのプレースホルダーを置換する。
func renderSearch(tpl Template, searchName string, changedCount int) (subject, body string) {
	replacer := strings.NewReplacer(
		PlaceholderSearchName, searchName,
		PlaceholderChangedCount, strconv.Itoa(changedCount),
	)
	return replacer.Replace(tpl.Subject), replacer.Replace(tpl.Body)
}
