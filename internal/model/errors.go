// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, notification, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeMessageNotFound       = "MESSAGE_NOT_FOUND"
	ErrCodeConfigNotFound        = "MESSAGE_CONFIG_NOT_FOUND"
	ErrCodeSubscriptionNotFound  = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeSavedSearchNotFound   = "SAVED_SEARCH_NOT_FOUND"
	ErrCodeDuplicateSubscription = "DUPLICATE_SUBSCRIPTION"
	ErrCodeNotModified           = "NOT_MODIFIED"
	ErrCodeInvalidConfiguration  = "INVALID_CONFIGURATION"
	ErrCodeInvalidArgument       = "INVALID_ARGUMENT"
	ErrCodeDuplicateUser         = "DUPLICATE_USER"
)

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "notification",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewMessageNotFoundError はメッセージが見つからない場合のエラーを生成する。
func NewMessageNotFoundError(messageID string) *APIError {
	return &APIError{
		Code:     ErrCodeMessageNotFound,
		Message:  fmt.Sprintf("指定されたメッセージが見つかりません: %s", messageID),
		Category: "notification",
		Action:   "メッセージIDを確認してください。",
	}
}

// NewConfigNotFoundError はメッセージ設定が見つからない場合のエラーを生成する。
func NewConfigNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeConfigNotFound,
		Message:  fmt.Sprintf("指定されたユーザーのメッセージ設定が見つかりません: %s", userID),
		Category: "notification",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(subscriptionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %s", subscriptionID),
		Category: "notification",
		Action:   "購読IDを確認してください。",
	}
}

// NewSavedSearchNotFoundError は保存済み検索が見つからない場合のエラーを生成する。
func NewSavedSearchNotFoundError(savedSearchID string) *APIError {
	return &APIError{
		Code:     ErrCodeSavedSearchNotFound,
		Message:  fmt.Sprintf("指定された保存済み検索が見つかりません: %s", savedSearchID),
		Category: "notification",
		Action:   "保存済み検索のIDを確認してください。",
	}
}

// NewDuplicateSubscriptionError は同一エントリを再度購読しようとした場合のエラーを生成する。
func NewDuplicateSubscriptionError(colidPidURI string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSubscription,
		Message:  fmt.Sprintf("このカタログエントリは既に購読しています: %s", colidPidURI),
		Category: "validation",
		Action:   "購読一覧から該当エントリを確認してください。",
	}
}

// NewDuplicateUserError は同一メールアドレスのユーザーが既に存在する場合のエラーを生成する。
func NewDuplicateUserError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  fmt.Sprintf("このメールアドレスのユーザーは既に存在します: %s", email),
		Category: "validation",
		Action:   "既存のユーザーを利用してください。",
	}
}

// NewNotModifiedError は設定更新で変更点がなかった場合のエラーを生成する。
// 呼び出し側の規約により成功（no-op）として扱われる。
func NewNotModifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotModified,
		Message:  "メッセージ設定に変更はありません。",
		Category: "validation",
		Action:   "変更する項目を指定してください。",
	}
}

// NewInvalidConfigurationError は送信・削除間隔の順序制約に違反した場合のエラーを生成する。
func NewInvalidConfigurationError(send, del string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidConfiguration,
		Message:  fmt.Sprintf("無効なメッセージ設定です: 送信間隔（%s）は削除間隔（%s）より短くなければなりません", send, del),
		Category: "validation",
		Action:   "送信間隔が削除間隔より前になるよう指定してください。",
	}
}

// NewInvalidArgumentError は必須フィールドの欠落や不正値のエラーを生成する。
func NewInvalidArgumentError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  fmt.Sprintf("無効なリクエストです: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}
