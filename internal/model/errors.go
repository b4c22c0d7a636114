// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeShowNotFound           = "SHOW_NOT_FOUND"
	ErrCodeShowRestricted         = "SHOW_RESTRICTED"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は認証必須エンドポイントで認証情報が無効な場合のエラーを生成する。
// 匿名閲覧とは区別される。
func NewUnauthenticatedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  fmt.Sprintf("認証が必要です: %s", reason),
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewShowNotFoundError は作品未検出エラーを生成する。
func NewShowNotFoundError(identifier string) *APIError {
	return &APIError{
		Code:     ErrCodeShowNotFound,
		Message:  fmt.Sprintf("指定された作品が見つかりません: %s", identifier),
		Category: "catalog",
		Action:   "作品IDを確認してください。",
	}
}

// NewShowRestrictedError は年齢制限により作品を表示できない場合のエラーを生成する。
// 作品が存在しない場合（NewShowNotFoundError）とは区別される。
func NewShowRestrictedError() *APIError {
	return &APIError{
		Code:     ErrCodeShowRestricted,
		Message:  "この作品は年齢制限のため表示できません。",
		Category: "catalog",
		Action:   "18歳以上のアカウントでログインしてください。",
	}
}

// NewInvalidRequestError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewEmailAlreadyRegisteredError は登録済みメールアドレスで登録しようとした場合のエラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidCredentialsError はログイン情報が一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限を超えた場合のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
