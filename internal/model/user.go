// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Age          int
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity はトークン検証によって得られる閲覧者の身元情報。
// リクエスト処理中は変更しない。
type Identity struct {
	ID    string
	Email string
	Age   *int // nilは年齢不明（未成年と同等に扱う）
	Name  string
}

// Viewer は1リクエスト分の閲覧者コンテキスト。
// Identityがnilの場合は匿名閲覧者を表す。
type Viewer struct {
	Identity *Identity
}

// AnonymousViewer は匿名閲覧者を返す。
func AnonymousViewer() Viewer {
	return Viewer{}
}

// IsAnonymous は匿名閲覧者かどうかを返す。
func (v Viewer) IsAnonymous() bool {
	return v.Identity == nil
}

// Age は閲覧者の年齢を返す。匿名または年齢不明の場合はnil。
func (v Viewer) Age() *int {
	if v.Identity == nil {
		return nil
	}
	return v.Identity.Age
}

// UserID は閲覧者のユーザーIDを返す。匿名の場合は空文字。
func (v Viewer) UserID() string {
	if v.Identity == nil {
		return ""
	}
	return v.Identity.ID
}
