// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/fletnix/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// ShowRepository はカタログ（作品）データの読み取りインターフェース。
// 書き込みはShowWriterが担う。
type ShowRepository interface {
	// Query はクエリの条件に一致する作品のページと総件数を返す。
	// 総件数はOffset/Limitを適用する前の、同じ条件に一致する件数。
	Query(ctx context.Context, q model.ShowQuery) (*model.ShowPage, error)

	// FindByShowID は公開識別子で作品を取得する。見つからない場合はnilを返す。
	FindByShowID(ctx context.Context, showID string) (*model.Show, error)

	// FindByID は内部識別子で作品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Show, error)
}

// ShowWriter はカタログ取り込み用の書き込みインターフェース。
type ShowWriter interface {
	// Upsert は公開識別子をキーに作品を作成または更新する。新規作成した場合はtrueを返す。
	Upsert(ctx context.Context, show *model.Show) (bool, error)
}
