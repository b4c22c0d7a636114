// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// ContentType は作品の種別を表す。
type ContentType string

const (
	// ContentTypeMovie は映画を表す。
	ContentTypeMovie ContentType = "Movie"
	// ContentTypeTVShow はTV番組を表す。
	ContentTypeTVShow ContentType = "TV Show"
)

// ParseContentType はクエリ文字列から作品種別を解釈する。
// 認識できない値の場合はfalseを返す（呼び出し側はフィルタなしとして扱う）。
func ParseContentType(s string) (ContentType, bool) {
	switch strings.TrimSpace(s) {
	case "Movie":
		return ContentTypeMovie, true
	case "TV Show", "TVShow":
		return ContentTypeTVShow, true
	default:
		return "", false
	}
}

// Show はカタログに登録された作品（映画・TV番組）を表す。
type Show struct {
	ID          string // 内部識別子（UUID）
	ShowID      string // 公開識別子（例: "s1"）
	Type        ContentType
	Title       string
	Director    string
	Cast        []string
	Country     string
	DateAdded   *time.Time
	ReleaseYear int
	Rating      string // 自由記述のレーティング（例: "PG-13", "TV-MA"）
	Duration    string
	ListedIn    []string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CatalogFilter は一覧取得1ページ分の検索条件を表す。
// 同じフィルタはストアの内容が変わらない限り常に同じ結果を返す。
type CatalogFilter struct {
	Search   string      // タイトルまたはキャストに対する部分一致
	Cast     string      // キャストに対する部分一致
	Type     ContentType // 空文字はフィルタなし
	Page     int         // 1始まり
	PageSize int
}

// ConditionKind はストアクエリの条件種別を表す。
type ConditionKind string

const (
	// ConditionTitleOrCastContains はタイトルまたはキャストのいずれかに部分一致する条件。
	ConditionTitleOrCastContains ConditionKind = "title_or_cast_contains"
	// ConditionCastContains はキャストのいずれかに部分一致する条件。
	ConditionCastContains ConditionKind = "cast_contains"
	// ConditionTypeEquals は作品種別の完全一致条件。
	ConditionTypeEquals ConditionKind = "type_equals"
	// ConditionRatingExcludes はレーティングのトークンがValuesのいずれかに一致する作品を除外する条件。
	ConditionRatingExcludes ConditionKind = "rating_excludes"
)

// Condition はストアクエリの1条件。すべての条件はANDで結合される。
type Condition struct {
	Kind   ConditionKind `json:"kind"`
	Value  string        `json:"value,omitempty"`
	Values []string      `json:"values,omitempty"`
}

// ShowOrder はストアクエリの並び順。
type ShowOrder string

// ShowOrderTitle はタイトル昇順、同名の場合は公開識別子昇順。
const ShowOrderTitle ShowOrder = "title_asc"

// ShowQuery はカタログストアに渡す宣言的なクエリ。
// 件数の集計とページの取得は同じConditionsに対して行われる。
type ShowQuery struct {
	Conditions []Condition `json:"conditions"`
	Order      ShowOrder   `json:"order"`
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
}

// ShowPage はストアから返される1ページ分の作品と総件数。
type ShowPage struct {
	Items []Show
	Total int
}

// PaginatedShows はカタログ一覧のページネーション付き結果。
type PaginatedShows struct {
	Items      []Show
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}
