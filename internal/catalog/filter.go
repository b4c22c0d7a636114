package catalog

import (
	"strconv"
	"strings"

	"github.com/hitoshi/fletnix/internal/model"
)

// 既定のページング設定。
const (
	DefaultPage     = 1
	DefaultPageSize = 15
	MaxPageSize     = 100
)

// FilterParams は一覧取得リクエストの未解釈のパラメータ。
// Limitは旧クライアント向けのPageSizeの別名で、PageSizeが空の場合のみ参照する。
type FilterParams struct {
	Search   string
	Cast     string
	Type     string
	Page     string
	PageSize string
	Limit    string
}

// Paging はページサイズの既定値と上限。
type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPaging は既定のページング設定を返す。
func DefaultPaging() Paging {
	return Paging{DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize}
}

// NormalizeFilter はリクエストパラメータをCatalogFilterに変換する。
// 不正な値はエラーにせず既定値に置き換える。
//   - page: 正の整数でなければ1
//   - pageSize: 正の整数でなければ既定値、上限を超える場合は上限
//   - type: Movie / TV Show / TVShow 以外はフィルタなし
//   - search, cast: 前後の空白を除去し、空ならフィルタなし
func NormalizeFilter(p FilterParams, paging Paging) model.CatalogFilter {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = DefaultPageSize
	}
	if paging.MaxPageSize <= 0 {
		paging.MaxPageSize = MaxPageSize
	}

	f := model.CatalogFilter{
		Search:   strings.TrimSpace(p.Search),
		Cast:     strings.TrimSpace(p.Cast),
		Page:     positiveIntOr(p.Page, DefaultPage),
		PageSize: paging.DefaultPageSize,
	}

	if ct, ok := model.ParseContentType(p.Type); ok {
		f.Type = ct
	}

	rawSize := p.PageSize
	if strings.TrimSpace(rawSize) == "" {
		rawSize = p.Limit
	}
	f.PageSize = positiveIntOr(rawSize, paging.DefaultPageSize)
	if f.PageSize > paging.MaxPageSize {
		f.PageSize = paging.MaxPageSize
	}

	return f
}

func positiveIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// TotalPages は総件数とページサイズから総ページ数を返す。
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
