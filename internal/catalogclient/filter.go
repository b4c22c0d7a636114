// Package catalogclient はカタログ画面のクライアント側状態を扱う。
//
// 検索条件と共有可能なURLクエリの相互変換、入力のデバウンス、
// 一覧取得の最新応答優先、ログイン状態の単一の保持点を提供する。
package catalogclient

import (
	"net/url"
	"strconv"
	"strings"
)

// URLクエリのキー。
const (
	ParamTitleSearch = "titleSearch"
	ParamCastSearch  = "castSearch"
	ParamType        = "type"
	ParamPage        = "page"
)

// TypeFilter はURL上の種別フィルタ。空はフィルタなし。
type TypeFilter string

const (
	TypeAll   TypeFilter = ""
	TypeMovie TypeFilter = "movie"
	TypeTV    TypeFilter = "tv"
)

// ParseTypeFilter はURL上の値を種別フィルタに変換する。未知の値はフィルタなし。
func ParseTypeFilter(s string) TypeFilter {
	switch TypeFilter(strings.TrimSpace(s)) {
	case TypeMovie:
		return TypeMovie
	case TypeTV:
		return TypeTV
	default:
		return TypeAll
	}
}

// APIValue はカタログAPIのtypeパラメータ値を返す。
func (t TypeFilter) APIValue() string {
	switch t {
	case TypeMovie:
		return "Movie"
	case TypeTV:
		return "TV Show"
	default:
		return ""
	}
}

// Filter はカタログ画面の検索条件。
// ゼロ値はページ1・フィルタなしとして扱う。
type Filter struct {
	TitleSearch string
	CastSearch  string
	Type        TypeFilter
	Page        int
}

// Normalize は正規形のFilterを返す。
// テキストは前後の空白を除去し、未知の種別はフィルタなし、1未満のページは1にする。
// 論理的に等しい条件は正規形で等しくなる。
func (f Filter) Normalize() Filter {
	f.TitleSearch = normalizeText(f.TitleSearch)
	f.CastSearch = normalizeText(f.CastSearch)
	f.Type = ParseTypeFilter(string(f.Type))
	if f.Page < 1 {
		f.Page = 1
	}
	return f
}

// Values は条件をURLクエリに変換する。既定値の項目は含めない。
func (f Filter) Values() url.Values {
	f = f.Normalize()
	v := url.Values{}
	if f.TitleSearch != "" {
		v.Set(ParamTitleSearch, f.TitleSearch)
	}
	if f.CastSearch != "" {
		v.Set(ParamCastSearch, f.CastSearch)
	}
	if f.Type != TypeAll {
		v.Set(ParamType, string(f.Type))
	}
	if f.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(f.Page))
	}
	return v
}

// Encode は条件を正規形のクエリ文字列に変換する。
// キーはソートされるため、等しい条件は常にバイト単位で同じ文字列になる。
func (f Filter) Encode() string {
	return f.Values().Encode()
}

// ParseFilter はクエリ文字列から条件を復元する。先頭の"?"は無視する。
// 解釈できない値は既定値として扱う。
func ParseFilter(rawQuery string) Filter {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		// 壊れたペアだけを読み飛ばし、解釈できた値は使う
		values = lenientParseQuery(strings.TrimPrefix(rawQuery, "?"))
	}
	return FilterFromValues(values)
}

// FilterFromValues はURLクエリの値から条件を復元する。
func FilterFromValues(values url.Values) Filter {
	page, err := strconv.Atoi(strings.TrimSpace(values.Get(ParamPage)))
	if err != nil {
		page = 1
	}
	return Filter{
		TitleSearch: values.Get(ParamTitleSearch),
		CastSearch:  values.Get(ParamCastSearch),
		Type:        TypeFilter(values.Get(ParamType)),
		Page:        page,
	}.Normalize()
}

func lenientParseQuery(rawQuery string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		values.Add(k, v)
	}
	return values
}

func normalizeText(s string) string {
	return strings.TrimSpace(s)
}
