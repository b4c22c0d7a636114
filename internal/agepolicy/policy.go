// Package agepolicy はレーティングと閲覧者の年齢から表示可否を判定する年齢制限ポリシーを提供する。
//
// レーティングは自由記述のため完全一致ではなくトークン単位で判定する。
// レーティングを大文字化して区切り文字で分割し、いずれかのトークンが
// 制限マーカー（既定: R, NC-17, TV-MA）と一致すれば「制限付き」とみなす。
// 例: "R" と "Rated R" は制限付き、"PG-13" と "NR" は制限なし。
//
// 判定は副作用を持たない純粋関数で、年齢不明は18歳未満と同じに扱う。
package agepolicy

import (
	"sort"
	"strings"
	"unicode"
)

// AdultAge は制限付き作品を閲覧できる最低年齢。
const AdultAge = 18

// DefaultMarkers は既定の制限マーカー。
var DefaultMarkers = []string{"R", "NC-17", "TV-MA"}

// TokenSeparatorPattern はTokensと同じ区切りをPostgreSQLの正規表現で表したもの。
// ストア側でレーティング除外条件を評価する際に使用する。
const TokenSeparatorPattern = `[\s,/()\[\];|]+`

// Policy はマーカー集合に基づく年齢制限ポリシー。
type Policy struct {
	markers map[string]struct{}
	sorted  []string
}

// Default は既定マーカーによるポリシー。
var Default = New(DefaultMarkers...)

// New は指定したマーカーでPolicyを生成する。
// マーカーは大文字化・トリムされ、空文字は無視される。
func New(markers ...string) *Policy {
	p := &Policy{markers: make(map[string]struct{}, len(markers))}
	for _, m := range markers {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, dup := p.markers[m]; dup {
			continue
		}
		p.markers[m] = struct{}{}
		p.sorted = append(p.sorted, m)
	}
	sort.Strings(p.sorted)
	return p
}

// Markers は正規化済みの制限マーカーを昇順で返す。
func (p *Policy) Markers() []string {
	out := make([]string, len(p.sorted))
	copy(out, p.sorted)
	return out
}

// IsRestricted はレーティングが制限付きかどうかを返す。
// レーティングが空の場合は制限なし。
func (p *Policy) IsRestricted(rating string) bool {
	return MatchesAny(rating, p.markers)
}

// CanViewRestricted は閲覧者が制限付き作品を閲覧できるかどうかを返す。
// 年齢がnil（匿名または年齢不明）の場合は閲覧不可。
func (p *Policy) CanViewRestricted(age *int) bool {
	return age != nil && *age >= AdultAge
}

// IsAllowed はレーティングの作品を閲覧者が閲覧できるかどうかを返す。
func (p *Policy) IsAllowed(rating string, age *int) bool {
	if !p.IsRestricted(rating) {
		return true
	}
	return p.CanViewRestricted(age)
}

// Tokens はレーティングを大文字化して区切り文字で分割したトークンを返す。
func Tokens(rating string) []string {
	return strings.FieldsFunc(strings.ToUpper(rating), isSeparator)
}

// MatchesAny はレーティングのトークンのいずれかがマーカー集合に含まれるかを返す。
// マーカーは正規化済み（大文字）であること。
func MatchesAny(rating string, markers map[string]struct{}) bool {
	for _, tok := range Tokens(rating) {
		if _, ok := markers[tok]; ok {
			return true
		}
	}
	return false
}

// MarkerSet はマーカーのスライスを判定用の集合に変換する。
func MarkerSet(markers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		set[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}
	return set
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', '/', '(', ')', '[', ']', ';', '|':
		return true
	}
	return false
}

// IsRestricted は既定ポリシーでレーティングが制限付きかどうかを返す。
func IsRestricted(rating string) bool {
	return Default.IsRestricted(rating)
}

// IsAllowed は既定ポリシーで閲覧可否を返す。
func IsAllowed(rating string, age *int) bool {
	return Default.IsAllowed(rating, age)
}
