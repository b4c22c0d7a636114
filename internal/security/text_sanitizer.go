// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は取り込んだカタログデータのテキスト項目からHTMLを取り除き、
// APIが返す文字列にマークアップが混入しないようにする。
// bluemondayのStrictPolicyで全てのタグを除去し、その後に文字参照を元に戻す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト化の機能のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// script, styleの中身は破棄する。連続する空白は1つにまとめ、前後の空白を除去する。
	// 文字参照を戻した結果に現れたタグも除去するため、出力を再度Sanitizeしても変化しない。
	Sanitize(raw string) string
	// SanitizeAll はスライスの各要素をサニタイズし、空になった要素を除いて返す。
	SanitizeAll(values []string) []string
}

// maxSanitizePasses はタグ除去と文字参照の復元を繰り返す上限。
const maxSanitizePasses = 8

// TextSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーは並行利用できる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は入力をプレーンテキストに変換する。
func (s *TextSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// タグを含まない入力はポリシーを通さない（"&"などを二重に解釈しないため）
	if !strings.ContainsAny(raw, "<>") {
		return collapseSpaces(raw)
	}
	// "&lt;b&gt;"のような文字参照は戻した後にタグになるため、変化しなくなるまで繰り返す
	out := collapseSpaces(raw)
	for i := 0; i < maxSanitizePasses && strings.ContainsAny(out, "<>"); i++ {
		next := collapseSpaces(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	if strings.ContainsAny(out, "<>") {
		// 入れ子が深すぎる文字参照は山括弧ごと捨てる
		out = collapseSpaces(strings.NewReplacer("<", " ", ">", " ").Replace(out))
	}
	return out
}

// SanitizeAll はスライスの各要素をサニタイズし、空になった要素を除いて返す。
func (s *TextSanitizer) SanitizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := s.Sanitize(v); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ TextSanitizerService = (*TextSanitizer)(nil)
