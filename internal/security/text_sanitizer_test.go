package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsTags はHTMLタグが除去されテキストのみが残ることを検証する。
func TestSanitize_StripsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "タグなしはそのまま", input: "The Matrix", want: "The Matrix"},
		{name: "pタグが除去される", input: "<p>A hacker learns the truth</p>", want: "A hacker learns the truth"},
		{name: "ネストしたタグが除去される", input: "<div><b>Bold</b> <i>move</i></div>", want: "Bold move"},
		{name: "aタグはテキストのみ残る", input: `<a href="https://example.com">link</a>`, want: "link"},
		{name: "空文字列", input: "", want: ""},
		{name: "空白のみ", input: "   \t ", want: ""},
		{name: "連続する空白がまとめられる", input: "  Keanu   Reeves \n", want: "Keanu Reeves"},
		{name: "日本語テキスト", input: "<p>テスト段落</p>", want: "テスト段落"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_DropsScriptContent はscriptやstyleの中身が残らないことを検証する。
func TestSanitize_DropsScriptContent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "scriptタグと中身が除去される",
			input:      `Title<script>alert('xss')</script>`,
			wantAbsent: []string{"<script", "alert"},
		},
		{
			name:       "styleタグと中身が除去される",
			input:      `Title<style>body{display:none}</style>`,
			wantAbsent: []string{"<style", "display:none"},
		},
		{
			name:       "イベント属性が除去される",
			input:      `<img src="x" onerror="alert(1)">Title`,
			wantAbsent: []string{"onerror", "<img"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if !strings.Contains(got, "Title") {
				t.Errorf("Sanitize(%q) = %q, expected to keep text", tt.input, got)
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitize_KeepsPlainTextSymbols は記号を含むプレーンテキストが変化しないことを検証する。
func TestSanitize_KeepsPlainTextSymbols(t *testing.T) {
	sanitizer := NewTextSanitizer()

	for _, input := range []string{"Tom & Jerry", `"Quoted" Title`, "Rock 'n' Roll", "Fast & Furious 7"} {
		if got := sanitizer.Sanitize(input); got != input {
			t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
		}
	}
}

// TestSanitize_UnescapesEntitiesAfterStrip はタグ除去後に文字参照が元の文字に戻ることを検証する。
func TestSanitize_UnescapesEntitiesAfterStrip(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize("<b>Tom &amp; Jerry</b>")
	if got != "Tom & Jerry" {
		t.Errorf("Sanitize = %q, want %q", got, "Tom & Jerry")
	}
}

// TestSanitize_Idempotent は同一入力に対して同一出力を返し、再適用しても変化しないことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"<p>Plain</p>",
		"A <em>very</em> good show",
		"No markup at all",
		"<i>x</i> &lt;b&gt;",
		"a < b && c > d",
		"<p>&amp;lt;i&amp;gt;deep&amp;lt;/i&amp;gt;</p>",
	}
	for _, input := range inputs {
		first := sanitizer.Sanitize(input)
		second := sanitizer.Sanitize(first)
		if first != second {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", input, first, second)
		}
	}
}

// TestSanitize_StripsTagsRevealedByUnescape は文字参照を戻して現れたタグも除去されることを検証する。
func TestSanitize_StripsTagsRevealedByUnescape(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{input: "<i>x</i> &lt;b&gt;", want: "x"},
		{input: "<p>&lt;script&gt;alert(1)&lt;/script&gt;Title</p>", want: "Title"},
		{input: "<b>a < b</b>", want: "a < b"},
	}
	for _, tt := range tests {
		got := sanitizer.Sanitize(tt.input)
		if got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := sanitizer.Sanitize(got); again != got {
			t.Errorf("Sanitize(%q) = %q, want unchanged %q", got, again, got)
		}
	}
}

// TestSanitizeAll は各要素がサニタイズされ、空要素が除かれることを検証する。
func TestSanitizeAll(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.SanitizeAll([]string{" Keanu Reeves ", "<b></b>", "Carrie-Anne <i>Moss</i>", ""})
	want := []string{"Keanu Reeves", "Carrie-Anne Moss"}
	if len(got) != len(want) {
		t.Fatalf("SanitizeAll = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SanitizeAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
