package catalogclient

import (
	"testing"

	"pgregory.net/rapid"
)

func TestFilterEncode_OmitsDefaults(t *testing.T) {
	cases := []Filter{
		{},
		{Page: 1},
		{TitleSearch: "   ", CastSearch: "\t", Page: 0},
		{Type: "documentary", Page: -2},
	}
	for _, f := range cases {
		if got := f.Encode(); got != "" {
			t.Errorf("Filter%+v.Encode() = %q, want empty", f, got)
		}
	}
}

// TestFilterEncode_EqualFiltersProduceIdenticalURLs は論理的に等しい条件が同じURLになることを検証する。
func TestFilterEncode_EqualFiltersProduceIdenticalURLs(t *testing.T) {
	a := Filter{TitleSearch: "matrix ", Type: TypeMovie, Page: 2}
	b := Filter{TitleSearch: " matrix", CastSearch: "  ", Type: "movie", Page: 2}

	if a.Encode() != b.Encode() {
		t.Errorf("Encode differs: %q vs %q", a.Encode(), b.Encode())
	}
	if want := "page=2&titleSearch=matrix&type=movie"; a.Encode() != want {
		t.Errorf("Encode() = %q, want %q", a.Encode(), want)
	}
}

// TestFilterRoundTrip_TitleAndPage はURLへの書き出しと復元で条件が失われないことを検証する。
func TestFilterRoundTrip_TitleAndPage(t *testing.T) {
	f := Filter{TitleSearch: "matrix", Page: 2}

	query := f.Encode()
	if query != "page=2&titleSearch=matrix" {
		t.Errorf("Encode() = %q", query)
	}

	got := ParseFilter(query)
	if got != f {
		t.Errorf("ParseFilter(%q) = %+v, want %+v", query, got, f)
	}
	if got.CastSearch != "" || got.Type != TypeAll {
		t.Errorf("cast/type should be absent, got %+v", got)
	}
}

func TestParseFilter_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		query string
		want  Filter
	}{
		{"", Filter{Page: 1}},
		{"?type=documentary&page=-1", Filter{Page: 1}},
		{"page=abc&type=tv", Filter{Type: TypeTV, Page: 1}},
		{"titleSearch=%zz&castSearch=keanu", Filter{CastSearch: "keanu", Page: 1}},
		{"titleSearch=Tom+%26+Jerry&page=3", Filter{TitleSearch: "Tom & Jerry", Page: 3}},
	}
	for _, tt := range tests {
		if got := ParseFilter(tt.query); got != tt.want {
			t.Errorf("ParseFilter(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestTypeFilter_APIValue(t *testing.T) {
	if TypeMovie.APIValue() != "Movie" {
		t.Errorf("movie = %q", TypeMovie.APIValue())
	}
	if TypeTV.APIValue() != "TV Show" {
		t.Errorf("tv = %q", TypeTV.APIValue())
	}
	if TypeAll.APIValue() != "" {
		t.Errorf("all = %q", TypeAll.APIValue())
	}
}

// TestFilterRoundTrip_Property は任意の条件について復元結果が正規形と一致し、
// 再度書き出したURLがバイト単位で同一であることを検証する。
func TestFilterRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := Filter{
			TitleSearch: rapid.String().Draw(t, "title"),
			CastSearch:  rapid.String().Draw(t, "cast"),
			Type:        TypeFilter(rapid.SampledFrom([]string{"", "movie", "tv", "Movie", "documentary"}).Draw(t, "type")),
			Page:        rapid.IntRange(-5, 10000).Draw(t, "page"),
		}

		query := f.Encode()
		got := ParseFilter(query)
		if got != f.Normalize() {
			t.Fatalf("ParseFilter(%q) = %+v, want %+v", query, got, f.Normalize())
		}
		if got.Encode() != query {
			t.Fatalf("re-encoded %q, want %q", got.Encode(), query)
		}
	})
}
