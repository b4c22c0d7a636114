package catalog

import (
	"math"
	"testing"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/model"
)

func intPtr(v int) *int { return &v }

func viewerWithAge(age *int) model.Viewer {
	return model.Viewer{Identity: &model.Identity{ID: "user-1", Age: age}}
}

// TestCompose_AnonymousGetsAgeClauseLast は匿名閲覧者のクエリの最後に年齢制限条件が付くことを検証する。
func TestCompose_AnonymousGetsAgeClauseLast(t *testing.T) {
	q := Compose(model.CatalogFilter{
		Search:   "matrix",
		Cast:     "Keanu",
		Type:     model.ContentTypeMovie,
		Page:     1,
		PageSize: 15,
	}, model.AnonymousViewer())

	if len(q.Conditions) != 4 {
		t.Fatalf("len(Conditions) = %d, want 4", len(q.Conditions))
	}
	wantKinds := []model.ConditionKind{
		model.ConditionTitleOrCastContains,
		model.ConditionCastContains,
		model.ConditionTypeEquals,
		model.ConditionRatingExcludes,
	}
	for i, k := range wantKinds {
		if q.Conditions[i].Kind != k {
			t.Errorf("Conditions[%d].Kind = %q, want %q", i, q.Conditions[i].Kind, k)
		}
	}

	last := q.Conditions[3]
	if len(last.Values) != len(agepolicy.DefaultMarkers) {
		t.Errorf("excluded markers = %v, want %v", last.Values, agepolicy.DefaultMarkers)
	}
}

// TestCompose_AgeClauseWithoutFilters はフィルタがなくても年齢制限条件が付くことを検証する。
func TestCompose_AgeClauseWithoutFilters(t *testing.T) {
	q := Compose(model.CatalogFilter{Page: 1, PageSize: 15}, model.AnonymousViewer())

	if len(q.Conditions) != 1 || q.Conditions[0].Kind != model.ConditionRatingExcludes {
		t.Errorf("Conditions = %+v, want only rating exclusion", q.Conditions)
	}
}

// TestCompose_UnknownAgeIsRestricted は年齢不明のユーザーが匿名と同じ扱いになることを検証する。
func TestCompose_UnknownAgeIsRestricted(t *testing.T) {
	q := Compose(model.CatalogFilter{Page: 1, PageSize: 15}, viewerWithAge(nil))

	if len(q.Conditions) != 1 || q.Conditions[0].Kind != model.ConditionRatingExcludes {
		t.Errorf("Conditions = %+v, want only rating exclusion", q.Conditions)
	}
}

func TestCompose_MinorIsRestricted(t *testing.T) {
	q := Compose(model.CatalogFilter{Page: 1, PageSize: 15}, viewerWithAge(intPtr(17)))

	if len(q.Conditions) != 1 || q.Conditions[0].Kind != model.ConditionRatingExcludes {
		t.Errorf("Conditions = %+v, want only rating exclusion", q.Conditions)
	}
}

func TestCompose_AdultHasNoAgeClause(t *testing.T) {
	q := Compose(model.CatalogFilter{Type: model.ContentTypeTVShow, Page: 1, PageSize: 15}, viewerWithAge(intPtr(18)))

	for _, c := range q.Conditions {
		if c.Kind == model.ConditionRatingExcludes {
			t.Errorf("adult query should not exclude ratings: %+v", q.Conditions)
		}
	}
	if len(q.Conditions) != 1 || q.Conditions[0].Value != "TV Show" {
		t.Errorf("Conditions = %+v, want only type condition", q.Conditions)
	}
}

func TestCompose_Paging(t *testing.T) {
	q := Compose(model.CatalogFilter{Page: 3, PageSize: 20}, viewerWithAge(intPtr(30)))

	if q.Offset != 40 || q.Limit != 20 {
		t.Errorf("offset/limit = %d/%d, want 40/20", q.Offset, q.Limit)
	}
	if q.Order != model.ShowOrderTitle {
		t.Errorf("Order = %q, want %q", q.Order, model.ShowOrderTitle)
	}
}

// TestCompose_HugePageSaturatesOffset は乗算があふれるページ番号でも読み飛ばし件数が先頭に戻らないことを検証する。
func TestCompose_HugePageSaturatesOffset(t *testing.T) {
	tests := []struct {
		page     string
		pageSize string
		limit    int
	}{
		{page: "1152921504606846977", pageSize: "16", limit: 16},
		{page: "4611686018427387905", pageSize: "3", limit: 3},
		{page: "9223372036854775807", pageSize: "100", limit: 100},
	}
	for _, tt := range tests {
		t.Run(tt.page+"x"+tt.pageSize, func(t *testing.T) {
			f := NormalizeFilter(FilterParams{Page: tt.page, PageSize: tt.pageSize}, DefaultPaging())
			q := Compose(f, model.AnonymousViewer())

			if q.Offset != math.MaxInt || q.Limit != tt.limit {
				t.Errorf("offset/limit = %d/%d, want %d/%d", q.Offset, q.Limit, math.MaxInt, tt.limit)
			}
		})
	}
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		page, pageSize, want int
	}{
		{page: 0, pageSize: 15, want: 0},
		{page: 1, pageSize: 15, want: 0},
		{page: 2, pageSize: 15, want: 15},
		{page: 5, pageSize: 0, want: 0},
		{page: math.MaxInt/16 + 2, pageSize: 16, want: math.MaxInt},
		{page: math.MaxInt/16 + 1, pageSize: 16, want: (math.MaxInt / 16) * 16},
	}
	for _, tt := range tests {
		if got := pageOffset(tt.page, tt.pageSize); got != tt.want {
			t.Errorf("pageOffset(%d, %d) = %d, want %d", tt.page, tt.pageSize, got, tt.want)
		}
	}
}

// TestCompose_CustomPolicy は指定したポリシーのマーカーが除外条件に使われることを検証する。
func TestCompose_CustomPolicy(t *testing.T) {
	c := NewComposer(agepolicy.New("R18"))
	q := c.Compose(model.CatalogFilter{Page: 1, PageSize: 15}, model.AnonymousViewer())

	if len(q.Conditions) != 1 || len(q.Conditions[0].Values) != 1 || q.Conditions[0].Values[0] != "R18" {
		t.Errorf("Conditions = %+v, want exclusion of R18", q.Conditions)
	}
}
