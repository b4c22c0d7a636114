package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/model"
)

// MemoryShowRepo はメモリ上の作品一覧を検索するカタログリポジトリ。
// ローカル開発やテストでPostgresShowRepoの代わりに使用する。
// 条件の解釈はPostgresShowRepoと同一（大文字小文字を区別しない部分一致、トークン単位のレーティング除外）。
type MemoryShowRepo struct {
	mu    sync.RWMutex
	shows []model.Show
}

// NewMemoryShowRepo は指定した作品を保持するMemoryShowRepoを生成する。
func NewMemoryShowRepo(shows ...model.Show) *MemoryShowRepo {
	r := &MemoryShowRepo{}
	for _, s := range shows {
		r.shows = append(r.shows, cloneShow(s))
	}
	return r
}

// Upsert は公開識別子をキーに作品を作成または更新する。新規作成した場合はtrueを返す。
// 既存作品の内部識別子と作成日時は維持する。
func (r *MemoryShowRepo) Upsert(ctx context.Context, show *model.Show) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.shows {
		if s.ShowID == show.ShowID {
			c := cloneShow(*show)
			c.ID = s.ID
			c.CreatedAt = s.CreatedAt
			r.shows[i] = c
			return false, nil
		}
	}
	r.shows = append(r.shows, cloneShow(*show))
	return true, nil
}

// Query はクエリの条件に一致する作品のページと総件数を返す。
func (r *MemoryShowRepo) Query(ctx context.Context, q model.ShowQuery) (*model.ShowPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := showOrderClause(q.Order); err != nil {
		return nil, err
	}
	matchers, err := compileMatchers(q.Conditions)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	var matched []model.Show
	for _, s := range r.shows {
		if matchAll(s, matchers) {
			matched = append(matched, cloneShow(s))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ShowID < matched[j].ShowID
	})

	page := &model.ShowPage{Items: []model.Show{}, Total: len(matched)}
	if q.Limit <= 0 || q.Offset >= len(matched) {
		return page, nil
	}
	start := q.Offset
	if start < 0 {
		start = 0
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Items = append(page.Items, matched[start:end]...)
	return page, nil
}

// FindByShowID は公開識別子で作品を取得する。見つからない場合はnilを返す。
func (r *MemoryShowRepo) FindByShowID(ctx context.Context, showID string) (*model.Show, error) {
	return r.find(func(s model.Show) bool { return s.ShowID == showID }), nil
}

// FindByID は内部識別子で作品を取得する。見つからない場合はnilを返す。
func (r *MemoryShowRepo) FindByID(ctx context.Context, id string) (*model.Show, error) {
	return r.find(func(s model.Show) bool { return s.ID == id }), nil
}

func (r *MemoryShowRepo) find(pred func(model.Show) bool) *model.Show {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.shows {
		if pred(s) {
			c := cloneShow(s)
			return &c
		}
	}
	return nil
}

type showMatcher func(model.Show) bool

func compileMatchers(conds []model.Condition) ([]showMatcher, error) {
	matchers := make([]showMatcher, 0, len(conds))
	for _, c := range conds {
		switch c.Kind {
		case model.ConditionTitleOrCastContains:
			needle := strings.ToLower(c.Value)
			matchers = append(matchers, func(s model.Show) bool {
				return strings.Contains(strings.ToLower(s.Title), needle) || anyContains(s.Cast, needle)
			})
		case model.ConditionCastContains:
			needle := strings.ToLower(c.Value)
			matchers = append(matchers, func(s model.Show) bool {
				return anyContains(s.Cast, needle)
			})
		case model.ConditionTypeEquals:
			want := model.ContentType(c.Value)
			matchers = append(matchers, func(s model.Show) bool {
				return s.Type == want
			})
		case model.ConditionRatingExcludes:
			markers := agepolicy.MarkerSet(c.Values)
			matchers = append(matchers, func(s model.Show) bool {
				return !agepolicy.MatchesAny(s.Rating, markers)
			})
		default:
			return nil, fmt.Errorf("unsupported condition kind: %q", c.Kind)
		}
	}
	return matchers, nil
}

func matchAll(s model.Show, matchers []showMatcher) bool {
	for _, m := range matchers {
		if !m(s) {
			return false
		}
	}
	return true
}

func anyContains(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}

func cloneShow(s model.Show) model.Show {
	c := s
	if s.Cast != nil {
		c.Cast = append([]string(nil), s.Cast...)
	}
	if s.ListedIn != nil {
		c.ListedIn = append([]string(nil), s.ListedIn...)
	}
	return c
}

// compile-time interface check
var (
	_ ShowRepository = (*MemoryShowRepo)(nil)
	_ ShowWriter     = (*MemoryShowRepo)(nil)
)
