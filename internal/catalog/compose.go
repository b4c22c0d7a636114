// Package catalog はカタログ一覧のクエリ合成と単一作品の閲覧可否判定を提供する。
package catalog

import (
	"math"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/model"
)

// Composer はフィルタと閲覧者からストアクエリを合成する。
type Composer struct {
	policy *agepolicy.Policy
}

// NewComposer はComposerを生成する。policyがnilの場合は既定ポリシーを使用する。
func NewComposer(policy *agepolicy.Policy) *Composer {
	if policy == nil {
		policy = agepolicy.Default
	}
	return &Composer{policy: policy}
}

// Compose はフィルタと閲覧者からストアクエリを合成する。
//
// 条件はフリーテキスト、キャスト、種別の順に追加し、年齢制限の条件は
// 閲覧者が制限付き作品を閲覧できない場合に必ず最後に追加する。
// 年齢制限条件はフィルタの内容にかかわらず追加されるため、
// クライアントが指定したフィルタで除外を打ち消すことはできない。
// 件数の集計とページ取得は同じ条件を使用する。
func (c *Composer) Compose(filter model.CatalogFilter, viewer model.Viewer) model.ShowQuery {
	q := model.ShowQuery{
		Conditions: make([]model.Condition, 0, 4),
		Order:      model.ShowOrderTitle,
		Offset:     pageOffset(filter.Page, filter.PageSize),
		Limit:      filter.PageSize,
	}

	if filter.Search != "" {
		q.Conditions = append(q.Conditions, model.Condition{
			Kind:  model.ConditionTitleOrCastContains,
			Value: filter.Search,
		})
	}
	if filter.Cast != "" {
		q.Conditions = append(q.Conditions, model.Condition{
			Kind:  model.ConditionCastContains,
			Value: filter.Cast,
		})
	}
	if filter.Type != "" {
		q.Conditions = append(q.Conditions, model.Condition{
			Kind:  model.ConditionTypeEquals,
			Value: string(filter.Type),
		})
	}

	if !c.policy.CanViewRestricted(viewer.Age()) {
		q.Conditions = append(q.Conditions, model.Condition{
			Kind:   model.ConditionRatingExcludes,
			Values: c.policy.Markers(),
		})
	}

	return q
}

// pageOffset はページ番号から読み飛ばす件数を求める。
// 乗算があふれる場合はmath.MaxIntに飽和させ、どの作品も返らないページとして扱う。
func pageOffset(page, pageSize int) int {
	if page <= 1 || pageSize <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// Compose は既定ポリシーでストアクエリを合成する。
func Compose(filter model.CatalogFilter, viewer model.Viewer) model.ShowQuery {
	return NewComposer(nil).Compose(filter, viewer)
}
