package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/metrics"
	"github.com/hitoshi/fletnix/internal/model"
	"github.com/hitoshi/fletnix/internal/repository"
)

// Service はカタログの一覧取得と単一作品取得のサービス層。
// 年齢制限は一覧ではクエリ合成で、単一作品では取得後の判定で適用する。
type Service struct {
	shows    repository.ShowRepository
	policy   *agepolicy.Policy
	composer *Composer
	metrics  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// policyがnilの場合は既定ポリシー、mがnilの場合はメトリクスを記録しない。
func NewService(shows repository.ShowRepository, policy *agepolicy.Policy, m metrics.MetricsCollector) *Service {
	if policy == nil {
		policy = agepolicy.Default
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		shows:    shows,
		policy:   policy,
		composer: NewComposer(policy),
		metrics:  m,
	}
}

// List はフィルタに一致する作品のうち閲覧者が閲覧できるものを1ページ分返す。
// totalItemsは閲覧者に表示可能な件数のみを数える。
func (s *Service) List(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*model.PaginatedShows, error) {
	s.metrics.RecordCatalogRequest("list")

	q := s.composer.Compose(filter, viewer)

	start := time.Now()
	page, err := s.shows.Query(ctx, q)
	s.metrics.RecordStoreQueryLatency(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("作品一覧の取得に失敗しました: %w", err)
	}

	items := page.Items
	if items == nil {
		items = []model.Show{}
	}
	return &model.PaginatedShows{
		Items:      items,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalItems: page.Total,
		TotalPages: TotalPages(page.Total, filter.PageSize),
	}, nil
}

// FetchOne は識別子で作品を1件取得し、閲覧者に表示可能かを判定する。
//
// 識別子はまず公開識別子として検索し、見つからずUUID形式であれば内部識別子として検索する。
// 作品が存在しない場合はSHOW_NOT_FOUND、存在するが年齢制限により表示できない場合は
// SHOW_RESTRICTEDを返す。
func (s *Service) FetchOne(ctx context.Context, identifier string, viewer model.Viewer) (*model.Show, error) {
	s.metrics.RecordCatalogRequest("get")

	show, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, model.NewShowNotFoundError(identifier)
	}

	if !s.policy.IsAllowed(show.Rating, viewer.Age()) {
		s.metrics.RecordAgeGateDenial()
		slog.Info("restricted show denied",
			slog.String("show_id", show.ShowID),
			slog.String("user_id", viewer.UserID()),
		)
		return nil, model.NewShowRestrictedError()
	}

	return show, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (*model.Show, error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreQueryLatency(time.Since(start)) }()

	show, err := s.shows.FindByShowID(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	if show != nil {
		return show, nil
	}

	id, err := uuid.Parse(identifier)
	if err != nil {
		return nil, nil
	}
	show, err = s.shows.FindByID(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	return show, nil
}
