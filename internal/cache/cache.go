// Package cache はRedisを使用したカタログ問い合わせ結果のキャッシュを提供する。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/fletnix/internal/metrics"
	"github.com/hitoshi/fletnix/internal/model"
	"github.com/hitoshi/fletnix/internal/repository"
)

// keyPrefix はキャッシュキーの接頭辞。
const keyPrefix = "fletnix:catalog:query:"

// Client はキャッシュが使用するRedisクライアントの操作。*redis.Clientが満たす。
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedShowRepo はShowRepositoryのQuery結果をRedisにキャッシュするデコレータ。
//
// キーは合成済みクエリ全体（年齢制限条件を含む）のハッシュであるため、
// 制限付き作品を含むページと含まないページが同じキーを共有することはない。
// Redisの障害時はキャッシュを迂回してストアに問い合わせる。
// 単一作品の取得はキャッシュしない。
type CachedShowRepo struct {
	next    repository.ShowRepository
	client  Client
	ttl     time.Duration
	metrics metrics.MetricsCollector
}

// NewCachedShowRepo はCachedShowRepoを生成する。
func NewCachedShowRepo(next repository.ShowRepository, client Client, ttl time.Duration, m metrics.MetricsCollector) *CachedShowRepo {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CachedShowRepo{next: next, client: client, ttl: ttl, metrics: m}
}

// cachedPage はキャッシュに保存するページの表現。
type cachedPage struct {
	Items []model.Show `json:"items"`
	Total int          `json:"total"`
}

// Query はキャッシュを参照し、なければストアに問い合わせて結果を保存する。
func (r *CachedShowRepo) Query(ctx context.Context, q model.ShowQuery) (*model.ShowPage, error) {
	key, err := QueryKey(q)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cp cachedPage
		if jsonErr := json.Unmarshal(raw, &cp); jsonErr == nil {
			r.metrics.RecordCacheResult(metrics.CacheHit)
			if cp.Items == nil {
				cp.Items = []model.Show{}
			}
			return &model.ShowPage{Items: cp.Items, Total: cp.Total}, nil
		}
		slog.Warn("discarding corrupt catalog cache entry", slog.String("key", key))
		r.metrics.RecordCacheResult(metrics.CacheError)
	case errors.Is(err, redis.Nil):
		r.metrics.RecordCacheResult(metrics.CacheMiss)
	default:
		slog.Warn("catalog cache lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		r.metrics.RecordCacheResult(metrics.CacheError)
	}

	page, err := r.next.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedPage{Items: page.Items, Total: page.Total})
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog cache entry: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		slog.Warn("catalog cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return page, nil
}

// FindByShowID は公開識別子で作品を取得する。キャッシュは使用しない。
func (r *CachedShowRepo) FindByShowID(ctx context.Context, showID string) (*model.Show, error) {
	return r.next.FindByShowID(ctx, showID)
}

// FindByID は内部識別子で作品を取得する。キャッシュは使用しない。
func (r *CachedShowRepo) FindByID(ctx context.Context, id string) (*model.Show, error) {
	return r.next.FindByID(ctx, id)
}

// QueryKey はクエリのキャッシュキーを返す。
// 同じクエリは常に同じキーになる。
func QueryKey(q model.ShowQuery) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// compile-time interface check
var _ repository.ShowRepository = (*CachedShowRepo)(nil)
