package app

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storedir/internal/adapters/observability"
	"storedir/internal/domain"
)

// Cache keys for the two aggregation read-paths. Search and proximity reads
// always hit the document store so results reflect its state at call time.
//
// Top-stores are cached as a single list at the largest limit the API
// accepts and sliced per request, so a write invalidates one key and no
// per-limit variant can go stale.
const (
	tagsCacheKey  = "agg:tags"
	topCacheKey   = "agg:top"
	topCacheLimit = 100
)

type QueryService struct {
	stores   domain.StoreRepository
	reviews  domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.StoreRepository, r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{stores: s, reviews: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetStore(ctx context.Context, slug string, inc domain.Include) (domain.StoreView, error) {
	v, err := s.stores.FindBySlug(ctx, slug, inc)
	observability.ObserveQuery("store_by_slug", err)
	return v, err
}

func (s *QueryService) Search(ctx context.Context, query string, limit int64) ([]domain.SearchHit, error) {
	hits, err := s.stores.Search(ctx, query, limit)
	observability.ObserveQuery("search", err)
	return hits, err
}

func (s *QueryService) Near(ctx context.Context, q domain.NearQuery) ([]domain.StorePin, error) {
	pins, err := s.stores.Near(ctx, q)
	observability.ObserveQuery("near", err)
	return pins, err
}

func (s *QueryService) ListReviews(ctx context.Context, store primitive.ObjectID, includeAuthor bool) ([]domain.Review, error) {
	rs, err := s.reviews.ListByStore(ctx, store, includeAuthor)
	observability.ObserveQuery("reviews_by_store", err)
	return rs, err
}

func (s *QueryService) TagHistogram(ctx context.Context) ([]domain.TagCount, error) {
	var cached []domain.TagCount
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, tagsCacheKey, &cached); ok {
			return cached, nil
		}
	}
	out, err := s.stores.TagHistogram(ctx)
	observability.ObserveQuery("tag_histogram", err)
	if err != nil {
		return nil, err
	}
	// copy before caching so callers can't mutate the cached value
	cp := make([]domain.TagCount, len(out))
	copy(cp, out)
	if s.cache != nil {
		_ = s.cache.Set(ctx, tagsCacheKey, cp, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

func (s *QueryService) TopStores(ctx context.Context, limit int64) ([]domain.RankedStore, error) {
	if limit <= 0 {
		limit = domain.DefaultTopLimit
	}
	if s.cache == nil || limit > topCacheLimit {
		out, err := s.stores.TopStores(ctx, limit)
		observability.ObserveQuery("top_stores", err)
		return out, err
	}
	var cached []domain.RankedStore
	if ok, _ := s.cache.Get(ctx, topCacheKey, &cached); ok {
		return clipRanked(cached, limit), nil
	}
	out, err := s.stores.TopStores(ctx, topCacheLimit)
	observability.ObserveQuery("top_stores", err)
	if err != nil {
		return nil, err
	}
	cp := make([]domain.RankedStore, len(out))
	copy(cp, out)
	_ = s.cache.Set(ctx, topCacheKey, cp, int(s.cacheTTL.Seconds()))
	return clipRanked(out, limit), nil
}

func clipRanked(rs []domain.RankedStore, limit int64) []domain.RankedStore {
	if int64(len(rs)) > limit {
		return rs[:limit]
	}
	return rs
}
