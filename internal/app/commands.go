package app

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storedir/internal/domain"
)

// CommandService is the write path: store creation/updates and new reviews.
// Every successful write invalidates the aggregation caches, since any of
// them can shift the tag histogram or the top-stores ranking.
type CommandService struct {
	stores  domain.StoreRepository
	reviews domain.ReviewRepository
	cache   domain.Cache
}

func NewCommandService(s domain.StoreRepository, r domain.ReviewRepository, c domain.Cache) *CommandService {
	return &CommandService{stores: s, reviews: r, cache: c}
}

func (s *CommandService) CreateStore(ctx context.Context, draft domain.StoreDraft, author primitive.ObjectID) (domain.Store, error) {
	st, err := s.stores.Create(ctx, draft, author)
	if err != nil {
		return domain.Store{}, err
	}
	s.invalidateAggregates(ctx)
	return st, nil
}

func (s *CommandService) UpdateStore(ctx context.Context, id primitive.ObjectID, patch domain.StorePatch) (domain.Store, error) {
	st, err := s.stores.Update(ctx, id, patch)
	if err != nil {
		return domain.Store{}, err
	}
	s.invalidateAggregates(ctx)
	return st, nil
}

func (s *CommandService) AddReview(ctx context.Context, draft domain.ReviewDraft, author, store primitive.ObjectID) (domain.Review, error) {
	rv, err := s.reviews.Add(ctx, draft, author, store)
	if err != nil {
		return domain.Review{}, err
	}
	s.invalidateAggregates(ctx)
	return rv, nil
}

func (s *CommandService) invalidateAggregates(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, tagsCacheKey)
	_ = s.cache.Del(ctx, topCacheKey)
}
