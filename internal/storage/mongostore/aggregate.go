package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storedir/internal/domain"
)

// TagHistogram unwinds every store's tags into (store, tag) pairs, counts
// per tag and sorts descending by count. Order among equal counts is
// whatever the group stage produced; callers must not depend on it.
func (s *Stores) TagHistogram(ctx context.Context) ([]domain.TagCount, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$tags"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var out []domain.TagCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopStores joins each store against its reviews and ranks by average
// rating. Stores with fewer than two reviews are filtered out before the
// average is taken: one review is not a signal, however good it is. The
// threshold is a design constant, not configuration.
func (s *Stores) TopStores(ctx context.Context, limit int64) ([]domain.RankedStore, error) {
	if limit <= 0 {
		limit = domain.DefaultTopLimit
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "reviews"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "store"},
			{Key: "as", Value: "reviews"},
		}}},
		// reviews.1 exists <=> at least two joined reviews
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "reviews.1", Value: bson.D{{Key: "$exists", Value: true}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "name", Value: 1},
			{Key: "slug", Value: 1},
			{Key: "photo", Value: 1},
			{Key: "reviewCount", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
			{Key: "averageRating", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "averageRating", Value: -1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var out []domain.RankedStore
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
