package mongostore

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storedir/internal/domain"
)

// Search runs a relevance query against the name+description text index.
// Results carry the textScore and come back sorted by it, descending; ties
// keep the store's natural order.
func (s *Stores) Search(ctx context.Context, query string, limit int64) ([]domain.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &domain.InvalidQueryError{Reason: "search text must not be empty"}
	}
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	filter := bson.M{"$text": bson.M{"$search": query}}
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var hits []domain.SearchHit
	if err := cur.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Near returns stores within q.RadiusMeters of the point, nearest first
// (the 2dsphere index orders $near results by ascending distance).
// $maxDistance is inclusive: a store at exactly the radius is returned.
// Only the map-marker projection is shipped back.
func (s *Stores) Near(ctx context.Context, q domain.NearQuery) ([]domain.StorePin, error) {
	if err := domain.CheckCoordinates(q.Lng, q.Lat); err != nil {
		return nil, err
	}
	if q.RadiusMeters <= 0 {
		q.RadiusMeters = domain.DefaultNearRadius
	}
	if q.Limit <= 0 {
		q.Limit = domain.DefaultNearLimit
	}

	filter := bson.M{"location": bson.M{"$near": bson.M{
		"$geometry": bson.M{
			"type":        domain.GeoPoint,
			"coordinates": []float64{q.Lng, q.Lat},
		},
		"$maxDistance": q.RadiusMeters,
	}}}
	opts := options.Find().
		SetProjection(bson.M{
			"_id":         0,
			"slug":        1,
			"name":        1,
			"description": 1,
			"location":    1,
			"photo":       1,
		}).
		SetLimit(q.Limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var pins []domain.StorePin
	if err := cur.All(ctx, &pins); err != nil {
		return nil, err
	}
	return pins, nil
}
