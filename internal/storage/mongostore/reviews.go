package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storedir/internal/domain"
)

type Reviews struct {
	c      *mongo.Collection
	stores *mongo.Collection
}

func NewReviews(db *mongo.Database) *Reviews {
	return &Reviews{c: db.Collection("reviews"), stores: db.Collection("stores")}
}

var reviewIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "store", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_store_createdAt"),
	},
}

func (r *Reviews) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, reviewIndexes)
	return err
}

func (r *Reviews) Add(ctx context.Context, draft domain.ReviewDraft, author, store primitive.ObjectID) (domain.Review, error) {
	rv := domain.Review{
		Author:    author,
		Store:     store,
		Text:      strings.TrimSpace(draft.Text),
		Rating:    draft.Rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateReview(rv); err != nil {
		return domain.Review{}, err
	}

	// The store reference must resolve; a review for a missing store is a
	// caller error, not a silent orphan.
	err := r.stores.FindOne(ctx, bson.M{"_id": store},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Review{}, &domain.NotFoundError{Resource: "store", Key: store.Hex()}
		}
		return domain.Review{}, err
	}

	res, err := r.c.InsertOne(ctx, rv)
	if err != nil {
		return domain.Review{}, err
	}
	rv.ID = res.InsertedID.(primitive.ObjectID)
	return rv, nil
}

// ListByStore returns a store's reviews, newest first. The author join is
// explicit opt-in; by default only the author id is present.
func (r *Reviews) ListByStore(ctx context.Context, store primitive.ObjectID, includeAuthor bool) ([]domain.Review, error) {
	if !includeAuthor {
		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cur, err := r.c.Find(ctx, bson.M{"store": store}, opts)
		if err != nil {
			return nil, err
		}
		var out []domain.Review
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "store", Value: store}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "authorDetail"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$authorDetail"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var out []domain.Review
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
