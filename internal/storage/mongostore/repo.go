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
	"storedir/internal/slug"
)

// Stores owns the stores collection: schema, indexes, CRUD with the
// pre-write slug derivation. Slug is written here and nowhere else.
type Stores struct {
	c     *mongo.Collection
	users *mongo.Collection
}

func NewStores(db *mongo.Database) *Stores {
	return &Stores{c: db.Collection("stores"), users: db.Collection("users")}
}

var storeIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
		Options: options.Index().SetName("txt_name_description"),
	},
	{
		Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
		Options: options.Index().SetName("geo_location"),
	},
	{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetName("uniq_slug").SetUnique(true),
	},
}

func (s *Stores) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, storeIndexes)
	return err
}

// slugLookup feeds the generator every slug in the candidate's collision
// family. Case-insensitive to match the derivation contract.
func (s *Stores) slugLookup(ctx context.Context, base string) ([]string, error) {
	filter := bson.M{"slug": primitive.Regex{Pattern: slug.Pattern(base), Options: "i"}}
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"slug": 1, "_id": 0}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Slug string `bson:"slug"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Slug
	}
	return out, nil
}

func (s *Stores) Create(ctx context.Context, draft domain.StoreDraft, author primitive.ObjectID) (domain.Store, error) {
	st := domain.Store{
		Name:        strings.TrimSpace(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		Tags:        draft.Tags,
		Location:    draft.Location,
		Photo:       draft.Photo,
		Author:      author,
		CreatedAt:   time.Now().UTC(),
	}
	st.Location.Type = domain.GeoPoint
	st.Location.Address = strings.TrimSpace(st.Location.Address)

	if err := domain.ValidateStore(st); err != nil {
		return domain.Store{}, err
	}

	sl, err := slug.Generate(ctx, st.Name, s.slugLookup)
	if err != nil {
		return domain.Store{}, err
	}
	st.Slug = sl

	res, err := s.c.InsertOne(ctx, st)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Store{}, &domain.ConflictError{Field: "slug", Value: sl}
		}
		return domain.Store{}, err
	}
	st.ID = res.InsertedID.(primitive.ObjectID)
	return st, nil
}

func (s *Stores) Update(ctx context.Context, id primitive.ObjectID, patch domain.StorePatch) (domain.Store, error) {
	var current domain.Store
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Store{}, &domain.NotFoundError{Resource: "store", Key: id.Hex()}
		}
		return domain.Store{}, err
	}

	merged := patch.ApplyTo(current)
	if err := domain.ValidateStore(merged); err != nil {
		return domain.Store{}, err
	}

	// Slug is immutable unless the name actually changed.
	if merged.Name != current.Name {
		sl, err := slug.Generate(ctx, merged.Name, s.slugLookup)
		if err != nil {
			return domain.Store{}, err
		}
		merged.Slug = sl
	}

	set := bson.M{
		"name":        merged.Name,
		"slug":        merged.Slug,
		"description": merged.Description,
		"tags":        merged.Tags,
		"location":    merged.Location,
		"photo":       merged.Photo,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out domain.Store
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Store{}, &domain.NotFoundError{Resource: "store", Key: id.Hex()}
		}
		if mongo.IsDuplicateKeyError(err) {
			return domain.Store{}, &domain.ConflictError{Field: "slug", Value: merged.Slug}
		}
		return domain.Store{}, err
	}
	return out, nil
}

// FindBySlug is an exact, case-sensitive match. Joins against reviews and
// users happen only when asked for via inc.
func (s *Stores) FindBySlug(ctx context.Context, sl string, inc domain.Include) (domain.StoreView, error) {
	if !inc.Reviews && !inc.Author {
		var v domain.StoreView
		if err := s.c.FindOne(ctx, bson.M{"slug": sl}).Decode(&v); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return domain.StoreView{}, &domain.NotFoundError{Resource: "store", Key: sl}
			}
			return domain.StoreView{}, err
		}
		return v, nil
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "slug", Value: sl}}}},
	}
	if inc.Reviews {
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "reviews"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "store"},
			{Key: "as", Value: "reviews"},
		}}})
	}
	if inc.Author {
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: s.users.Name()},
				{Key: "localField", Value: "author"},
				{Key: "foreignField", Value: "_id"},
				{Key: "as", Value: "authorDetail"},
			}}},
			bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$authorDetail"},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}},
		)
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.StoreView{}, err
	}
	var views []domain.StoreView
	if err := cur.All(ctx, &views); err != nil {
		return domain.StoreView{}, err
	}
	if len(views) == 0 {
		return domain.StoreView{}, &domain.NotFoundError{Resource: "store", Key: sl}
	}
	return views[0], nil
}
