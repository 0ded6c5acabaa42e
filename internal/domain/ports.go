package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Include opts read operations into joins explicitly. Nothing is populated
// behind the caller's back.
type Include struct {
	Reviews bool
	Author  bool
}

// StoreView is a store plus whatever joins the caller asked for.
type StoreView struct {
	Store        `bson:",inline"`
	AuthorDetail *User    `bson:"authorDetail,omitempty" json:"authorDetail,omitempty"`
	Reviews      []Review `bson:"reviews,omitempty" json:"reviews,omitempty"`
}

// SearchHit is a store with its text-index relevance score.
type SearchHit struct {
	Store `bson:",inline"`
	Score float64 `bson:"score" json:"score"`
}

// StorePin is the reduced projection returned by proximity queries; enough
// to draw a map marker without shipping whole documents.
type StorePin struct {
	Slug        string   `bson:"slug" json:"slug"`
	Name        string   `bson:"name" json:"name"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Location    Location `bson:"location" json:"location"`
	Photo       string   `bson:"photo,omitempty" json:"photo,omitempty"`
}

type NearQuery struct {
	Lng          float64
	Lat          float64
	RadiusMeters float64
	Limit        int64
}

type TagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int    `bson:"count" json:"count"`
}

// RankedStore is a top-stores entry: only stores with at least two reviews
// are eligible, ranked by the arithmetic mean of their ratings.
type RankedStore struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	Photo         string             `bson:"photo,omitempty" json:"photo,omitempty"`
	ReviewCount   int                `bson:"reviewCount" json:"reviewCount"`
	AverageRating float64            `bson:"averageRating" json:"averageRating"`
}

type StoreRepository interface {
	// Write paths
	Create(ctx context.Context, draft StoreDraft, author primitive.ObjectID) (Store, error)
	Update(ctx context.Context, id primitive.ObjectID, patch StorePatch) (Store, error)

	// Read paths
	FindBySlug(ctx context.Context, slug string, inc Include) (StoreView, error)
	Search(ctx context.Context, query string, limit int64) ([]SearchHit, error)
	Near(ctx context.Context, q NearQuery) ([]StorePin, error)
	TagHistogram(ctx context.Context) ([]TagCount, error)
	TopStores(ctx context.Context, limit int64) ([]RankedStore, error)
}

type ReviewRepository interface {
	Add(ctx context.Context, draft ReviewDraft, author, store primitive.ObjectID) (Review, error)
	ListByStore(ctx context.Context, store primitive.ObjectID, includeAuthor bool) ([]Review, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
