package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storedir/internal/app"
	"storedir/internal/domain"
)

// ---- fakes ----

type fakeStores struct {
	view   domain.StoreView
	hits   []domain.SearchHit
	pins   []domain.StorePin
	tags   []domain.TagCount
	ranked []domain.RankedStore
	err    error

	tagCalls int
	topCalls int
}

func (f *fakeStores) Create(ctx context.Context, d domain.StoreDraft, a primitive.ObjectID) (domain.Store, error) {
	return domain.Store{}, f.err
}
func (f *fakeStores) Update(ctx context.Context, id primitive.ObjectID, p domain.StorePatch) (domain.Store, error) {
	return domain.Store{}, f.err
}
func (f *fakeStores) FindBySlug(ctx context.Context, slug string, inc domain.Include) (domain.StoreView, error) {
	return f.view, f.err
}
func (f *fakeStores) Search(ctx context.Context, q string, limit int64) ([]domain.SearchHit, error) {
	return f.hits, f.err
}
func (f *fakeStores) Near(ctx context.Context, q domain.NearQuery) ([]domain.StorePin, error) {
	return f.pins, f.err
}
func (f *fakeStores) TagHistogram(ctx context.Context) ([]domain.TagCount, error) {
	f.tagCalls++
	return f.tags, f.err
}
func (f *fakeStores) TopStores(ctx context.Context, limit int64) ([]domain.RankedStore, error) {
	f.topCalls++
	return f.ranked, f.err
}

type fakeReviews struct {
	reviews []domain.Review
	err     error
}

func (f *fakeReviews) Add(ctx context.Context, d domain.ReviewDraft, a, s primitive.ObjectID) (domain.Review, error) {
	return domain.Review{}, f.err
}
func (f *fakeReviews) ListByStore(ctx context.Context, s primitive.ObjectID, includeAuthor bool) ([]domain.Review, error) {
	return f.reviews, f.err
}

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

// ---- tests ----

func TestTagHistogram_CacheMissThenHit(t *testing.T) {
	repo := &fakeStores{tags: []domain.TagCount{{Tag: "coffee", Count: 3}, {Tag: "wifi", Count: 1}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, &fakeReviews{}, cache, 10*time.Minute)

	out, err := q.TagHistogram(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[0].Tag != "coffee" {
		t.Fatalf("unexpected histogram: %+v", out)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.tags = []domain.TagCount{{Tag: "SHOULD NOT SEE THIS", Count: 99}}

	out2, err := q.TagHistogram(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out2[0].Tag != "coffee" {
		t.Fatalf("expected cached histogram, got %+v", out2)
	}
	if repo.tagCalls != 1 {
		t.Fatalf("expected exactly one repo call, got %d", repo.tagCalls)
	}
}

func TestTopStores_SharedCacheServesEveryLimit(t *testing.T) {
	repo := &fakeStores{ranked: []domain.RankedStore{
		{Slug: "grounded-coffee-corner", AverageRating: 4.5, ReviewCount: 2},
		{Slug: "the-codfather", AverageRating: 4.0, ReviewCount: 3},
		{Slug: "locktown-pizza", AverageRating: 3.5, ReviewCount: 2},
	}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, &fakeReviews{}, cache, 10*time.Minute)

	out, err := q.TopStores(context.Background(), 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("unexpected ranking: %+v", out)
	}

	// Every limit is served from the one cached list, sliced to size.
	out, err = q.TopStores(context.Background(), 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[1].Slug != "the-codfather" {
		t.Fatalf("expected top two from cache, got %+v", out)
	}
	if repo.topCalls != 1 {
		t.Fatalf("expected one repo call across limits, got %d", repo.topCalls)
	}
}

func TestSearch_PassesThroughInvalidQuery(t *testing.T) {
	repo := &fakeStores{err: &domain.InvalidQueryError{Reason: "search text must not be empty"}}
	q := app.NewQueryService(repo, &fakeReviews{}, &fakeCache{}, time.Minute)

	_, err := q.Search(context.Background(), "   ", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*domain.InvalidQueryError); !ok {
		t.Fatalf("expected InvalidQueryError, got %T", err)
	}
}

func TestGetStore_NotFoundPassesThrough(t *testing.T) {
	repo := &fakeStores{err: &domain.NotFoundError{Resource: "store", Key: "nope"}}
	q := app.NewQueryService(repo, &fakeReviews{}, &fakeCache{}, time.Minute)

	_, err := q.GetStore(context.Background(), "nope", domain.Include{})
	if _, ok := err.(*domain.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
}
