package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/semaphore"

	"storedir/internal/adapters/observability"
	"storedir/internal/app"
	"storedir/internal/domain"
	"storedir/internal/shared"
	"storedir/internal/storage/mongostore"
)

type seedStore struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Location    domain.Location `json:"location"`
	Photo       string          `json:"photo"`
}

type seedReview struct {
	Store  string `json:"store"` // store name, resolved after creation
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

func main() {
	wipe := flag.Bool("wipe", false, "drop the stores/reviews/users collections before seeding")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("stores", cfg.SeedFile).
		Str("reviews", cfg.ReviewFile).
		Int("workers", cfg.Workers).
		Msg("seeder starting")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo.Connect failed")
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		log.Fatal().Err(err).Msg("mongo ping failed")
	}

	db := client.Database(cfg.MongoDB)
	if *wipe {
		for _, name := range []string{"stores", "reviews", "users"} {
			if err := db.Collection(name).Drop(ctx); err != nil {
				log.Fatal().Err(err).Str("collection", name).Msg("drop failed")
			}
		}
		log.Info().Msg("collections dropped")
	}

	stores := mongostore.NewStores(db)
	reviews := mongostore.NewReviews(db)
	if err := stores.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("store indexes failed")
	}
	if err := reviews.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("review indexes failed")
	}

	// fixture author: the directory core never creates users itself
	author := domain.User{ID: primitive.NewObjectID(), Name: "Seed Author", Email: "seed@example.com"}
	if _, err := db.Collection("users").InsertOne(ctx, author); err != nil {
		log.Fatal().Err(err).Msg("insert fixture user failed")
	}

	var drafts []seedStore
	loadJSON(cfg.SeedFile, &drafts)

	// seeding runs through the real command path so slugs and indexes get
	// exercised end to end
	cmd := app.NewCommandService(stores, reviews, nil)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	byName := make(map[string]primitive.ObjectID, len(drafts))

	for _, d := range drafts {
		d := d
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			st, err := cmd.CreateStore(ctx, domain.StoreDraft{
				Name:        d.Name,
				Description: d.Description,
				Tags:        d.Tags,
				Location:    d.Location,
				Photo:       d.Photo,
			}, author.ID)
			if err != nil {
				log.Warn().Str("name", d.Name).Err(err).Msg("seed store failed")
				return
			}
			mu.Lock()
			byName[st.Name] = st.ID
			mu.Unlock()
			log.Info().Str("slug", st.Slug).Msg("seed store ok")
		}()
	}
	wg.Wait()

	var revs []seedReview
	loadJSON(cfg.ReviewFile, &revs)
	for _, rv := range revs {
		id, ok := byName[rv.Store]
		if !ok {
			log.Warn().Str("store", rv.Store).Msg("review references unknown store")
			continue
		}
		if _, err := cmd.AddReview(ctx, domain.ReviewDraft{Text: rv.Text, Rating: rv.Rating}, author.ID, id); err != nil {
			log.Warn().Str("store", rv.Store).Err(err).Msg("seed review failed")
		}
	}

	log.Info().Int("stores", len(byName)).Int("reviews", len(revs)).Msg("seeding completed")
}

func loadJSON(path string, dst any) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("read seed file failed")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("parse seed file failed")
	}
}
