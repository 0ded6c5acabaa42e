package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	server "storedir/internal/adapters/http_server"
	"storedir/internal/adapters/observability"
	redisad "storedir/internal/adapters/redis"
	"storedir/internal/app"
	"storedir/internal/shared"
	"storedir/internal/storage/mongostore"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(reg)

	// document store
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo.Connect failed")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal().Err(err).Msg("mongo ping failed")
	}
	log.Info().Msg("document store connection ok")

	db := client.Database(cfg.MongoDB)
	stores := mongostore.NewStores(db)
	reviews := mongostore.NewReviews(db)
	if err := stores.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("store indexes failed")
	}
	if err := reviews.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("review indexes failed")
	}

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(stores, reviews, cache, cfg.CacheTTL)
	c := app.NewCommandService(stores, reviews, cache)

	// http
	srv := server.New(cfg.RateRPS)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
