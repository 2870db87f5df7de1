// Package database opens the external connections: MongoDB, SQLite and Redis.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/config"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
)

const connectTimeout = 10 * time.Second

// ConnectMongoDB connects to uri and pings the primary.
func ConnectMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("❌ MongoDB ping failed: %w", err)
	}
	slog.Info("✅ MongoDB connected successfully")
	return client, nil
}

// ListDatabases logs the databases visible to client.
func ListDatabases(ctx context.Context, client *mongo.Client) {
	dbs, err := client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		slog.Warn("⚠️ error listing databases", "error", err)
		return
	}
	slog.Debug("📌 databases in MongoDB", "names", dbs)
}

// OpenStore opens the store selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, err := ConnectMongoDB(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		ListDatabases(ctx, client)
		s, err := store.NewMongoStore(ctx, client, cfg.MongoDatabase)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("✅ SQLite store opened", "path", cfg.SQLitePath)
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
