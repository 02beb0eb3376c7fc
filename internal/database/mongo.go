package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ozxoz/chatapi/internal/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrMissingDatabaseName はMongoDBの接続URIにデータベース名が含まれていないことを表す。
var ErrMissingDatabaseName = errors.New("mongodb uri must include a database name")

// IsMongoURL は接続URLがMongoDBを指すかを判定する。
func IsMongoURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "mongodb://") || strings.HasPrefix(databaseURL, "mongodb+srv://")
}

// DatabaseNameFromURI はMongoDB接続URIのパス部分からデータベース名を取り出す。
// 例: "mongodb://localhost:27017/chat?retryWrites=true" -> "chat"
func DatabaseNameFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse mongodb uri: %w", err)
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return "", ErrMissingDatabaseName
	}
	return name, nil
}

// OpenMongo はMongoDBに接続し、URIで指定されたデータベースを返す。
// 接続確認のためPingを実行する。
func OpenMongo(ctx context.Context, uri string) (*mongo.Client, *mongo.Database, error) {
	name, err := DatabaseNameFromURI(uri)
	if err != nil {
		return nil, nil, err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(name), nil
}

// mongoIndexes はコレクションごとのインデックス定義。
// users.emailと(blocker, blocked)の一意性はここで保証する。
func mongoIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		repository.CollectionUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_email"),
			},
			{Keys: bson.D{{Key: "nickname", Value: 1}}},
		},
		repository.CollectionMessages: {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "sender", Value: 1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}}},
		},
		repository.CollectionBlocks: {
			{
				Keys:    bson.D{{Key: "blocker", Value: 1}, {Key: "blocked", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_block_pair"),
			},
		},
	}
}

// EnsureMongoIndexes はインデックスを作成する。既存のインデックスはそのまま残る。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range mongoIndexes() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}

	slog.Info("MongoDB indexes ensured", slog.String("database", db.Name()))
	return nil
}
