package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ozxoz/chatapi/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type blockDoc struct {
	Blocker   string    `bson:"blocker"`
	Blocked   string    `bson:"blocked"`
	Timestamp time.Time `bson:"timestamp"`
}

// MongoBlockRepo はMongoDBを使用したブロック関係リポジトリ。
type MongoBlockRepo struct {
	coll *mongo.Collection
}

// NewMongoBlockRepo はMongoBlockRepoを生成する。
func NewMongoBlockRepo(db *mongo.Database) *MongoBlockRepo {
	return &MongoBlockRepo{coll: db.Collection(CollectionBlocks)}
}

// Exists はblockerがblockedをブロックしているかを返す。
func (r *MongoBlockRepo) Exists(ctx context.Context, blocker, blocked string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx,
		bson.M{"blocker": blocker, "blocked": blocked},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return n > 0, nil
}

// Insert はブロック関係を作成する。(blocker, blocked)の一意インデックス違反はErrDuplicateKeyになる。
func (r *MongoBlockRepo) Insert(ctx context.Context, block *model.Block) error {
	_, err := r.coll.InsertOne(ctx, blockDoc{
		Blocker:   block.Blocker,
		Blocked:   block.Blocked,
		Timestamp: block.Timestamp,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}

// Delete はブロック関係を削除する。
func (r *MongoBlockRepo) Delete(ctx context.Context, blocker, blocked string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"blocker": blocker, "blocked": blocked}); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// ListBlocked はblockerがブロックしているユーザーをブロックした順に返す。
func (r *MongoBlockRepo) ListBlocked(ctx context.Context, blocker string) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{"blocker": blocker}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	var docs []blockDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode blocked users: %w", err)
	}

	blocked := make([]string, 0, len(docs))
	for _, d := range docs {
		blocked = append(blocked, d.Blocked)
	}
	return blocked, nil
}

// compile-time interface check
var _ BlockRepository = (*MongoBlockRepo)(nil)
