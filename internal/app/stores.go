package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ozxoz/chatapi/internal/database"
	"github.com/ozxoz/chatapi/internal/repository"
)

// storeConnectTimeout はストアへの初回接続の上限時間。
const storeConnectTimeout = 10 * time.Second

// storeKind はDATABASE_URLのスキームから使用するストアの種類を返す。
func storeKind(databaseURL string) string {
	if database.IsMongoURL(databaseURL) {
		return "mongodb"
	}
	return "postgres"
}

// openStores はDATABASE_URLに応じてPostgreSQLまたはMongoDBのリポジトリ一式を構築する。
func openStores(ctx context.Context, databaseURL string) (*repository.Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	if database.IsMongoURL(databaseURL) {
		return openMongoStores(ctx, databaseURL)
	}
	return openPostgresStores(ctx, databaseURL)
}

func openPostgresStores(ctx context.Context, databaseURL string) (*repository.Stores, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &repository.Stores{
		Users:    repository.NewPostgresUserRepo(db),
		Messages: repository.NewPostgresMessageRepo(db),
		Blocks:   repository.NewPostgresBlockRepo(db),
		Ping:     db.PingContext,
		Close:    func(context.Context) error { return db.Close() },
	}, nil
}

func openMongoStores(ctx context.Context, databaseURL string) (*repository.Stores, error) {
	client, db, err := database.OpenMongo(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	// 一意制約はインデックスに依存するため、起動時に必ず作成する
	if err := database.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &repository.Stores{
		Users:    repository.NewMongoUserRepo(db),
		Messages: repository.NewMongoMessageRepo(db),
		Blocks:   repository.NewMongoBlockRepo(db),
		Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
		Close:    client.Disconnect,
	}, nil
}
