package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ozxoz/chatapi/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBのコレクション名
const (
	CollectionUsers    = "users"
	CollectionMessages = "messages"
	CollectionBlocks   = "blocked_users"
)

type userDoc struct {
	Email     string    `bson:"email"`
	Nickname  string    `bson:"nickname"`
	Password  string    `bson:"password"`
	AvatarURL string    `bson:"avatarUrl,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(CollectionUsers)}
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &model.User{
		Email:        doc.Email,
		Nickname:     doc.Nickname,
		PasswordHash: doc.Password,
		AvatarURL:    doc.AvatarURL,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// Insert はユーザーを作成する。emailの一意インデックス違反はErrDuplicateKeyになる。
func (r *MongoUserRepo) Insert(ctx context.Context, user *model.User) error {
	_, err := r.coll.InsertOne(ctx, userDoc{
		Email:     user.Email,
		Nickname:  user.Nickname,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// SearchByNicknameOrEmail はニックネームまたはメールアドレスの部分一致でユーザーを検索する。
func (r *MongoUserRepo) SearchByNicknameOrEmail(ctx context.Context, query string) ([]model.UserSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "email": 1, "nickname": 1}).
		SetSort(bson.D{{Key: "email", Value: 1}})

	cursor, err := r.coll.Find(ctx, searchFilter(query), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]model.UserSummary, 0, len(docs))
	for _, d := range docs {
		users = append(users, model.UserSummary{Email: d.Email, Nickname: d.Nickname})
	}
	return users, nil
}

// searchFilter はqueryをリテラルとして大文字小文字を区別せず照合するフィルタを組み立てる。
func searchFilter(query string) bson.M {
	re := bson.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"nickname": re},
		bson.M{"email": re},
	}}
}

// FindProfile はアバターURLとニックネームを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindProfile(ctx context.Context, email string) (*model.UserProfile, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "avatarUrl": 1, "nickname": 1})

	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	return &model.UserProfile{AvatarURL: doc.AvatarURL, Nickname: doc.Nickname}, nil
}

// UpdateAvatar はアバターURLを更新する。
func (r *MongoUserRepo) UpdateAvatar(ctx context.Context, email, avatarURL string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"avatarUrl": avatarURL}},
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
