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

type attachmentDoc struct {
	Name string `bson:"name"`
	URL  string `bson:"url"`
	Type string `bson:"type"`
}

// messageDoc のIDは、このサービスが書いたものはUUIDv7の文字列、
// 他のクライアントが書いたものはObjectIDになる。
type messageDoc struct {
	ID        any            `bson:"_id"`
	ChatID    string         `bson:"chatId"`
	Sender    string         `bson:"sender"`
	Recipient string         `bson:"recipient"`
	Message   string         `bson:"message"`
	File      *attachmentDoc `bson:"file,omitempty"`
	Timestamp time.Time      `bson:"timestamp"`
}

func (d messageDoc) toModel() model.Message {
	m := model.Message{
		ID:        messageID(d.ID),
		ChatID:    d.ChatID,
		Sender:    d.Sender,
		Recipient: d.Recipient,
		Message:   d.Message,
		Timestamp: d.Timestamp,
	}
	if d.File != nil {
		m.File = &model.Attachment{Name: d.File.Name, URL: d.File.URL, Type: d.File.Type}
	}
	return m
}

// messageID は_idの値をAPIで返すID文字列に変換する。
func messageID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case bson.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

type conversationDoc struct {
	Participant string    `bson:"participant"`
	LastMessage string    `bson:"lastMessage"`
	Timestamp   time.Time `bson:"timestamp"`
}

type chatRoomDoc struct {
	ChatID   string       `bson:"_id"`
	Messages []messageDoc `bson:"messages"`
}

// MongoMessageRepo はMongoDBを使用したメッセージリポジトリ。
// _idにはUUIDv7の文字列を格納し、同一タイムスタンプ内の到着順として使う。
// 他のクライアントが挿入したObjectIDの_idもそのまま読み出せる。
type MongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepo はMongoMessageRepoを生成する。
func NewMongoMessageRepo(db *mongo.Database) *MongoMessageRepo {
	return &MongoMessageRepo{coll: db.Collection(CollectionMessages)}
}

// Insert はメッセージを保存する。
func (r *MongoMessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	doc := messageDoc{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Message:   msg.Message,
		Timestamp: msg.Timestamp,
	}
	if msg.File != nil {
		doc.File = &attachmentDoc{Name: msg.File.Name, URL: msg.File.URL, Type: msg.File.Type}
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// FindByChatID はchatIdのメッセージをタイムスタンプ昇順で返す。
func (r *MongoMessageRepo) FindByChatID(ctx context.Context, chatID string) ([]model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages by chat id: %w", err)
	}
	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]model.Message, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, d.toModel())
	}
	return messages, nil
}

// AggregateLastPerCounterpart は相手ごとの最新メッセージをタイムスタンプ降順で返す。
func (r *MongoMessageRepo) AggregateLastPerCounterpart(ctx context.Context, email string) ([]model.ConversationSummary, error) {
	cursor, err := r.coll.Aggregate(ctx, lastPerCounterpartPipeline(email))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %w", err)
	}
	var docs []conversationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}

	summaries := make([]model.ConversationSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, model.ConversationSummary{
			Participant: d.Participant,
			LastMessage: d.LastMessage,
			Timestamp:   d.Timestamp,
		})
	}
	return summaries, nil
}

// AggregateGroupedByChatID はemailが関わるメッセージをchatIdごとにまとめて返す。
func (r *MongoMessageRepo) AggregateGroupedByChatID(ctx context.Context, email string) ([]model.ChatRoom, error) {
	cursor, err := r.coll.Aggregate(ctx, groupedByChatIDPipeline(email))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate chat rooms: %w", err)
	}
	var docs []chatRoomDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode chat rooms: %w", err)
	}

	rooms := make([]model.ChatRoom, 0, len(docs))
	for _, d := range docs {
		room := model.ChatRoom{ChatID: d.ChatID, Messages: make([]model.Message, 0, len(d.Messages))}
		for _, m := range d.Messages {
			room.Messages = append(room.Messages, m.toModel())
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// involving はemailが送信者または受信者であるメッセージに一致する$matchステージ。
func involving(email string) bson.D {
	return bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
		bson.M{"sender": email},
		bson.M{"recipient": email},
	}}}}
}

// arrivalOrder はタイムスタンプ昇順、同時刻は_id昇順の$sortステージ。
var arrivalOrder = bson.D{{Key: "$sort", Value: bson.D{
	{Key: "timestamp", Value: 1},
	{Key: "_id", Value: 1},
}}}

// lastPerCounterpartPipeline は相手ごとに最新メッセージを1件残す集計パイプライン。
// 到着順に並べてから$lastを取るため、同時刻のメッセージは後から届いたものが残る。
func lastPerCounterpartPipeline(email string) mongo.Pipeline {
	counterpart := bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{"$sender", email}},
		"$recipient",
		"$sender",
	}}

	return mongo.Pipeline{
		involving(email),
		arrivalOrder,
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: counterpart},
			{Key: "lastMessage", Value: bson.M{"$last": "$message"}},
			{Key: "timestamp", Value: bson.M{"$last": "$timestamp"}},
			{Key: "lastId", Value: bson.M{"$last": "$_id"}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "timestamp", Value: -1},
			{Key: "lastId", Value: -1},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "participant", Value: "$_id"},
			{Key: "lastMessage", Value: 1},
			{Key: "timestamp", Value: 1},
		}}},
	}
}

// groupedByChatIDPipeline はメッセージをchatIdごとにまとめる集計パイプライン。
func groupedByChatIDPipeline(email string) mongo.Pipeline {
	return mongo.Pipeline{
		involving(email),
		arrivalOrder,
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$chatId"},
			{Key: "messages", Value: bson.M{"$push": "$$ROOT"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// compile-time interface check
var _ MessageRepository = (*MongoMessageRepo)(nil)
