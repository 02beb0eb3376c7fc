package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ozxoz/chatapi/internal/model"
)

// attachmentJSON はmessages.fileカラム（JSONB）の保存形式。
type attachmentJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Insert はメッセージを保存する。
func (r *PostgresMessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	file, err := encodeAttachment(msg.File)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender, recipient, message, file, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ChatID, msg.Sender, msg.Recipient, msg.Message, file, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// FindByChatID はchatIdのメッセージをタイムスタンプ昇順で返す。
// 同一タイムスタンプはUUIDv7のidで到着順に並べる。
func (r *PostgresMessageRepo) FindByChatID(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, recipient, message, file, timestamp
		 FROM messages
		 WHERE chat_id = $1
		 ORDER BY timestamp ASC, id ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages by chat id: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// AggregateLastPerCounterpart は相手ごとの最新メッセージをタイムスタンプ降順で返す。
func (r *PostgresMessageRepo) AggregateLastPerCounterpart(ctx context.Context, email string) ([]model.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT participant, message, timestamp FROM (
		     SELECT DISTINCT ON (participant)
		         CASE WHEN sender = $1 THEN recipient ELSE sender END AS participant,
		         message, timestamp, id
		     FROM messages
		     WHERE sender = $1 OR recipient = $1
		     ORDER BY participant, timestamp DESC, id DESC
		 ) latest
		 ORDER BY timestamp DESC, id DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %w", err)
	}
	defer rows.Close()

	summaries := []model.ConversationSummary{}
	for rows.Next() {
		var s model.ConversationSummary
		if err := rows.Scan(&s.Participant, &s.LastMessage, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return summaries, nil
}

// AggregateGroupedByChatID はemailが関わるメッセージをchatIdごとにまとめて返す。
// 行はchat_id, timestamp, id順に取得するため、連続する同一chat_idを1ルームとしてまとめる。
func (r *PostgresMessageRepo) AggregateGroupedByChatID(ctx context.Context, email string) ([]model.ChatRoom, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, recipient, message, file, timestamp
		 FROM messages
		 WHERE sender = $1 OR recipient = $1
		 ORDER BY chat_id ASC, timestamp ASC, id ASC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate chat rooms: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	return groupByChatID(messages), nil
}

// groupByChatID はchatId順に整列済みのメッセージをルーム単位にまとめる。
func groupByChatID(messages []model.Message) []model.ChatRoom {
	rooms := []model.ChatRoom{}
	for _, m := range messages {
		if n := len(rooms); n > 0 && rooms[n-1].ChatID == m.ChatID {
			rooms[n-1].Messages = append(rooms[n-1].Messages, m)
			continue
		}
		rooms = append(rooms, model.ChatRoom{ChatID: m.ChatID, Messages: []model.Message{m}})
	}
	return rooms
}

// scanMessages はmessagesテーブルの行をスキャンする。
func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		var file []byte
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Recipient, &m.Message, &file, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		attachment, err := decodeAttachment(file)
		if err != nil {
			return nil, err
		}
		m.File = attachment
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// encodeAttachment は添付ファイルをJSONBカラム用に変換する。nilはNULLになる。
func encodeAttachment(a *model.Attachment) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(attachmentJSON{Name: a.Name, URL: a.URL, Type: a.Type})
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachment: %w", err)
	}
	return string(b), nil
}

// decodeAttachment はJSONBカラムの値を添付ファイルに変換する。NULLはnilになる。
func decodeAttachment(b []byte) (*model.Attachment, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var a attachmentJSON
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("failed to decode attachment: %w", err)
	}
	return &model.Attachment{Name: a.Name, URL: a.URL, Type: a.Type}, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
