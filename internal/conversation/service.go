// Package conversation はチャットルームIDの導出、会話一覧、メッセージ送信のドメインロジックを提供する。
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
)

// ChatID は2人の参加者から対称なチャットルームIDを導出する。
// 参加者を辞書順に並べて"_"で連結するため、ChatID(a, b) == ChatID(b, a)となる。
// a == bの場合は"a_a"になる。
func ChatID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// BlockChecker は送信者と受信者の間のブロック関係を確認するインターフェース。
type BlockChecker interface {
	CheckPair(ctx context.Context, sender, recipient string) error
}

// MetricsRecorder はメッセージ送信数を記録するインターフェース。
type MetricsRecorder interface {
	RecordMessageSent(withFile bool)
}

// SendInput はメッセージ送信の入力。送信者は認証済みユーザーから決まる。
type SendInput struct {
	Recipient string
	Message   string
	File      *model.Attachment
}

// Service は会話に関するサービス層。
type Service struct {
	messageRepo repository.MessageRepository
	blocks      BlockChecker
	metrics     MetricsRecorder
	now         func() time.Time
	newID       func() (uuid.UUID, error)
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(messageRepo repository.MessageRepository, blocks BlockChecker, metrics MetricsRecorder) *Service {
	return &Service{
		messageRepo: messageRepo,
		blocks:      blocks,
		metrics:     metrics,
		now:         time.Now,
		newID:       uuid.NewV7,
	}
}

// ListLastMessages はemailの会話相手ごとの最新メッセージを新しい順に返す。
func (s *Service) ListLastMessages(ctx context.Context, email string) ([]model.ConversationSummary, error) {
	if email == "" {
		return nil, model.NewEmailRequiredError()
	}

	summaries, err := s.messageRepo.AggregateLastPerCounterpart(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return summaries, nil
}

// ListGrouped はemailが関わるメッセージをチャットルームごとにまとめて返す。
func (s *Service) ListGrouped(ctx context.Context, email string) ([]model.ChatRoom, error) {
	if email == "" {
		return nil, model.NewEmailRequiredError()
	}

	rooms, err := s.messageRepo.AggregateGroupedByChatID(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat rooms: %w", err)
	}
	return rooms, nil
}

// ListRoom はチャットルームのメッセージを古い順に返す。存在しないルームは空になる。
func (s *Service) ListRoom(ctx context.Context, chatID string) ([]model.Message, error) {
	messages, err := s.messageRepo.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// ListBetween はemailとrecipientの間のメッセージを古い順に返す。
func (s *Service) ListBetween(ctx context.Context, email, recipient string) ([]model.Message, error) {
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if recipient == "" {
		missing = append(missing, "recipient")
	}
	if len(missing) > 0 {
		return nil, model.NewRequiredFieldsError(missing...)
	}

	return s.ListRoom(ctx, ChatID(email, recipient))
}

// Send はsenderからrecipientへのメッセージを保存する。
// 本文は添付ファイルがある場合のみ省略できる。どちらかがブロックしている場合はBLOCKEDを返す。
func (s *Service) Send(ctx context.Context, sender string, in SendInput) (*model.Message, error) {
	if missing := missingSendFields(in); len(missing) > 0 {
		return nil, model.NewRequiredFieldsError(missing...)
	}

	if err := s.blocks.CheckPair(ctx, sender, in.Recipient); err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	msg := &model.Message{
		ID:        id.String(),
		ChatID:    ChatID(sender, in.Recipient),
		Sender:    sender,
		Recipient: in.Recipient,
		Message:   in.Message,
		File:      in.File,
		Timestamp: s.now().UTC(),
	}
	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordMessageSent(msg.File != nil)
	}
	slog.Debug("message saved",
		slog.String("chat_id", msg.ChatID),
		slog.String("message_id", msg.ID),
	)
	return msg, nil
}

// missingSendFields は欠けている項目をリクエストのフィールド名で返す。
func missingSendFields(in SendInput) []string {
	var missing []string
	if in.Recipient == "" {
		missing = append(missing, "recipient")
	}
	if in.File != nil {
		if in.File.URL == "" {
			missing = append(missing, "file.url")
		}
	} else if strings.TrimSpace(in.Message) == "" {
		missing = append(missing, "message")
	}
	return missing
}
