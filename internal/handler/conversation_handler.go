package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ozxoz/chatapi/internal/conversation"
	"github.com/ozxoz/chatapi/internal/model"
)

// ConversationServiceInterface は会話ハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	ListLastMessages(ctx context.Context, email string) ([]model.ConversationSummary, error)
	ListGrouped(ctx context.Context, email string) ([]model.ChatRoom, error)
	ListRoom(ctx context.Context, chatID string) ([]model.Message, error)
	ListBetween(ctx context.Context, email, recipient string) ([]model.Message, error)
	Send(ctx context.Context, sender string, in conversation.SendInput) (*model.Message, error)
}

// ConversationHandler は会話一覧とメッセージ送信のHTTPハンドラー。
type ConversationHandler struct {
	service ConversationServiceInterface
}

// NewConversationHandler はConversationHandlerを生成する。
func NewConversationHandler(service ConversationServiceInterface) *ConversationHandler {
	return &ConversationHandler{
		service: service,
	}
}

type attachmentBody struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Recipient string          `json:"recipient"`
	Message   string          `json:"message"`
	File      *attachmentBody `json:"file"`
}

// chatMessageResponse はメッセージのAPIレスポンス。
type chatMessageResponse struct {
	ID        string          `json:"id"`
	ChatID    string          `json:"chatId"`
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Message   string          `json:"message"`
	File      *attachmentBody `json:"file,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// conversationSummaryResponse は相手ごとの最新メッセージのAPIレスポンス。
type conversationSummaryResponse struct {
	Participant string    `json:"participant"`
	LastMessage string    `json:"lastMessage"`
	Timestamp   time.Time `json:"timestamp"`
}

// chatRoomResponse はチャットルームごとのメッセージ一覧のAPIレスポンス。
type chatRoomResponse struct {
	ChatID   string                `json:"chatId"`
	Messages []chatMessageResponse `json:"messages"`
}

// ListConversations は会話相手ごとの最新メッセージを返す。
// GET /auth/conversations?email=
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListLastMessages(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]conversationSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = conversationSummaryResponse{
			Participant: s.Participant,
			LastMessage: s.LastMessage,
			Timestamp:   s.Timestamp,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAllConversations はチャットルームごとにまとめたメッセージを返す。
// GET /auth/all_conversations?email=
func (h *ConversationHandler) ListAllConversations(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListGrouped(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]chatRoomResponse, len(rooms))
	for i, room := range rooms {
		resp[i] = chatRoomResponse{
			ChatID:   room.ChatID,
			Messages: toMessageResponses(room.Messages),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRoomMessages はチャットルームのメッセージを古い順に返す。
// GET /auth/chat/messages/{chatId}
func (h *ConversationHandler) ListRoomMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListRoom(r.Context(), chi.URLParam(r, "chatId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(messages))
}

// ListMessagesBetween は2人の間のメッセージを古い順に返す。
// GET /auth/messages?email=&recipient=
func (h *ConversationHandler) ListMessagesBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	messages, err := h.service.ListBetween(r.Context(), q.Get("email"), q.Get("recipient"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(messages))
}

// SendMessage は認証済みユーザーからのメッセージを保存する。
// POST /auth/chat/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := conversation.SendInput{
		Recipient: req.Recipient,
		Message:   req.Message,
	}
	if req.File != nil {
		in.File = &model.Attachment{Name: req.File.Name, URL: req.File.URL, Type: req.File.Type}
	}

	msg, err := h.service.Send(r.Context(), identity.Email, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(*msg))
}

func toMessageResponses(messages []model.Message) []chatMessageResponse {
	resp := make([]chatMessageResponse, len(messages))
	for i, m := range messages {
		resp[i] = toMessageResponse(m)
	}
	return resp
}

func toMessageResponse(m model.Message) chatMessageResponse {
	resp := chatMessageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Message:   m.Message,
		Timestamp: m.Timestamp,
	}
	if m.File != nil {
		resp.File = &attachmentBody{Name: m.File.Name, URL: m.File.URL, Type: m.File.Type}
	}
	return resp
}
