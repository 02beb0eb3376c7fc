package handler

import (
	"context"
	"net/http"
)

// BlockServiceInterface はブロックハンドラーが必要とするサービスインターフェース。
type BlockServiceInterface interface {
	Block(ctx context.Context, blocker, blocked string) error
	Unblock(ctx context.Context, blocker, blocked string) error
	ListBlocked(ctx context.Context, blocker string) ([]string, error)
}

// BlockHandler はユーザーブロックのHTTPハンドラー。
type BlockHandler struct {
	service BlockServiceInterface
}

// NewBlockHandler はBlockHandlerを生成する。
func NewBlockHandler(service BlockServiceInterface) *BlockHandler {
	return &BlockHandler{
		service: service,
	}
}

// blockRequest はブロック・解除リクエストのボディ。ブロックする側は認証済みユーザー。
type blockRequest struct {
	Blocked string `json:"blocked"`
}

type blockedUsersResponse struct {
	BlockedUsers []string `json:"blockedUsers"`
}

// Block は認証済みユーザーが相手をブロックする。
// POST /block
func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req blockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Block(r.Context(), identity.Email, req.Blocked); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User blocked successfully."})
}

// Unblock はブロックを解除する。
// POST /block/unblock
func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req blockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Unblock(r.Context(), identity.Email, req.Blocked); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User unblocked successfully."})
}

// ListBlocked はblockerがブロックしているユーザーを返す。
// GET /block/is-blocked?blocker=
func (h *BlockHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	blocked, err := h.service.ListBlocked(r.Context(), r.URL.Query().Get("blocker"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if blocked == nil {
		blocked = []string{}
	}

	writeJSON(w, http.StatusOK, blockedUsersResponse{BlockedUsers: blocked})
}
