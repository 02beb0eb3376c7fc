package handler

import (
	"context"
	"net/http"

	"github.com/ozxoz/chatapi/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Search はニックネームまたはメールアドレスの部分一致でユーザーを検索する。
	Search(ctx context.Context, query string) ([]model.UserSummary, error)
	// Profile はユーザーのアバターURLとニックネームを返す。
	Profile(ctx context.Context, email string) (*model.UserProfile, error)
}

// UserHandler はユーザー検索とプロフィール取得のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type userSummaryResponse struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type userProfileResponse struct {
	AvatarURL string `json:"avatarUrl"`
	Nickname  string `json:"nickname"`
}

// SearchUsers はユーザーを検索する。qが空の場合は全ユーザーを返す。
// GET /auth/users?q=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userSummaryResponse, len(users))
	for i, u := range users {
		resp[i] = userSummaryResponse{Email: u.Email, Nickname: u.Nickname}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUser はユーザーのプロフィールを返す。
// GET /auth/user?email=
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userProfileResponse{
		AvatarURL: profile.AvatarURL,
		Nickname:  profile.Nickname,
	})
}
