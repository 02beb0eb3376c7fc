package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/ozxoz/chatapi/internal/auth"
	"github.com/ozxoz/chatapi/internal/conversation"
	"github.com/ozxoz/chatapi/internal/middleware"
	"github.com/ozxoz/chatapi/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) error
	loginFn    func(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

type mockUserService struct {
	searchFn  func(ctx context.Context, query string) ([]model.UserSummary, error)
	profileFn func(ctx context.Context, email string) (*model.UserProfile, error)
}

func (m *mockUserService) Search(ctx context.Context, query string) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, nil
}

func (m *mockUserService) Profile(ctx context.Context, email string) (*model.UserProfile, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, email)
	}
	return nil, model.NewUserNotFoundError()
}

type mockConversationService struct {
	lastFn    func(ctx context.Context, email string) ([]model.ConversationSummary, error)
	groupedFn func(ctx context.Context, email string) ([]model.ChatRoom, error)
	roomFn    func(ctx context.Context, chatID string) ([]model.Message, error)
	betweenFn func(ctx context.Context, email, recipient string) ([]model.Message, error)
	sendFn    func(ctx context.Context, sender string, in conversation.SendInput) (*model.Message, error)
}

func (m *mockConversationService) ListLastMessages(ctx context.Context, email string) ([]model.ConversationSummary, error) {
	if m.lastFn != nil {
		return m.lastFn(ctx, email)
	}
	return nil, nil
}

func (m *mockConversationService) ListGrouped(ctx context.Context, email string) ([]model.ChatRoom, error) {
	if m.groupedFn != nil {
		return m.groupedFn(ctx, email)
	}
	return nil, nil
}

func (m *mockConversationService) ListRoom(ctx context.Context, chatID string) ([]model.Message, error) {
	if m.roomFn != nil {
		return m.roomFn(ctx, chatID)
	}
	return nil, nil
}

func (m *mockConversationService) ListBetween(ctx context.Context, email, recipient string) ([]model.Message, error) {
	if m.betweenFn != nil {
		return m.betweenFn(ctx, email, recipient)
	}
	return nil, nil
}

func (m *mockConversationService) Send(ctx context.Context, sender string, in conversation.SendInput) (*model.Message, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, sender, in)
	}
	return &model.Message{Sender: sender, Recipient: in.Recipient, Message: in.Message}, nil
}

type mockBlockService struct {
	blockFn   func(ctx context.Context, blocker, blocked string) error
	unblockFn func(ctx context.Context, blocker, blocked string) error
	listFn    func(ctx context.Context, blocker string) ([]string, error)
}

func (m *mockBlockService) Block(ctx context.Context, blocker, blocked string) error {
	if m.blockFn != nil {
		return m.blockFn(ctx, blocker, blocked)
	}
	return nil
}

func (m *mockBlockService) Unblock(ctx context.Context, blocker, blocked string) error {
	if m.unblockFn != nil {
		return m.unblockFn(ctx, blocker, blocked)
	}
	return nil
}

func (m *mockBlockService) ListBlocked(ctx context.Context, blocker string) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, blocker)
	}
	return nil, nil
}

type mockAttachmentService struct {
	uploadAvatarFn func(ctx context.Context, email string, r io.Reader) (string, error)
	uploadFileFn   func(ctx context.Context, filename string, r io.Reader) (*model.Attachment, error)
}

func (m *mockAttachmentService) UploadAvatar(ctx context.Context, email string, r io.Reader) (string, error) {
	if m.uploadAvatarFn != nil {
		return m.uploadAvatarFn(ctx, email, r)
	}
	return "", nil
}

func (m *mockAttachmentService) UploadFile(ctx context.Context, filename string, r io.Reader) (*model.Attachment, error) {
	if m.uploadFileFn != nil {
		return m.uploadFileFn(ctx, filename, r)
	}
	return &model.Attachment{}, nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(_ context.Context) error {
	return m.err
}

// withIdentity はトークンミドルウェアを通過した状態のリクエストを作る。
func withIdentity(req *http.Request, email string) *http.Request {
	ctx := middleware.ContextWithIdentity(req.Context(), &auth.Identity{Email: email, Nickname: email})
	return req.WithContext(ctx)
}
