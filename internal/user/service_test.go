package user

import (
	"context"
	"errors"
	"testing"

	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	searchFn       func(ctx context.Context, query string) ([]model.UserSummary, error)
	findProfileFn  func(ctx context.Context, email string) (*model.UserProfile, error)
	updateAvatarFn func(ctx context.Context, email, avatarURL string) error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Insert(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) SearchByNicknameOrEmail(ctx context.Context, query string) ([]model.UserSummary, error) {
	return m.searchFn(ctx, query)
}
func (m *mockUserRepo) FindProfile(ctx context.Context, email string) (*model.UserProfile, error) {
	return m.findProfileFn(ctx, email)
}
func (m *mockUserRepo) UpdateAvatar(ctx context.Context, email, avatarURL string) error {
	return m.updateAvatarFn(ctx, email, avatarURL)
}

// --- Search ---

func TestSearch_TrimsQuery(t *testing.T) {
	var got string
	repo := &mockUserRepo{
		searchFn: func(_ context.Context, query string) ([]model.UserSummary, error) {
			got = query
			return []model.UserSummary{{Email: "alice@x", Nickname: "Alice"}}, nil
		},
	}
	svc := NewService(repo, "")

	users, err := svc.Search(context.Background(), "  ali ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ali" {
		t.Errorf("query = %q, want %q", got, "ali")
	}
	if len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
}

func TestSearch_RepoError(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &mockUserRepo{
		searchFn: func(_ context.Context, _ string) ([]model.UserSummary, error) {
			return nil, repoErr
		},
	}
	svc := NewService(repo, "")

	_, err := svc.Search(context.Background(), "a")
	if !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
	if err == nil || err.Error() != "failed to search users: db down" {
		t.Errorf("error = %v, want %q", err, "failed to search users: db down")
	}
}

func TestUpdateAvatar_RepoErrorIsWrapped(t *testing.T) {
	repo := &mockUserRepo{
		updateAvatarFn: func(_ context.Context, _, _ string) error {
			return errors.New("db down")
		},
	}
	svc := NewService(repo, "")

	err := svc.UpdateAvatar(context.Background(), "alice@x", "https://cdn/a.png")
	if err == nil || err.Error() != "failed to update avatar: db down" {
		t.Errorf("error = %v, want %q", err, "failed to update avatar: db down")
	}
}

// --- Profile ---

func TestProfile_EmptyEmail(t *testing.T) {
	svc := NewService(&mockUserRepo{}, "")

	_, err := svc.Profile(context.Background(), "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailRequired {
		t.Fatalf("expected EMAIL_REQUIRED, got %v", err)
	}
}

func TestProfile_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findProfileFn: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, "")

	_, err := svc.Profile(context.Background(), "ghost@x")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
}

func TestProfile_DefaultAvatar(t *testing.T) {
	repo := &mockUserRepo{
		findProfileFn: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return &model.UserProfile{Nickname: "Alice"}, nil
		},
	}

	tests := []struct {
		name          string
		defaultAvatar string
		want          string
	}{
		{"未設定時は組み込みのデフォルト", "", "./avatar.png"},
		{"設定値を優先", "https://cdn.example.com/default.png", "https://cdn.example.com/default.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(repo, tt.defaultAvatar)
			profile, err := svc.Profile(context.Background(), "alice@x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if profile.AvatarURL != tt.want {
				t.Errorf("AvatarURL = %q, want %q", profile.AvatarURL, tt.want)
			}
		})
	}
}

func TestProfile_StoredAvatar(t *testing.T) {
	repo := &mockUserRepo{
		findProfileFn: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return &model.UserProfile{AvatarURL: "https://cdn/a.png", Nickname: "Alice"}, nil
		},
	}
	svc := NewService(repo, "")

	profile, err := svc.Profile(context.Background(), "alice@x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.AvatarURL != "https://cdn/a.png" {
		t.Errorf("AvatarURL = %q, want stored avatar", profile.AvatarURL)
	}
}

// --- UpdateAvatar ---

func TestUpdateAvatar_UnknownUser(t *testing.T) {
	repo := &mockUserRepo{
		updateAvatarFn: func(_ context.Context, _, _ string) error {
			return repository.ErrNotFound
		},
	}
	svc := NewService(repo, "")

	err := svc.UpdateAvatar(context.Background(), "ghost@x", "https://cdn/a.png")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
}

func TestUpdateAvatar_Success(t *testing.T) {
	var gotEmail, gotURL string
	repo := &mockUserRepo{
		updateAvatarFn: func(_ context.Context, email, avatarURL string) error {
			gotEmail, gotURL = email, avatarURL
			return nil
		},
	}
	svc := NewService(repo, "")

	if err := svc.UpdateAvatar(context.Background(), "alice@x", "https://cdn/a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotEmail != "alice@x" || gotURL != "https://cdn/a.png" {
		t.Errorf("UpdateAvatar called with (%q, %q)", gotEmail, gotURL)
	}
}
