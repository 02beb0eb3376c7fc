// Package user はユーザーディレクトリ（検索・プロフィール・アバター）のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
)

// Service はユーザーディレクトリのサービス層。
type Service struct {
	userRepo         repository.UserRepository
	defaultAvatarURL string
}

// NewService はServiceの新しいインスタンスを生成する。
// defaultAvatarURLが空の場合はmodel.DefaultAvatarURLを使う。
func NewService(userRepo repository.UserRepository, defaultAvatarURL string) *Service {
	if defaultAvatarURL == "" {
		defaultAvatarURL = model.DefaultAvatarURL
	}
	return &Service{
		userRepo:         userRepo,
		defaultAvatarURL: defaultAvatarURL,
	}
}

// Search はニックネームまたはメールアドレスにqueryを含むユーザーを返す。
// queryは前後の空白を除去して大文字小文字を区別せず照合する。空文字は全ユーザーに一致する。
func (s *Service) Search(ctx context.Context, query string) ([]model.UserSummary, error) {
	users, err := s.userRepo.SearchByNicknameOrEmail(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// Profile はユーザーのアバターURLとニックネームを返す。
// アバター未設定の場合はデフォルトのアバターURLを返す。
func (s *Service) Profile(ctx context.Context, email string) (*model.UserProfile, error) {
	if email == "" {
		return nil, model.NewEmailRequiredError()
	}

	profile, err := s.userRepo.FindProfile(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}

	if profile.AvatarURL == "" {
		profile.AvatarURL = s.defaultAvatarURL
	}
	return profile, nil
}

// UpdateAvatar はユーザーのアバターURLを更新する。
func (s *Service) UpdateAvatar(ctx context.Context, email, avatarURL string) error {
	if err := s.userRepo.UpdateAvatar(ctx, email, avatarURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("failed to update avatar: %w", err)
	}

	slog.Info("avatar updated",
		slog.String("email", email),
	)
	return nil
}
