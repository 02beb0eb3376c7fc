// Package auth はユーザー登録・ログイン、パスワードハッシュ、アクセストークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
)

// 認証試行のメトリクスラベル
const (
	actionRegister = "register"
	actionLogin    = "login"

	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// MetricsRecorder は認証試行の結果を記録するインターフェース。
type MetricsRecorder interface {
	RecordAuthAttempt(action, outcome string)
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Email      string
	Nickname   string
	Password   string
	RePassword string
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	AccessToken string
	Email       string
	Nickname    string
	AvatarURL   string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	DefaultAvatarURL string // アバター未設定時に返すURL
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   *TokenIssuer
	metrics  MetricsRecorder
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.DefaultAvatarURL == "" {
		config.DefaultAvatarURL = model.DefaultAvatarURL
	}
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  metrics,
		config:   config,
		now:      time.Now,
	}
}

// Register はユーザーを登録する。登録してもログイン状態にはならない。
// 検証は必須項目、パスワード確認、メールアドレス重複、パスワード長の順に行い、最初の失敗を返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	if missing := missingRegisterFields(in); len(missing) > 0 {
		s.record(actionRegister, outcomeRejected)
		return model.NewRequiredFieldsError(missing...)
	}
	if in.Password != in.RePassword {
		s.record(actionRegister, outcomeRejected)
		return model.NewPasswordMismatchError()
	}
	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		s.record(actionRegister, outcomeError)
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		s.record(actionRegister, outcomeRejected)
		return model.NewEmailAlreadyRegisteredError()
	}
	if len(in.Password) > MaxPasswordBytes {
		s.record(actionRegister, outcomeRejected)
		return model.NewPasswordTooLongError(MaxPasswordBytes)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.record(actionRegister, outcomeError)
		return err
	}

	user := &model.User{
		Email:        in.Email,
		Nickname:     in.Nickname,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.userRepo.Insert(ctx, user); err != nil {
		// 事前チェックと挿入の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.record(actionRegister, outcomeRejected)
			return model.NewEmailAlreadyRegisteredError()
		}
		s.record(actionRegister, outcomeError)
		return fmt.Errorf("failed to insert user: %w", err)
	}

	s.record(actionRegister, outcomeSuccess)
	slog.Info("user registered", slog.String("email", in.Email))
	return nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// ユーザー不在とパスワード不一致は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		s.record(actionLogin, outcomeRejected)
		return nil, model.NewInvalidCredentialsError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.record(actionLogin, outcomeError)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.record(actionLogin, outcomeRejected)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			s.record(actionLogin, outcomeRejected)
			return nil, model.NewInvalidCredentialsError()
		}
		s.record(actionLogin, outcomeError)
		return nil, err
	}

	token, err := s.tokens.Issue(user.Email, user.Nickname)
	if err != nil {
		s.record(actionLogin, outcomeError)
		return nil, err
	}

	s.record(actionLogin, outcomeSuccess)
	slog.Info("user logged in", slog.String("email", user.Email))
	return &LoginResult{
		AccessToken: token,
		Email:       user.Email,
		Nickname:    user.Nickname,
		AvatarURL:   user.AvatarOrDefault(s.config.DefaultAvatarURL),
	}, nil
}

// missingRegisterFields は空の必須項目をリクエストのフィールド名で返す。
func missingRegisterFields(in RegisterInput) []string {
	var missing []string
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Nickname == "" {
		missing = append(missing, "nickname")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.RePassword == "" {
		missing = append(missing, "rePassword")
	}
	return missing
}

func (s *Service) record(action, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(action, outcome)
	}
}
