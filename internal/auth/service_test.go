package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	insertFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Insert(ctx context.Context, user *model.User) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) SearchByNicknameOrEmail(_ context.Context, _ string) ([]model.UserSummary, error) {
	return nil, nil
}

func (m *mockUserRepo) FindProfile(_ context.Context, _ string) (*model.UserProfile, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateAvatar(_ context.Context, _, _ string) error {
	return nil
}

// memoryUserRepo は登録からログインまでを通しで検証するためのインメモリ実装。
type memoryUserRepo struct {
	mockUserRepo
	users map[string]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	r := &memoryUserRepo{users: map[string]*model.User{}}
	r.findByEmailFn = func(_ context.Context, email string) (*model.User, error) {
		return r.users[email], nil
	}
	r.insertFn = func(_ context.Context, user *model.User) error {
		if _, ok := r.users[user.Email]; ok {
			return repository.ErrDuplicateKey
		}
		r.users[user.Email] = user
		return nil
	}
	return r
}

type recordedAttempt struct{ action, outcome string }

type mockRecorder struct {
	attempts []recordedAttempt
}

func (m *mockRecorder) RecordAuthAttempt(action, outcome string) {
	m.attempts = append(m.attempts, recordedAttempt{action, outcome})
}

func newTestService(repo repository.UserRepository, rec MetricsRecorder) *Service {
	return NewService(
		repo,
		NewBcryptHasher(bcrypt.MinCost),
		NewTokenIssuer("test-secret", time.Hour),
		rec,
		ServiceConfig{},
	)
}

func validInput() RegisterInput {
	return RegisterInput{Email: "a@x.com", Nickname: "A", Password: "p", RePassword: "p"}
}

// --- Register ---

func TestRegister_Success_StoresHashNotPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo, nil)

	require.NoError(t, svc.Register(context.Background(), validInput()))

	stored := repo.users["a@x.com"]
	require.NotNil(t, stored)
	assert.Equal(t, "A", stored.Nickname)
	assert.NotEqual(t, "p", stored.PasswordHash)
	assert.Empty(t, stored.AvatarURL)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("p")))
}

func TestRegister_MissingFields_EnumeratesInOrder(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)

	err := svc.Register(context.Background(), RegisterInput{Nickname: "A", RePassword: "p"})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeValidationFailed, apiErr.Code)
	assert.Equal(t, "All fields are required", apiErr.Message)
	assert.Equal(t, []string{"email", "password"}, apiErr.Fields)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)

	in := validInput()
	in.RePassword = "q"
	err := svc.Register(context.Background(), in)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodePasswordMismatch, apiErr.Code)
	assert.Equal(t, "Passwords do not match", apiErr.Message)
}

func TestRegister_MissingFieldsCheckedBeforeMismatch(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)

	err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p", RePassword: "q"})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeValidationFailed, apiErr.Code)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)

	long := strings.Repeat("x", MaxPasswordBytes+1)
	err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Nickname: "A", Password: long, RePassword: long})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"password"}, apiErr.Fields)
}

func TestRegister_LongPasswordForExistingEmailYieldsConflict(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo, nil)
	require.NoError(t, svc.Register(context.Background(), validInput()))

	in := validInput()
	in.Password = strings.Repeat("x", MaxPasswordBytes+1)
	in.RePassword = in.Password
	err := svc.Register(context.Background(), in)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeEmailAlreadyRegistered, apiErr.Code)
}

func TestRegister_TwiceYieldsConflict(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)

	require.NoError(t, svc.Register(context.Background(), validInput()))
	err := svc.Register(context.Background(), validInput())

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeEmailAlreadyRegistered, apiErr.Code)
	assert.Equal(t, "Email already registered", apiErr.Message)
}

func TestRegister_DuplicateKeyOnInsertYieldsConflict(t *testing.T) {
	repo := &mockUserRepo{
		insertFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateKey
		},
	}
	svc := newTestService(repo, nil)

	err := svc.Register(context.Background(), validInput())

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeEmailAlreadyRegistered, apiErr.Code)
}

func TestRegister_StoreErrorIsWrapped(t *testing.T) {
	storeErr := errors.New("connection refused")
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, storeErr
		},
	}
	svc := newTestService(repo, nil)

	err := svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, storeErr)

	var apiErr *model.APIError
	assert.False(t, errors.As(err, &apiErr))
}

// --- Login ---

func TestLogin_Success_ReturnsTokenAndDefaultAvatar(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)
	require.NoError(t, svc.Register(context.Background(), validInput()))

	res, err := svc.Login(context.Background(), "a@x.com", "p")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.Email)
	assert.Equal(t, "A", res.Nickname)
	assert.Equal(t, "./avatar.png", res.AvatarURL)

	identity, err := svc.tokens.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, &Identity{Email: "a@x.com", Nickname: "A"}, identity)
}

func TestLogin_ReturnsStoredAvatar(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := newTestService(repo, nil)
	require.NoError(t, svc.Register(context.Background(), validInput()))
	repo.users["a@x.com"].AvatarURL = "https://cdn.example.com/avatars/a.png"

	res, err := svc.Login(context.Background(), "a@x.com", "p")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/a.png", res.AvatarURL)
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	svc := newTestService(newMemoryUserRepo(), nil)
	require.NoError(t, svc.Register(context.Background(), validInput()))

	_, wrongPassword := svc.Login(context.Background(), "a@x.com", "wrong")
	_, unknownEmail := svc.Login(context.Background(), "nobody@x.com", "p")

	var e1, e2 *model.APIError
	require.ErrorAs(t, wrongPassword, &e1)
	require.ErrorAs(t, unknownEmail, &e2)
	assert.Equal(t, e1, e2)
	assert.Equal(t, "Invalid credentials", e1.Message)
}

func TestLogin_EmptyFieldsRejectedWithoutLookup(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			t.Fatal("store must not be queried")
			return nil, nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.Login(context.Background(), "", "")

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeInvalidCredentials, apiErr.Code)
}

func TestService_RecordsAuthAttempts(t *testing.T) {
	rec := &mockRecorder{}
	svc := newTestService(newMemoryUserRepo(), rec)

	_ = svc.Register(context.Background(), validInput())
	_ = svc.Register(context.Background(), validInput())
	_, _ = svc.Login(context.Background(), "a@x.com", "wrong")
	_, _ = svc.Login(context.Background(), "a@x.com", "p")

	assert.Equal(t, []recordedAttempt{
		{"register", "success"},
		{"register", "rejected"},
		{"login", "rejected"},
		{"login", "success"},
	}, rec.attempts)
}
