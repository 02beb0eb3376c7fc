package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/ozxoz/chatapi/internal/model"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var avatarURL sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT email, nickname, password_hash, avatar_url, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.Email, &user.Nickname, &user.PasswordHash, &avatarURL, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	user.AvatarURL = avatarURL.String
	return user, nil
}

// Insert はユーザーを作成する。avatar_urlは設定しない。
func (r *PostgresUserRepo) Insert(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, nickname, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		user.Email, user.Nickname, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// SearchByNicknameOrEmail はニックネームまたはメールアドレスの部分一致でユーザーを検索する。
func (r *PostgresUserRepo) SearchByNicknameOrEmail(ctx context.Context, query string) ([]model.UserSummary, error) {
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.db.QueryContext(ctx,
		`SELECT email, nickname FROM users
		 WHERE nickname ILIKE $1 OR email ILIKE $1
		 ORDER BY email`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []model.UserSummary{}
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.Email, &u.Nickname); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// FindProfile はアバターURLとニックネームを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindProfile(ctx context.Context, email string) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	var avatarURL sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT avatar_url, nickname FROM users WHERE email = $1`,
		email,
	).Scan(&avatarURL, &profile.Nickname)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}

	profile.AvatarURL = avatarURL.String
	return profile, nil
}

// UpdateAvatar はアバターURLを更新する。
func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, email, avatarURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_url = $2 WHERE email = $1`,
		email, avatarURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// escapeLike はLIKE/ILIKEのメタ文字をエスケープし、リテラルの部分一致にする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
