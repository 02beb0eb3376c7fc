package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ozxoz/chatapi/internal/model"
)

// PostgresBlockRepo はPostgreSQLを使用したブロック関係リポジトリ。
type PostgresBlockRepo struct {
	db *sql.DB
}

// NewPostgresBlockRepo はPostgresBlockRepoを生成する。
func NewPostgresBlockRepo(db *sql.DB) *PostgresBlockRepo {
	return &PostgresBlockRepo{db: db}
}

// Exists はblockerがblockedをブロックしているかを返す。
func (r *PostgresBlockRepo) Exists(ctx context.Context, blocker, blocked string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_users WHERE blocker = $1 AND blocked = $2)`,
		blocker, blocked,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return exists, nil
}

// Insert はブロック関係を作成する。
func (r *PostgresBlockRepo) Insert(ctx context.Context, block *model.Block) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blocked_users (blocker, blocked, created_at) VALUES ($1, $2, $3)`,
		block.Blocker, block.Blocked, block.Timestamp,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}

// Delete はブロック関係を削除する。
func (r *PostgresBlockRepo) Delete(ctx context.Context, blocker, blocked string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_users WHERE blocker = $1 AND blocked = $2`,
		blocker, blocked,
	)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// ListBlocked はblockerがブロックしているユーザーをブロックした順に返す。
func (r *PostgresBlockRepo) ListBlocked(ctx context.Context, blocker string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT blocked FROM blocked_users WHERE blocker = $1 ORDER BY created_at ASC`,
		blocker,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	defer rows.Close()

	blocked := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan blocked user: %w", err)
		}
		blocked = append(blocked, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocked users: %w", err)
	}
	return blocked, nil
}

// compile-time interface check
var _ BlockRepository = (*PostgresBlockRepo)(nil)
