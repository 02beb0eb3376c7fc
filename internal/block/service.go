// Package block はユーザー間のブロック関係を管理する。
package block

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
)

// Service はブロック関係のサービス層。
type Service struct {
	blockRepo repository.BlockRepository
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(blockRepo repository.BlockRepository) *Service {
	return &Service{
		blockRepo: blockRepo,
		now:       time.Now,
	}
}

// Block はblockerがblockedをブロックする。既にブロック済みの場合はALREADY_BLOCKEDを返す。
func (s *Service) Block(ctx context.Context, blocker, blocked string) error {
	if blocker == "" || blocked == "" {
		return model.NewRequiredFieldsError(missing(blocker, blocked)...)
	}
	if blocker == blocked {
		return model.NewSelfBlockError()
	}

	exists, err := s.blockRepo.Exists(ctx, blocker, blocked)
	if err != nil {
		return fmt.Errorf("failed to check block: %w", err)
	}
	if exists {
		return model.NewAlreadyBlockedError()
	}

	err = s.blockRepo.Insert(ctx, &model.Block{
		Blocker:   blocker,
		Blocked:   blocked,
		Timestamp: s.now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicateKey) {
		return model.NewAlreadyBlockedError()
	}
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}

	slog.Info("user blocked",
		slog.String("blocker", blocker),
		slog.String("blocked", blocked),
	)
	return nil
}

// Unblock はブロックを解除する。ブロックしていない場合も成功する。
func (s *Service) Unblock(ctx context.Context, blocker, blocked string) error {
	if blocker == "" || blocked == "" {
		return model.NewRequiredFieldsError(missing(blocker, blocked)...)
	}

	if err := s.blockRepo.Delete(ctx, blocker, blocked); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	slog.Info("user unblocked",
		slog.String("blocker", blocker),
		slog.String("blocked", blocked),
	)
	return nil
}

// ListBlocked はblockerがブロックしているユーザーのメールアドレスを返す。
func (s *Service) ListBlocked(ctx context.Context, blocker string) ([]string, error) {
	if blocker == "" {
		return nil, model.NewParamRequiredError("blocker")
	}

	blocked, err := s.blockRepo.ListBlocked(ctx, blocker)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	return blocked, nil
}

// CheckPair はsenderからrecipientへの送信がブロックされていないかを確認する。
// senderがrecipientをブロックしている場合を先に判定する。
func (s *Service) CheckPair(ctx context.Context, sender, recipient string) error {
	blockedBySender, err := s.blockRepo.Exists(ctx, sender, recipient)
	if err != nil {
		return fmt.Errorf("failed to check block: %w", err)
	}
	if blockedBySender {
		return model.NewYouBlockedError(recipient)
	}

	blockedByRecipient, err := s.blockRepo.Exists(ctx, recipient, sender)
	if err != nil {
		return fmt.Errorf("failed to check block: %w", err)
	}
	if blockedByRecipient {
		return model.NewBlockedByError(recipient)
	}
	return nil
}

func missing(blocker, blocked string) []string {
	var fields []string
	if blocker == "" {
		fields = append(fields, "blocker")
	}
	if blocked == "" {
		fields = append(fields, "blocked")
	}
	return fields
}
