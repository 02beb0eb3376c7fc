package block

import (
	"context"
	"errors"
	"testing"

	"github.com/ozxoz/chatapi/internal/model"
	"github.com/ozxoz/chatapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct{ blocker, blocked string }

// memoryBlockRepo はBlockRepositoryのインメモリ実装。
type memoryBlockRepo struct {
	pairs     []pair
	insertErr error
	existsErr error
}

func (m *memoryBlockRepo) Exists(_ context.Context, blocker, blocked string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, p := range m.pairs {
		if p == (pair{blocker, blocked}) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBlockRepo) Insert(_ context.Context, b *model.Block) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.pairs = append(m.pairs, pair{b.Blocker, b.Blocked})
	return nil
}

func (m *memoryBlockRepo) Delete(_ context.Context, blocker, blocked string) error {
	kept := m.pairs[:0]
	for _, p := range m.pairs {
		if p != (pair{blocker, blocked}) {
			kept = append(kept, p)
		}
	}
	m.pairs = kept
	return nil
}

func (m *memoryBlockRepo) ListBlocked(_ context.Context, blocker string) ([]string, error) {
	out := []string{}
	for _, p := range m.pairs {
		if p.blocker == blocker {
			out = append(out, p.blocked)
		}
	}
	return out, nil
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Code
}

func TestBlock_ThenListAndUnblock(t *testing.T) {
	repo := &memoryBlockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Block(ctx, "a@x", "b@x"))

	list, err := svc.ListBlocked(ctx, "a@x")
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x"}, list)

	require.NoError(t, svc.Unblock(ctx, "a@x", "b@x"))
	require.NoError(t, svc.Unblock(ctx, "a@x", "b@x"), "unblock must be idempotent")

	list, err = svc.ListBlocked(ctx, "a@x")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBlock_AlreadyBlocked(t *testing.T) {
	svc := NewService(&memoryBlockRepo{pairs: []pair{{"a@x", "b@x"}}})

	err := svc.Block(context.Background(), "a@x", "b@x")
	assert.Equal(t, model.ErrCodeAlreadyBlocked, apiCode(t, err))
}

func TestBlock_DuplicateKeyRace(t *testing.T) {
	svc := NewService(&memoryBlockRepo{insertErr: repository.ErrDuplicateKey})

	err := svc.Block(context.Background(), "a@x", "b@x")
	assert.Equal(t, model.ErrCodeAlreadyBlocked, apiCode(t, err))
}

func TestBlock_Validation(t *testing.T) {
	svc := NewService(&memoryBlockRepo{})

	tests := []struct {
		name             string
		blocker, blocked string
		wantFields       []string
	}{
		{"blockedなし", "a@x", "", []string{"blocked"}},
		{"両方なし", "", "", []string{"blocker", "blocked"}},
		{"自分自身", "a@x", "a@x", []string{"blocked"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Block(context.Background(), tt.blocker, tt.blocked)
			var apiErr *model.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, model.ErrCodeValidationFailed, apiErr.Code)
			assert.Equal(t, tt.wantFields, apiErr.Fields)
		})
	}
}

func TestListBlocked_RequiresBlocker(t *testing.T) {
	svc := NewService(&memoryBlockRepo{})

	_, err := svc.ListBlocked(context.Background(), "")
	assert.Equal(t, model.ErrCodeValidationFailed, apiCode(t, err))
}

func TestCheckPair(t *testing.T) {
	ctx := context.Background()

	t.Run("ブロックなし", func(t *testing.T) {
		svc := NewService(&memoryBlockRepo{})
		assert.NoError(t, svc.CheckPair(ctx, "a@x", "b@x"))
	})

	t.Run("送信者がブロック", func(t *testing.T) {
		svc := NewService(&memoryBlockRepo{pairs: []pair{{"a@x", "b@x"}}})
		err := svc.CheckPair(ctx, "a@x", "b@x")
		var apiErr *model.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, model.ErrCodeBlocked, apiErr.Code)
		assert.Equal(t, "You have blocked b@x. Unblock them to send messages.", apiErr.Message)
	})

	t.Run("受信者がブロック", func(t *testing.T) {
		svc := NewService(&memoryBlockRepo{pairs: []pair{{"b@x", "a@x"}}})
		err := svc.CheckPair(ctx, "a@x", "b@x")
		var apiErr *model.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "You are blocked by b@x.", apiErr.Message)
	})

	t.Run("ストアエラー", func(t *testing.T) {
		storeErr := errors.New("db down")
		svc := NewService(&memoryBlockRepo{existsErr: storeErr})
		assert.ErrorIs(t, svc.CheckPair(ctx, "a@x", "b@x"), storeErr)
	})
}
