// Package repository はデータ永続化のインターフェースとPostgreSQL/MongoDB実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/ozxoz/chatapi/internal/model"
)

var (
	// ErrDuplicateKey は一意制約違反（同一メールアドレスの二重登録など）を表す。
	// ストア側で原子的に検出されるため、サービス層の事前チェックより優先される。
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound は更新対象が存在しないことを表す。
	ErrNotFound = errors.New("not found")
)

// UserRepository はユーザーデータ（Credential Store）の永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Insert はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateKeyを返す。
	Insert(ctx context.Context, user *model.User) error

	// SearchByNicknameOrEmail はニックネームまたはメールアドレスに
	// queryを大文字小文字を区別せず部分一致で含むユーザーを返す。
	// queryは正規表現・LIKEパターンではなくリテラルとして扱う。空文字は全件に一致する。
	SearchByNicknameOrEmail(ctx context.Context, query string) ([]model.UserSummary, error)

	// FindProfile はアバターURLとニックネームを取得する。見つからない場合はnilを返す。
	FindProfile(ctx context.Context, email string) (*model.UserProfile, error)

	// UpdateAvatar はアバターURLを更新する。ユーザーが存在しない場合はErrNotFoundを返す。
	UpdateAvatar(ctx context.Context, email, avatarURL string) error
}

// MessageRepository はメッセージデータ（Message Store）の永続化インターフェース。
type MessageRepository interface {
	// Insert はメッセージを保存する。
	Insert(ctx context.Context, msg *model.Message) error

	// FindByChatID はchatIdのメッセージをタイムスタンプ昇順（同時刻は到着順）で返す。
	FindByChatID(ctx context.Context, chatID string) ([]model.Message, error)

	// AggregateLastPerCounterpart はemailが送信者または受信者のメッセージを相手ごとにまとめ、
	// 各相手の最新メッセージをタイムスタンプ降順で返す。
	AggregateLastPerCounterpart(ctx context.Context, email string) ([]model.ConversationSummary, error)

	// AggregateGroupedByChatID はemailが関わるメッセージをchatIdごとにまとめて返す。
	// ルームはchatId順、ルーム内のメッセージはタイムスタンプ昇順。
	AggregateGroupedByChatID(ctx context.Context, email string) ([]model.ChatRoom, error)
}

// BlockRepository はブロック関係の永続化インターフェース。
type BlockRepository interface {
	// Exists はblockerがblockedをブロックしているかを返す。
	Exists(ctx context.Context, blocker, blocked string) (bool, error)

	// Insert はブロック関係を作成する。既に存在する場合はErrDuplicateKeyを返す。
	Insert(ctx context.Context, block *model.Block) error

	// Delete はブロック関係を削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, blocker, blocked string) error

	// ListBlocked はblockerがブロックしているユーザーのメールアドレスを返す。
	ListBlocked(ctx context.Context, blocker string) ([]string, error)
}

// Stores はリポジトリ実装一式と、その接続のライフサイクル操作をまとめる。
type Stores struct {
	Users    UserRepository
	Messages MessageRepository
	Blocks   BlockRepository

	// Ping はヘルスチェック用の疎通確認を行う。
	Ping func(ctx context.Context) error
	// Close は接続を閉じる。
	Close func(ctx context.Context) error
}

// PingContext はStoresをヘルスチェッカーとして利用するためのメソッド。
func (s *Stores) PingContext(ctx context.Context) error {
	return s.Ping(ctx)
}
