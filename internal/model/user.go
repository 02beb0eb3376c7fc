// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultAvatarURL はアバター未設定ユーザーに返すアバターURL。
const DefaultAvatarURL = "./avatar.png"

// User はチャットの利用ユーザーを表す。
// Emailが一意キー。PasswordHashはクライアントに返さない。
type User struct {
	Email        string
	Nickname     string
	PasswordHash string
	AvatarURL    string // 未設定の場合は空文字
	CreatedAt    time.Time
}

// AvatarOrDefault は設定済みのアバターURL、未設定ならdefaultURLを返す。
func (u *User) AvatarOrDefault(defaultURL string) string {
	if u.AvatarURL == "" {
		return defaultURL
	}
	return u.AvatarURL
}

// UserSummary はユーザー検索結果の射影。
type UserSummary struct {
	Email    string
	Nickname string
}

// UserProfile はユーザー情報取得の射影。
type UserProfile struct {
	AvatarURL string
	Nickname  string
}

// Block はユーザー間のブロック関係を表す。
type Block struct {
	Blocker   string
	Blocked   string
	Timestamp time.Time
}
