package model

import "time"

// Attachment はメッセージに添付されたファイルへの参照。
type Attachment struct {
	Name string
	URL  string
	Type string // "image" または "pdf"
}

// Message は1対1チャットのメッセージを表す。
// ChatIDは送信者と受信者から導出され、保存後は変更されない。
type Message struct {
	ID        string // UUIDv7。同一タイムスタンプ内の到着順を表す
	ChatID    string
	Sender    string
	Recipient string
	Message   string
	File      *Attachment
	Timestamp time.Time
}

// ConversationSummary は相手ごとの最新メッセージの射影。
type ConversationSummary struct {
	Participant string
	LastMessage string
	Timestamp   time.Time
}

// ChatRoom はchatIdごとにまとめたメッセージ一覧。
type ChatRoom struct {
	ChatID   string
	Messages []Message
}
