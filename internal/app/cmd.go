package app

// Command はchatapiバイナリのサブコマンド。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの場合もこれになる。
	CommandServe Command = "serve"
	// CommandMigrate はスキーマ（PostgreSQLのマイグレーションまたはMongoDBのインデックス）を適用する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーの/healthを確認する。
	// distrolessコンテナのHEALTHCHECK用で、設定の読み込みもストア接続も行わない。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 空または未知のサブコマンドはCommandServeになる。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}

// NeedsConfig はサブコマンドが環境変数の設定とストアを必要とするかを返す。
func (c Command) NeedsConfig() bool {
	return c != CommandHealthcheck
}
