// Command chatapi はチャットAPIサーバーを起動する。
//
//	chatapi serve        APIサーバー（デフォルト）
//	chatapi migrate      スキーマの適用
//	chatapi healthcheck  コンテナ用のヘルスチェック
package main

import (
	"fmt"
	"os"

	"github.com/ozxoz/chatapi/internal/app"
)

func main() {
	if err := app.Run(nil, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
