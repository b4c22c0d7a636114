// Command fletnix はカタログAPIサーバーと運用サブコマンドを提供する。
//
//	fletnix [serve]          APIサーバーを起動する
//	fletnix migrate [up]     マイグレーションを適用する
//	fletnix migrate status   適用済みのバージョンを表示する
//	fletnix import <path>    CSVからカタログを取り込む
//	fletnix healthcheck      /healthの疎通を確認する
//	fletnix help             使い方を表示する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/fletnix/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fletnix: %v\n", err)
		os.Exit(1)
	}
}
