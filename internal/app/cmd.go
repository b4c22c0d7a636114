package app

import (
	"fmt"
	"io"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	// 続く引数で up（既定）または status を指定する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandImport はCSVファイルからカタログを取り込むことを示す。
	CommandImport Command = "import"
	// CommandHelp は使い方を表示することを示す。
	CommandHelp Command = "help"
)

const usage = `usage: fletnix <command> [args]

commands:
  serve                 start the catalog API server (default)
  migrate [up|status]   apply or inspect database migrations
  import <path>         import a Netflix-format catalog CSV
  healthcheck           check /health on SERVER_PORT
  help                  show this message
`

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	case "import":
		return CommandImport
	case "help", "-h", "--help":
		return CommandHelp
	default:
		return CommandServe
	}
}

// writeUsage は使い方を出力する。
func writeUsage(w io.Writer) error {
	_, err := fmt.Fprint(w, usage)
	return err
}

// commandArg はサブコマンドに続くi番目の引数を返す。存在しない場合は空文字列。
func commandArg(args []string, i int) string {
	if len(args) <= i+1 {
		return ""
	}
	return args[i+1]
}
