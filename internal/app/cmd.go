package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandConsole は対話的なターミナルコンソールで起動することを示す。
	CommandConsole Command = "console"
	// CommandServe はローカルWeb UIゲートウェイモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandHealthcheck はゲートウェイの死活確認を実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandConsoleを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandConsole
	}

	switch args[0] {
	case "console":
		return CommandConsole
	case "serve":
		return CommandServe
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandConsole
	}
}
