// Package console は対話的なターミナルフロントエンドを提供する。
// ロスターの一覧表示、ログイン・ログアウト、参加登録・解除の各操作を
// コマンドループとして公開する。ループ内の1コマンドは
// 検証→リクエスト→応答解釈→描画の順で必ず逐次実行される。
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/clubhub/internal/auth"
	"github.com/hitoshi/clubhub/internal/mutation"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/roster"
)

// Console は対話ループの状態を保持する。
type Console struct {
	scanner   *bufio.Scanner
	out       io.Writer
	auth      *auth.Controller
	view      *roster.View
	mutations *mutation.Coordinator
	notifier  *notify.Presenter
	logger    *slog.Logger
}

// New はConsoleを生成する。
func New(in io.Reader, out io.Writer, authCtl *auth.Controller, view *roster.View, mutations *mutation.Coordinator, notifier *notify.Presenter, logger *slog.Logger) *Console {
	return &Console{
		scanner:   bufio.NewScanner(in),
		out:       out,
		auth:      authCtl,
		view:      view,
		mutations: mutations,
		notifier:  notifier,
		logger:    logger,
	}
}

// Run は初回のロスター取得を行い、入力が尽きるかquitされるまで
// コマンドループを回す。ctxのキャンセルでも終了する。
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "clubhub console. Type 'help' for commands.")

	// ページロード相当: 起動時に1回ロスターを取得して描画する
	if err := c.view.FetchAndRender(ctx); err != nil {
		c.logger.Error("initial roster fetch failed", slog.String("error", err.Error()))
	}
	c.render()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(c.out, "clubhub> ")
		if !c.scanner.Scan() {
			return c.scanner.Err()
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "quit" || cmd == "exit" {
			return nil
		}

		c.dispatch(ctx, cmd, args)
		c.printNotices()
	}
}

// dispatch は1コマンドを実行する。各コマンドが自分のエラー境界を持ち、
// 失敗は通知面に表示されるだけでループは継続する。
func (c *Console) dispatch(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "help":
		c.printHelp()

	case "list", "refresh":
		if err := c.view.FetchAndRender(ctx); err != nil {
			c.logger.Error("roster fetch failed", slog.String("error", err.Error()))
		}
		c.render()

	case "login":
		c.handleLogin(ctx, args)

	case "logout":
		c.auth.Logout()
		c.render()

	case "signup":
		c.handleSignup(ctx, args)

	case "unregister":
		c.handleUnregister(ctx, args)

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (try 'help')\n", cmd)
	}
}

// handleLogin はログインUIを開き、パスワード入力を読み取って検証する。
func (c *Console) handleLogin(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: login <username>")
		return
	}
	username := args[0]

	c.auth.BeginLogin()

	fmt.Fprint(c.out, "Password: ")
	if !c.scanner.Scan() {
		c.auth.CancelLogin()
		return
	}
	password := c.scanner.Text()

	if _, err := c.auth.Login(ctx, username, password); err != nil {
		// 失敗の詳細はログイン面の通知として表示される。モーダルは
		// 開いたままの扱いで、そのまま再試行もキャンセルもできる。
		c.printLoginNotice()
		return
	}

	c.printLoginNotice()
	c.render()
}

// handleSignup は選択リスト番号とメールアドレスから参加登録を実行する。
// 番号0または解釈できない番号は「未選択」としてローカル検証に委ねる。
func (c *Console) handleSignup(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: signup <activity-number> <email>")
		return
	}

	activityName := c.optionName(args[0])
	email := args[1]

	if err := c.mutations.Signup(ctx, activityName, email); err != nil {
		return
	}
	c.render()
}

// handleUnregister は活動番号と参加者番号から参加解除を実行する。
// 送信前の確認プロンプトはConfirmerとしてこのコンソール自身が担う。
func (c *Console) handleUnregister(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: unregister <activity-number> <participant-number>")
		return
	}

	state := c.view.Current()

	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 1 || idx > len(state.Cards) {
		fmt.Fprintf(c.out, "Unknown activity: %s\n", args[0])
		return
	}
	card := state.Cards[idx-1]

	pidx, err := strconv.Atoi(args[1])
	if err != nil || pidx < 1 || pidx > len(card.Participants) {
		fmt.Fprintf(c.out, "Unknown participant: %s\n", args[1])
		return
	}
	email := card.Participants[pidx-1].Email

	if err := c.mutations.Unregister(ctx, card.Name, email, c); err != nil {
		return
	}
	c.render()
}

// Confirm はmutation.Confirmerを実装する。破壊的操作の前に
// y/N の対話的確認を行う。
func (c *Console) Confirm(prompt string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	if !c.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	return answer == "y" || answer == "yes"
}

// optionName は1始まりの選択リスト番号を活動名へ解決する。
// 解決できない場合は空文字列を返し、未選択として扱わせる。
func (c *Console) optionName(arg string) string {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return ""
	}
	options := c.view.Current().Options
	if idx < 1 || idx > len(options) {
		return ""
	}
	return options[idx-1]
}

// render は現在の描画状態をターミナルに書き出す。
func (c *Console) render() {
	renderState(c.out, c.view.Current(), c.auth.BannerLabel(), c.auth.IsAuthenticated())
}

// printNotices はメイン通知面の現在のメッセージを表示する。
func (c *Console) printNotices() {
	printNotice(c.out, c.notifier.Snapshot(notify.SurfaceMain))
}

// printLoginNotice はログイン面の現在のメッセージを表示する。
func (c *Console) printLoginNotice() {
	printNotice(c.out, c.notifier.Snapshot(notify.SurfaceLogin))
}

// printHelp はコマンド一覧を表示する。
func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  list | refresh                            fetch and show the activity roster
  login <username>                          log in (password is prompted)
  logout                                    log out
  signup <activity-number> <email>          sign up an email for an activity
  unregister <activity-number> <n>          remove the n-th participant (asks for confirmation)
  help                                      show this help
  quit | exit                               leave the console`)
}
