// Package app はアプリケーションの初期化と起動モードの分岐を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/clubhub/internal/apiclient"
	"github.com/hitoshi/clubhub/internal/auth"
	"github.com/hitoshi/clubhub/internal/config"
	"github.com/hitoshi/clubhub/internal/console"
	"github.com/hitoshi/clubhub/internal/logger"
	"github.com/hitoshi/clubhub/internal/metrics"
	"github.com/hitoshi/clubhub/internal/middleware"
	"github.com/hitoshi/clubhub/internal/mutation"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/roster"
	"github.com/hitoshi/clubhub/internal/security"
	"github.com/hitoshi/clubhub/internal/session"
	"github.com/hitoshi/clubhub/internal/ui"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(in io.Reader, out io.Writer, logW io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(logW)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	default:
		return runConsole(cfg, in, out)
	}
}

// components はワイヤリング済みのコアコンポーネント群。
type components struct {
	registry  *prometheus.Registry
	session   *session.Store
	notifier  *notify.Presenter
	auth      *auth.Controller
	view      *roster.View
	mutations *mutation.Coordinator
	sanitizer security.TextSanitizerService
}

// build は設定からコアコンポーネントをワイヤリングする。
func build(cfg *config.Config) (*components, error) {
	// 1. 接続先ガードとHTTPクライアント
	guard := security.NewAPIGuard(cfg.AllowPrivateAPI)
	if err := guard.ValidateBaseURL(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid ACTIVITIES_API_URL: %w", err)
	}
	httpClient := guard.NewClient(cfg.RequestTimeout)

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. APIクライアント
	client := apiclient.NewClient(httpClient, cfg.APIBaseURL, slog.Default(), collector)

	// 4. セッションと通知
	sess := session.NewStore()
	notifier := notify.NewPresenter(nil)

	// 5. 認証コントローラー
	authCtl := auth.NewController(client, sess, notifier, slog.Default(), collector, auth.Config{
		NoticeTTL:      cfg.NoticeTTL,
		LoginNoticeTTL: cfg.LoginNoticeTTL,
	})

	// 6. ロスタービュー。ゲーティングは描画時点の認証状態を評価する
	view := roster.NewView(client, authCtl.IsAuthenticated, slog.Default(), collector)

	// 認証状態の出入りで特権UIの表示を同期的に更新する
	authCtl.OnAuthChange(func(bool) {
		view.Rerender()
	})

	// 7. 変異コーディネーター
	mutations := mutation.NewCoordinator(client, sess, view, notifier, slog.Default(), collector, cfg.NoticeTTL)

	return &components{
		registry:  registry,
		session:   sess,
		notifier:  notifier,
		auth:      authCtl,
		view:      view,
		mutations: mutations,
		sanitizer: security.NewTextSanitizer(),
	}, nil
}

// runConsole は対話的なターミナルコンソールモードで起動する。
// SIGINTまたはSIGTERMシグナルでコマンドループを終了する。
func runConsole(cfg *config.Config, in io.Reader, out io.Writer) error {
	comps, err := build(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := console.New(in, out, comps.auth, comps.view, comps.mutations, comps.notifier, slog.Default())
	return c.Run(ctx)
}

// runServe はローカルWeb UIゲートウェイモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	comps, err := build(cfg)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.MutationRatePerMin, cfg.MutationBurst),
	)
	defer rateLimiter.Stop()

	router := ui.NewRouter(&ui.RouterDeps{
		Auth:        comps.auth,
		View:        comps.view,
		Mutations:   comps.mutations,
		Notifier:    comps.notifier,
		Sanitizer:   comps.sanitizer,
		Logger:      slog.Default(),
		RateLimiter: rateLimiter,
		Gatherer:    comps.registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("UI gateway starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down UI gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("UI gateway stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// ゲートウェイの /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
