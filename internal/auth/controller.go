// Package auth はログイン・ログアウト遷移を所有する認証コントローラーを提供する。
// 資格情報の検証はサーバーに委ね、結果に応じてセッションとUIゲーティングを更新する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/clubhub/internal/apiclient"
	"github.com/hitoshi/clubhub/internal/model"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/session"
)

// State は認証コントローラーの状態を表す。
type State string

const (
	// StateAnonymous は未認証状態。
	StateAnonymous State = "anonymous"
	// StateAuthenticating はログインUIが開かれ、資格情報の入力を待つ状態。
	StateAuthenticating State = "authenticating"
	// StateAuthenticated は検証済み資格情報を保持する状態。
	StateAuthenticated State = "authenticated"
	// StateLoginFailed はログイン失敗直後の一時状態。
	// 再入力でAuthenticatingへ、キャンセルでAnonymousへ戻る。
	StateLoginFailed State = "login_failed"
)

// Verifier は資格情報の検証を行うインターフェース。
// apiclient.Clientが実装する。
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// LoginRecorder はログイン試行のメトリクス記録のインターフェース。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Config は認証コントローラーの設定。
type Config struct {
	NoticeTTL      time.Duration // メイン通知面の表示時間
	LoginNoticeTTL time.Duration // ログイン面の表示時間
}

// Controller はログイン・ログアウトの状態機械を実装する。
//
// 遷移:
//
//	Anonymous --(BeginLogin)--> Authenticating
//	Authenticating --(Login)--> Authenticated | LoginFailed
//	LoginFailed --(Login再試行)--> Authenticating | --(CancelLogin)--> Anonymous
//	Authenticated --(Logout)--> Anonymous
//
// Authenticatedへの出入りではゲーティングリスナーが同期的に、
// 遷移1回につきちょうど1回だけ呼ばれる。
type Controller struct {
	verifier Verifier
	session  *session.Store
	notifier *notify.Presenter
	logger   *slog.Logger
	metrics  LoginRecorder
	config   Config

	mu        sync.Mutex
	state     State
	listeners []func(authenticated bool)
}

// NewController はControllerを生成する。初期状態はAnonymous。
func NewController(verifier Verifier, sess *session.Store, notifier *notify.Presenter, logger *slog.Logger, metrics LoginRecorder, config Config) *Controller {
	return &Controller{
		verifier: verifier,
		session:  sess,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		config:   config,
		state:    StateAnonymous,
	}
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsAuthenticated は特権UIのゲーティング判定に使う現在の認証状態を返す。
func (c *Controller) IsAuthenticated() bool {
	return c.State() == StateAuthenticated
}

// OnAuthChange はAuthenticatedへの出入りで呼ばれるリスナーを登録する。
// リスナーは状態遷移の直後、次のユーザー操作が処理される前に同期実行される。
func (c *Controller) OnAuthChange(fn func(authenticated bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// BeginLogin はログインUIを開く遷移を行う。
// AnonymousまたはLoginFailedからAuthenticatingへ移る。
// 既に認証済みの場合は何もしない。
func (c *Controller) BeginLogin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAnonymous || c.state == StateLoginFailed {
		c.state = StateAuthenticating
	}
}

// CancelLogin はログインUIを閉じてAnonymousへ戻る。
// 認証済み状態には影響しない。
func (c *Controller) CancelLogin() {
	c.mu.Lock()
	if c.state == StateAuthenticating || c.state == StateLoginFailed {
		c.state = StateAnonymous
	}
	c.mu.Unlock()
	c.notifier.Hide(notify.SurfaceLogin)
}

// Login は資格情報をエンコードしてサーバーに検証させる。
//
// 成功時: セッションを認証済みにし、ゲーティングリスナーを発火し、
// ログイン面に歓迎メッセージを表示して確認済みユーザー名を返す。
// 拒否時: 資格情報を破棄してLoginFailedに移り、InvalidCredentialsを返す。
// 通信障害時: 同じく破棄してLoginFailedに移り、NetworkErrorを返す。
func (c *Controller) Login(ctx context.Context, username, password string) (string, error) {
	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.mu.Unlock()
		return "", fmt.Errorf("already authenticated")
	}
	c.state = StateAuthenticating
	c.mu.Unlock()

	credential := session.EncodeCredential(username, password)

	displayName, err := c.verifier.Verify(ctx, credential)
	if err != nil {
		// 失敗の種類に関わらず、検証されなかった資格情報は保持しない
		c.session.Clear()

		c.mu.Lock()
		c.state = StateLoginFailed
		c.mu.Unlock()

		if errors.Is(err, apiclient.ErrUnauthorized) {
			appErr := model.NewInvalidCredentialsError()
			c.notifier.Show(notify.SurfaceLogin, appErr.Message, notify.KindError, c.config.LoginNoticeTTL)
			c.recordLogin("rejected")
			c.logger.Warn("login rejected", slog.String("username", username))
			return "", appErr
		}

		appErr := model.NewLoginFailedError()
		c.notifier.Show(notify.SurfaceLogin, appErr.Message, notify.KindError, c.config.LoginNoticeTTL)
		c.recordLogin("network_error")
		c.logger.Error("login verification failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return "", appErr
	}

	c.session.SetVerified(credential, displayName)

	c.mu.Lock()
	wasAuthenticated := c.state == StateAuthenticated
	c.state = StateAuthenticated
	listeners := append([]func(bool){}, c.listeners...)
	c.mu.Unlock()

	// Authenticatedに入る遷移でのみ、リスナーを1回ずつ同期発火する
	if !wasAuthenticated {
		for _, fn := range listeners {
			fn(true)
		}
	}

	c.notifier.Show(notify.SurfaceLogin,
		fmt.Sprintf("Welcome, %s!", displayName),
		notify.KindSuccess, c.config.LoginNoticeTTL)
	c.recordLogin("success")
	c.logger.Info("login succeeded", slog.String("username", displayName))

	return displayName, nil
}

// Logout は資格情報と認証フラグを無条件に破棄する。冪等で常に成功する。
// 副作用として成功通知をメイン面に表示する。
func (c *Controller) Logout() {
	c.session.Clear()

	c.mu.Lock()
	wasAuthenticated := c.state == StateAuthenticated
	c.state = StateAnonymous
	listeners := append([]func(bool){}, c.listeners...)
	c.mu.Unlock()

	// Authenticatedから出る遷移でのみリスナーを発火する。
	// 2回連続のLogoutで二重発火しないための区別。
	if wasAuthenticated {
		for _, fn := range listeners {
			fn(false)
		}
		c.logger.Info("logged out")
	}

	c.notifier.Show(notify.SurfaceMain, "Logged out successfully", notify.KindSuccess, c.config.NoticeTTL)
}

// BannerLabel は認証ボタンの表示ラベルを返す。
// 認証済みなら "Logout (名前)"、それ以外は "Login"。
func (c *Controller) BannerLabel() string {
	if c.IsAuthenticated() {
		return fmt.Sprintf("Logout (%s)", c.session.DisplayName())
	}
	return "Login"
}

// recordLogin はメトリクスが設定されている場合のみ記録する。
func (c *Controller) recordLogin(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordLogin(outcome)
	}
}
