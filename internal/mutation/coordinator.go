// Package mutation は登録・登録解除リクエストの実行を調整する。
// ローカル検証、資格情報の添付、応答の解釈、成功時のロスター再取得までを
// 1つのハンドラ境界として担い、エラーをここで回復して上へ伝播させない。
package mutation

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
)

// 変異の種別。メトリクスのラベルにも使う。
const (
	KindSignup     = "signup"
	KindUnregister = "unregister"
)

// API は変異エンドポイント呼び出しのインターフェース。apiclient.Clientが実装する。
type API interface {
	Signup(ctx context.Context, activityName, email, credential string) (string, error)
	Unregister(ctx context.Context, activityName, email, credential string) (string, error)
}

// Refresher は成功した変異の後にロスターを再取得・再描画する。roster.Viewが実装する。
type Refresher interface {
	FetchAndRender(ctx context.Context) error
}

// CredentialSource は現在の資格情報を提供する。session.Storeが実装する。
// 未認証の場合は空文字列を返し、その場合リクエストは資格情報なしで送信される。
// コントロールの無効化はUI上の利便性であって防御境界ではなく、
// 未認証の登録はサーバーが拒否する。
type CredentialSource interface {
	Credential() string
}

// Confirmer は破壊的操作の対話的確認を行う。
// コンソールではプロンプト、Web UIでは確認フィールドが実装する。
type Confirmer interface {
	Confirm(prompt string) bool
}

// MutationRecorder は変異リクエストのメトリクス記録のインターフェース。
type MutationRecorder interface {
	RecordMutation(kind string, outcome string)
}

// Coordinator は変異リクエストを実行する。
// 同一対象への変異は実行中ロックで重複発行を防ぐ（連打対策）。
type Coordinator struct {
	api      API
	creds    CredentialSource
	view     Refresher
	notifier *notify.Presenter
	logger   *slog.Logger
	metrics  MutationRecorder

	noticeTTL time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoordinator はCoordinatorを生成する。
func NewCoordinator(api API, creds CredentialSource, view Refresher, notifier *notify.Presenter, logger *slog.Logger, metrics MutationRecorder, noticeTTL time.Duration) *Coordinator {
	return &Coordinator{
		api:       api,
		creds:     creds,
		view:      view,
		notifier:  notifier,
		logger:    logger,
		metrics:   metrics,
		noticeTTL: noticeTTL,
		inflight:  make(map[string]struct{}),
	}
}

// Signup は参加登録を実行する。
//
// activityNameが空の場合はローカル検証エラーとし、ネットワークリクエストを
// 一切発行せずにメイン面へ検証メッセージを表示する。
// 成功時は通知してロスターを再取得する。失敗時はサーバー提供の詳細
// （無ければ汎用フォールバック）を通知し、ロスターには触れない。
func (co *Coordinator) Signup(ctx context.Context, activityName, email string) error {
	if activityName == "" {
		appErr := model.NewActivityRequiredError()
		co.notifier.Show(notify.SurfaceMain, appErr.Message, notify.KindError, co.noticeTTL)
		co.record(KindSignup, "validation_error")
		return appErr
	}

	release, err := co.acquire(KindSignup, activityName, email)
	if err != nil {
		return err
	}
	defer release()

	message, err := co.api.Signup(ctx, activityName, email, co.creds.Credential())
	if err != nil {
		return co.handleFailure(KindSignup, activityName, email, err,
			"An error occurred",
			"Failed to sign up. Please try again.")
	}

	co.notifier.Show(notify.SurfaceMain, message, notify.KindSuccess, co.noticeTTL)
	co.record(KindSignup, "success")
	co.logger.Info("signup succeeded",
		slog.String("activity", activityName),
		slog.String("email", email),
	)

	co.refresh(ctx)
	return nil
}

// Unregister は参加解除を実行する。
// 破壊的操作のため、リクエスト送信前に対話的確認を必須とする。
// 確認が拒否された場合は何も送信せずnilを返す。
func (co *Coordinator) Unregister(ctx context.Context, activityName, email string, confirmer Confirmer) error {
	prompt := fmt.Sprintf("Remove %s from %s?", email, activityName)
	if !confirmer.Confirm(prompt) {
		co.logger.Info("unregister cancelled by user",
			slog.String("activity", activityName),
			slog.String("email", email),
		)
		return nil
	}

	release, err := co.acquire(KindUnregister, activityName, email)
	if err != nil {
		return err
	}
	defer release()

	message, err := co.api.Unregister(ctx, activityName, email, co.creds.Credential())
	if err != nil {
		return co.handleFailure(KindUnregister, activityName, email, err,
			"Failed to remove student from activity",
			"An error occurred while removing the student. Please try again.")
	}

	co.notifier.Show(notify.SurfaceMain, message, notify.KindSuccess, co.noticeTTL)
	co.record(KindUnregister, "success")
	co.logger.Info("unregister succeeded",
		slog.String("activity", activityName),
		slog.String("email", email),
	)

	co.refresh(ctx)
	return nil
}

// acquire は対象ごとの実行中ロックを取得する。
// 同一の (種別, 活動, メール) に対するリクエストが既に実行中の場合は
// ローカルで拒否し、新たなリクエストは発行しない。
func (co *Coordinator) acquire(kind, activityName, email string) (func(), error) {
	key := kind + "|" + activityName + "|" + email

	co.mu.Lock()
	defer co.mu.Unlock()

	if _, busy := co.inflight[key]; busy {
		appErr := model.NewMutationInFlightError()
		co.notifier.Show(notify.SurfaceMain, appErr.Message, notify.KindError, co.noticeTTL)
		co.record(kind, "validation_error")
		return nil, appErr
	}

	co.inflight[key] = struct{}{}
	return func() {
		co.mu.Lock()
		delete(co.inflight, key)
		co.mu.Unlock()
	}, nil
}

// handleFailure は変異の失敗を種類ごとに解釈して通知する。
// サーバー拒否（非2xx）はロスターに触れず、詳細があればそのまま表示する。
// 通信・パース障害は操作ごとの汎用フォールバック文字列を表示する。
func (co *Coordinator) handleFailure(kind, activityName, email string, err error, rejectedFallback, networkFallback string) error {
	var rejected *apiclient.RequestRejectedError
	if errors.As(err, &rejected) {
		detail := rejected.Detail
		if detail == "" {
			detail = rejectedFallback
		}
		appErr := model.NewRequestRejectedError(detail)
		co.notifier.Show(notify.SurfaceMain, appErr.Message, notify.KindError, co.noticeTTL)
		co.record(kind, "rejected")
		co.logger.Warn("mutation rejected",
			slog.String("kind", kind),
			slog.String("activity", activityName),
			slog.String("email", email),
			slog.Int("http_status", rejected.StatusCode),
		)
		return appErr
	}

	appErr := model.NewNetworkFailureError(networkFallback)
	co.notifier.Show(notify.SurfaceMain, appErr.Message, notify.KindError, co.noticeTTL)
	co.record(kind, "network_error")
	co.logger.Error("mutation failed",
		slog.String("kind", kind),
		slog.String("activity", activityName),
		slog.String("email", email),
		slog.String("error", err.Error()),
	)
	return appErr
}

// refresh は成功した変異の後にロスターを再取得する。
// 再取得の失敗はView側で終端エラー表示になるため、ここではログのみ残す。
func (co *Coordinator) refresh(ctx context.Context) {
	if err := co.view.FetchAndRender(ctx); err != nil {
		co.logger.Error("roster refresh after mutation failed", slog.String("error", err.Error()))
	}
}

// record はメトリクスが設定されている場合のみ記録する。
func (co *Coordinator) record(kind, outcome string) {
	if co.metrics != nil {
		co.metrics.RecordMutation(kind, outcome)
	}
}
