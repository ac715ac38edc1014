// Package ui はローカル単一ユーザー向けのWebフロントエンドを提供する。
// ブラウザタブ1枚に相当する共有セッションを前提に、描画記述（RenderState）を
// HTMLへ束縛する。フォームは描画のたびに作り直され、操作の束縛も
// 描画のたびにやり直される。
package ui

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/clubhub/internal/auth"
	"github.com/hitoshi/clubhub/internal/mutation"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/roster"
	"github.com/hitoshi/clubhub/internal/security"
)

// pageData はページテンプレートへの描画入力。
type pageData struct {
	Banner        string
	Authenticated bool
	MainNotice    notify.Message
	LoginNotice   notify.Message
	Roster        roster.RenderState
}

// Handler はゲートウェイのHTTPハンドラー群。
type Handler struct {
	auth      *auth.Controller
	view      *roster.View
	mutations *mutation.Coordinator
	notifier  *notify.Presenter
	sanitizer security.TextSanitizerService
	logger    *slog.Logger
}

// NewHandler はHandlerを生成する。
func NewHandler(authCtl *auth.Controller, view *roster.View, mutations *mutation.Coordinator, notifier *notify.Presenter, sanitizer security.TextSanitizerService, logger *slog.Logger) *Handler {
	return &Handler{
		auth:      authCtl,
		view:      view,
		mutations: mutations,
		notifier:  notifier,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Page はロスターを取得してページ全体を描画する。
// GET /
// ページ取得がブラウザのページロードに相当するため、毎回フェッチする。
// 取得失敗時もページ自体は返し、一覧部分だけが終端エラー表示になる。
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if err := h.view.FetchAndRender(r.Context()); err != nil {
		h.logger.Error("page roster fetch failed", slog.String("error", err.Error()))
	}

	data := pageData{
		Banner:        h.auth.BannerLabel(),
		Authenticated: h.auth.IsAuthenticated(),
		MainNotice:    h.notifier.Snapshot(notify.SurfaceMain),
		LoginNotice:   h.notifier.Snapshot(notify.SurfaceLogin),
		Roster:        h.sanitizeState(h.view.Current()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("template render failed", slog.String("error", err.Error()))
	}
}

// Login はログインフォームの送信を処理する。
// POST /login
// 成否はログイン面の通知として次の描画に現れる。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.auth.BeginLogin()
	if _, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password")); err != nil {
		h.logger.Warn("login attempt failed", slog.String("error", err.Error()))
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はログアウトを処理する。冪等。
// POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Signup は参加登録フォームの送信を処理する。
// POST /signup
// 検証・通知・ロスター再取得はすべて変異コーディネーター側で行われる。
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.mutations.Signup(r.Context(), r.PostFormValue("activity"), r.PostFormValue("email")); err != nil {
		h.logger.Warn("signup failed", slog.String("error", err.Error()))
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Unregister は参加解除フォームの送信を処理する。
// POST /unregister
// フォームのconfirmフィールドが確認ダイアログに相当し、
// "yes" でない送信は確認拒否として扱われ何も送信されない。
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	confirmer := formConfirmer{confirmed: r.PostFormValue("confirm") == "yes"}
	if err := h.mutations.Unregister(r.Context(), r.PostFormValue("activity"), r.PostFormValue("email"), confirmer); err != nil {
		h.logger.Warn("unregister failed", slog.String("error", err.Error()))
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Health はゲートウェイの死活確認エンドポイント。
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// sanitizeState は描画前にサーバー提供のテキストフィールドをサニタイズする。
// 名前とメールはテンプレートのエスケープに任せ、説明とスケジュールは
// マークアップ自体を除去する。
func (h *Handler) sanitizeState(state roster.RenderState) roster.RenderState {
	for i := range state.Cards {
		state.Cards[i].Description = h.sanitizer.Sanitize(state.Cards[i].Description)
		state.Cards[i].Schedule = h.sanitizer.Sanitize(state.Cards[i].Schedule)
	}
	return state
}

// formConfirmer はフォーム送信の確認フィールドをConfirmerとして扱う。
type formConfirmer struct {
	confirmed bool
}

// Confirm はmutation.Confirmerを実装する。
func (f formConfirmer) Confirm(prompt string) bool {
	return f.confirmed
}
