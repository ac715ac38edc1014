package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/clubhub/internal/apiclient"
	"github.com/hitoshi/clubhub/internal/model"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/session"
)

// fakeVerifier はVerifierのテスト用実装。
type fakeVerifier struct {
	username string
	err      error
	calls    int
	lastCred string
}

func (f *fakeVerifier) Verify(ctx context.Context, credential string) (string, error) {
	f.calls++
	f.lastCred = credential
	if f.err != nil {
		return "", f.err
	}
	return f.username, nil
}

func newTestController(v Verifier) (*Controller, *session.Store, *notify.Presenter) {
	sess := session.NewStore()
	notifier := notify.NewPresenter(nil)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctl := NewController(v, sess, notifier, logger, nil, Config{
		NoticeTTL:      time.Minute,
		LoginNoticeTTL: time.Minute,
	})
	return ctl, sess, notifier
}

// TestController_InitialState は初期状態がAnonymousであることをテストする。
func TestController_InitialState(t *testing.T) {
	ctl, _, _ := newTestController(&fakeVerifier{})
	if ctl.State() != StateAnonymous {
		t.Errorf("State() = %v, want anonymous", ctl.State())
	}
	if ctl.IsAuthenticated() {
		t.Error("IsAuthenticated() should be false initially")
	}
	if ctl.BannerLabel() != "Login" {
		t.Errorf("BannerLabel() = %q, want Login", ctl.BannerLabel())
	}
}

// TestBeginLogin_Transition はBeginLoginでAuthenticatingへ移ることをテストする。
func TestBeginLogin_Transition(t *testing.T) {
	ctl, _, _ := newTestController(&fakeVerifier{})

	ctl.BeginLogin()
	if ctl.State() != StateAuthenticating {
		t.Errorf("State() = %v, want authenticating", ctl.State())
	}

	ctl.CancelLogin()
	if ctl.State() != StateAnonymous {
		t.Errorf("State() after CancelLogin = %v, want anonymous", ctl.State())
	}
}

// TestLogin_Success はログイン成功の遷移と副作用をテストする。
func TestLogin_Success(t *testing.T) {
	v := &fakeVerifier{username: "teacher1"}
	ctl, sess, notifier := newTestController(v)

	name, err := ctl.Login(context.Background(), "teacher1", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if name != "teacher1" {
		t.Errorf("Login() = %q, want teacher1", name)
	}

	if ctl.State() != StateAuthenticated {
		t.Errorf("State() = %v, want authenticated", ctl.State())
	}
	if !sess.IsAuthenticated() {
		t.Error("session should be authenticated")
	}
	if sess.Credential() == "" {
		t.Error("session should hold credential after successful login")
	}
	if v.lastCred != session.EncodeCredential("teacher1", "secret") {
		t.Errorf("verifier received credential %q", v.lastCred)
	}

	// ログイン面に歓迎メッセージが表示される
	msg := notifier.Snapshot(notify.SurfaceLogin)
	if !msg.Visible || msg.Text != "Welcome, teacher1!" {
		t.Errorf("login notice = %+v, want Welcome, teacher1!", msg)
	}
	if msg.Kind != notify.KindSuccess {
		t.Errorf("notice kind = %v, want success", msg.Kind)
	}
}

// TestLogin_Rejected は資格情報の拒否でLoginFailedへ移り、
// 資格情報が破棄されることをテストする。
func TestLogin_Rejected(t *testing.T) {
	v := &fakeVerifier{err: apiclient.ErrUnauthorized}
	ctl, sess, notifier := newTestController(v)

	_, err := ctl.Login(context.Background(), "teacher1", "wrong")

	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Login() error = %v, want *model.AppError", err)
	}
	if appErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %v, want INVALID_CREDENTIALS", appErr.Code)
	}

	if ctl.State() != StateLoginFailed {
		t.Errorf("State() = %v, want login_failed", ctl.State())
	}
	if sess.IsAuthenticated() {
		t.Error("session should not be authenticated after rejection")
	}
	if sess.Credential() != "" {
		t.Error("rejected credential should not be retained")
	}

	msg := notifier.Snapshot(notify.SurfaceLogin)
	if !msg.Visible || msg.Kind != notify.KindError {
		t.Errorf("login notice = %+v, want visible error", msg)
	}
}

// TestLogin_NetworkFailure は通信障害が資格情報の拒否と区別されることをテストする。
func TestLogin_NetworkFailure(t *testing.T) {
	v := &fakeVerifier{err: errors.New("connection refused")}
	ctl, sess, _ := newTestController(v)

	_, err := ctl.Login(context.Background(), "teacher1", "secret")

	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Login() error = %v, want *model.AppError", err)
	}
	if appErr.Code != model.ErrCodeLoginFailed {
		t.Errorf("Code = %v, want LOGIN_FAILED", appErr.Code)
	}

	if ctl.State() != StateLoginFailed {
		t.Errorf("State() = %v, want login_failed", ctl.State())
	}
	if sess.IsAuthenticated() {
		t.Error("session should not be authenticated after network failure")
	}
}

// TestLogin_RetryAfterFailure は失敗後の再試行が成功できることをテストする。
func TestLogin_RetryAfterFailure(t *testing.T) {
	v := &fakeVerifier{err: apiclient.ErrUnauthorized}
	ctl, _, _ := newTestController(v)

	if _, err := ctl.Login(context.Background(), "teacher1", "wrong"); err == nil {
		t.Fatal("first login should fail")
	}

	v.err = nil
	v.username = "teacher1"
	if _, err := ctl.Login(context.Background(), "teacher1", "secret"); err != nil {
		t.Fatalf("retry Login() error = %v", err)
	}
	if ctl.State() != StateAuthenticated {
		t.Errorf("State() = %v, want authenticated", ctl.State())
	}
}

// TestOnAuthChange_FiredOncePerTransition はゲーティングリスナーが
// Authenticatedへの出入りで遷移1回につきちょうど1回だけ呼ばれることをテストする。
func TestOnAuthChange_FiredOncePerTransition(t *testing.T) {
	v := &fakeVerifier{username: "teacher1"}
	ctl, _, _ := newTestController(v)

	var events []bool
	ctl.OnAuthChange(func(authenticated bool) {
		events = append(events, authenticated)
	})

	if _, err := ctl.Login(context.Background(), "teacher1", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	ctl.Logout()
	// 2回目のLogoutはAuthenticatedから出る遷移ではないため発火しない
	ctl.Logout()

	want := []bool{true, false}
	if len(events) != len(want) {
		t.Fatalf("listener events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %v, want %v", i, events[i], want[i])
		}
	}
}

// TestOnAuthChange_NotFiredOnFailedLogin はログイン失敗でリスナーが
// 発火しないことをテストする。
func TestOnAuthChange_NotFiredOnFailedLogin(t *testing.T) {
	v := &fakeVerifier{err: apiclient.ErrUnauthorized}
	ctl, _, _ := newTestController(v)

	fired := 0
	ctl.OnAuthChange(func(bool) { fired++ })

	ctl.Login(context.Background(), "teacher1", "wrong")
	if fired != 0 {
		t.Errorf("listener fired %d times on failed login, want 0", fired)
	}
}

// TestLogout_Idempotent はLogoutが冪等で、未認証でも通知を表示することをテストする。
func TestLogout_Idempotent(t *testing.T) {
	ctl, sess, notifier := newTestController(&fakeVerifier{})

	ctl.Logout()

	if ctl.State() != StateAnonymous {
		t.Errorf("State() = %v, want anonymous", ctl.State())
	}
	if sess.IsAuthenticated() {
		t.Error("session should stay unauthenticated")
	}

	msg := notifier.Snapshot(notify.SurfaceMain)
	if !msg.Visible || msg.Text != "Logged out successfully" {
		t.Errorf("notice = %+v, want Logged out successfully", msg)
	}
}

// TestBannerLabel_Authenticated は認証済みバナーに確認済みユーザー名が
// 表示されることをテストする。
func TestBannerLabel_Authenticated(t *testing.T) {
	v := &fakeVerifier{username: "principal"}
	ctl, _, _ := newTestController(v)

	if _, err := ctl.Login(context.Background(), "principal", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if got := ctl.BannerLabel(); got != "Logout (principal)" {
		t.Errorf("BannerLabel() = %q, want Logout (principal)", got)
	}

	ctl.Logout()
	if got := ctl.BannerLabel(); got != "Login" {
		t.Errorf("BannerLabel() after logout = %q, want Login", got)
	}
}

// TestLogin_AlreadyAuthenticated は認証済み状態での再ログインが拒否されることをテストする。
func TestLogin_AlreadyAuthenticated(t *testing.T) {
	v := &fakeVerifier{username: "teacher1"}
	ctl, _, _ := newTestController(v)

	if _, err := ctl.Login(context.Background(), "teacher1", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	calls := v.calls
	if _, err := ctl.Login(context.Background(), "teacher2", "secret"); err == nil {
		t.Fatal("second Login() should fail while authenticated")
	}
	if v.calls != calls {
		t.Error("verifier should not be called while authenticated")
	}
}
