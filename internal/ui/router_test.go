package ui

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/hitoshi/clubhub/internal/apiclient"
	"github.com/hitoshi/clubhub/internal/auth"
	"github.com/hitoshi/clubhub/internal/metrics"
	"github.com/hitoshi/clubhub/internal/middleware"
	"github.com/hitoshi/clubhub/internal/mutation"
	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/roster"
	"github.com/hitoshi/clubhub/internal/security"
	"github.com/hitoshi/clubhub/internal/session"
)

// newBackend は活動APIサーバーのテスト用スタブを起動する。
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	validCred := session.EncodeCredential("teacher1", "secret")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /activities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Chess Club": {"description": "Learn chess", "schedule": "Fridays", "max_participants": 12, "participants": ["michael@mergington.edu", "daniel@mergington.edu"]},
			"Art Studio": {"description": "Painting", "schedule": "Tuesdays", "max_participants": 15, "participants": []}
		}`))
	})
	mux.HandleFunc("POST /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Basic "+validCred {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username": "teacher1"}`))
	})
	mux.HandleFunc("POST /activities/{name}/signup", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Authentication required"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": "Signed up for ` + r.PathValue("name") + `"}`))
	})
	mux.HandleFunc("DELETE /activities/{name}/unregister", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Student is not signed up for this activity"}`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// newTestGateway はバックエンドに接続した完全なゲートウェイを組み立てる。
func newTestGateway(t *testing.T, backendURL string) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	api := apiclient.NewClient(&http.Client{}, backendURL, logger, nil)
	sess := session.NewStore()
	notifier := notify.NewPresenter(nil)

	authCtl := auth.NewController(api, sess, notifier, logger, nil, auth.Config{
		NoticeTTL:      time.Minute,
		LoginNoticeTTL: time.Minute,
	})
	view := roster.NewView(api, authCtl.IsAuthenticated, logger, nil)
	authCtl.OnAuthChange(func(bool) { view.Rerender() })

	mutations := mutation.NewCoordinator(api, sess, view, notifier, logger, nil, time.Minute)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MutationRate:    rate.Limit(1000),
		MutationBurst:   1000,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)

	return NewRouter(&RouterDeps{
		Auth:        authCtl,
		View:        view,
		Mutations:   mutations,
		Notifier:    notifier,
		Sanitizer:   security.NewTextSanitizer(),
		Logger:      logger,
		RateLimiter: rl,
		Gatherer:    reg,
	})
}

// getPage はGET /を実行してHTMLを返す。
func getPage(t *testing.T, gw http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

// postForm はフォーム送信を実行し、リダイレクトを検証する。
func postForm(t *testing.T, gw http.Handler, path string, form url.Values) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST %s status = %d, want 303", path, rec.Code)
	}
}

// countForms はHTMLをパースし、指定actionのフォーム数を数える。
func countForms(t *testing.T, page, action string) int {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("failed to parse page HTML: %v", err)
	}

	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "form" {
			for _, attr := range n.Attr {
				if attr.Key == "action" && attr.Val == action {
					count++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return count
}

// login はゲートウェイ経由でログインする。
func login(t *testing.T, gw http.Handler) {
	t.Helper()
	postForm(t, gw, "/login", url.Values{
		"username": {"teacher1"},
		"password": {"secret"},
	})
}

// TestPage_AnonymousHidesPrivilegedControls は未認証ページで解除フォームが
// 描画されず、登録ボタンが無効化されることをテストする。
func TestPage_AnonymousHidesPrivilegedControls(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	page := getPage(t, gw)

	if got := countForms(t, page, "/unregister"); got != 0 {
		t.Errorf("unregister forms = %d, want 0 while anonymous", got)
	}
	if !strings.Contains(page, "Please log in to sign up students.") {
		t.Error("page should show the auth-required message")
	}
	if !strings.Contains(page, "disabled") {
		t.Error("signup button should be disabled while anonymous")
	}
}

// TestPage_RendersRosterInServerOrder は活動カードがサーバー応答の順序で
// 描画されることをテストする。
func TestPage_RendersRosterInServerOrder(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	page := getPage(t, gw)

	chess := strings.Index(page, "Chess Club")
	art := strings.Index(page, "Art Studio")
	if chess == -1 || art == -1 {
		t.Fatal("both activities should be rendered")
	}
	if chess > art {
		t.Error("Chess Club should appear before Art Studio")
	}

	if !strings.Contains(page, "10 spots left") {
		t.Error("Chess Club availability should show 10 spots left")
	}
	if !strings.Contains(page, "No participants yet") {
		t.Error("empty activity should show the placeholder")
	}
}

// TestLogin_EnablesPrivilegedControls はログイン後に参加者ごとの解除フォームが
// 描画され、バナーにユーザー名が表示されることをテストする。
func TestLogin_EnablesPrivilegedControls(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	login(t, gw)
	page := getPage(t, gw)

	// Chess Clubの参加者2名分
	if got := countForms(t, page, "/unregister"); got != 2 {
		t.Errorf("unregister forms = %d, want 2 after login", got)
	}
	if !strings.Contains(page, "Logout (teacher1)") {
		t.Error("banner should show Logout (teacher1)")
	}
	if strings.Contains(page, "Please log in to sign up students.") {
		t.Error("auth-required message should be hidden after login")
	}
}

// TestLogin_RejectedShowsNotice は誤った資格情報でログイン面に
// エラー通知が表示されることをテストする。
func TestLogin_RejectedShowsNotice(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	postForm(t, gw, "/login", url.Values{
		"username": {"teacher1"},
		"password": {"wrong"},
	})
	page := getPage(t, gw)

	if !strings.Contains(page, "Invalid username or password") {
		t.Error("login notice should show the rejection message")
	}
	if got := countForms(t, page, "/unregister"); got != 0 {
		t.Errorf("unregister forms = %d, want 0 after rejected login", got)
	}
}

// TestSignup_EmptyActivityShowsValidationMessage は活動未選択の送信で
// ローカル検証メッセージが表示されることをテストする。
func TestSignup_EmptyActivityShowsValidationMessage(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	postForm(t, gw, "/signup", url.Values{
		"activity": {""},
		"email":    {"student@mergington.edu"},
	})
	page := getPage(t, gw)

	if !strings.Contains(page, "Please select an activity") {
		t.Error("page should show the validation message")
	}
}

// TestUnregister_RejectedShowsServerDetail は解除の404拒否でサーバーのdetailが
// そのまま表示されることをテストする。
func TestUnregister_RejectedShowsServerDetail(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	login(t, gw)
	postForm(t, gw, "/unregister", url.Values{
		"activity": {"Chess Club"},
		"email":    {"gone@mergington.edu"},
		"confirm":  {"yes"},
	})
	page := getPage(t, gw)

	if !strings.Contains(page, "Student is not signed up for this activity") {
		t.Error("page should show the server detail verbatim")
	}
}

// TestUnregister_WithoutConfirmIsNoop はconfirmフィールドなしの送信が
// 確認拒否として扱われ、何も起きないことをテストする。
func TestUnregister_WithoutConfirmIsNoop(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	login(t, gw)
	postForm(t, gw, "/unregister", url.Values{
		"activity": {"Chess Club"},
		"email":    {"michael@mergington.edu"},
	})
	page := getPage(t, gw)

	if strings.Contains(page, "Student is not signed up") {
		t.Error("declined confirmation should not reach the server")
	}
}

// TestHealthz はヘルスチェックエンドポイントをテストする。
func TestHealthz(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

// TestMetricsEndpoint は/metricsがPrometheus形式で応答することをテストする。
func TestMetricsEndpoint(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestSecurityHeadersOnPage は全ルートにセキュリティヘッダーが付与されることをテストする。
func TestSecurityHeadersOnPage(t *testing.T) {
	backend := newBackend(t)
	gw := newTestGateway(t, backend.URL)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
