// Package apiclient は活動APIサーバーへのHTTPクライアントを提供する。
// ロスター取得、資格情報の検証、登録・登録解除の各エンドポイント呼び出しを含む。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubhub/internal/model"
)

// ErrUnauthorized は資格情報の検証がサーバーに拒否されたことを表す。
var ErrUnauthorized = errors.New("unauthorized")

// RequestRejectedError は変異エンドポイントが非2xx応答を返したことを表す。
// Detailにはサーバー提供の詳細メッセージを保持する（無い場合は空文字列）。
type RequestRejectedError struct {
	StatusCode int
	Detail     string
}

// Error はerrorインターフェースを実装する。
func (e *RequestRejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request rejected (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request rejected (status %d)", e.StatusCode)
}

// MetricsRecorder はAPIクライアントが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Client は活動APIサーバーのクライアント。
// サーバーが認可の最終防衛線であり、クライアント側のゲーティングは
// あくまでUI上の利便性に過ぎない。資格情報が空の場合でも変異リクエストは
// 送信され、拒否の判断はサーバーに委ねられる。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは末尾スラッシュなしの形式に正規化される。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, metrics MetricsRecorder) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// activityDetail はGET /activitiesの各エントリのワイヤ表現。
type activityDetail struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// verifyResponse はPOST /auth/verifyの成功応答ボディ。
type verifyResponse struct {
	Username string `json:"username"`
}

// mutationRequest は変異エンドポイントのリクエストボディ。
type mutationRequest struct {
	Email string `json:"email"`
}

// mutationResponse は変異エンドポイントの応答ボディ。
// 2xxではmessage、エラーステータスではdetailのみが設定される。
type mutationResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Verify は資格情報をサーバーの検証エンドポイントに送り、確認済みの
// ユーザー名を返す。拒否された場合はErrUnauthorizedを返す。
// 拒否応答にはボディが保証されないため、ステータスコードのみで判定する。
func (c *Client) Verify(ctx context.Context, credential string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify", nil)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+credential)

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("credential verification request failed",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("credential verification returned unexpected status",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("検証エンドポイントがステータス %d を返しました", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("検証応答のパースに失敗しました: %w", err)
	}

	return result.Username, nil
}

// FetchActivities は全活動のロスターをサーバーから取得する。
// 応答はJSONオブジェクト（活動名→詳細）であり、キーの出現順序を
// そのまま保持したレコードリストを返す。呼び出し側はこのリストで
// 保持中のロスターを丸ごと置き換える。
func (c *Client) FetchActivities(ctx context.Context) ([]*model.ActivityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/activities", nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("roster fetch request failed",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("roster fetch returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("ロスター取得がステータス %d を返しました", resp.StatusCode)
	}

	records, err := decodeRoster(resp.Body)
	if err != nil {
		c.logger.Error("roster response parse failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ロスター応答のパースに失敗しました: %w", err)
	}

	return records, nil
}

// Signup は指定活動への参加登録リクエストを送信する。
// credentialが空でない場合のみAuthorizationヘッダーを付与する。
// 成功時はサーバーのmessageを返し、非2xx時は*RequestRejectedErrorを返す。
func (c *Client) Signup(ctx context.Context, activityName, email, credential string) (string, error) {
	endpoint := c.baseURL + "/activities/" + url.PathEscape(activityName) + "/signup"
	return c.mutate(ctx, http.MethodPost, endpoint, email, credential)
}

// Unregister は指定活動からの参加解除リクエストを送信する。
// 破壊的操作であり、確認ガードは呼び出し側（変異コーディネーター）が担う。
func (c *Client) Unregister(ctx context.Context, activityName, email, credential string) (string, error) {
	endpoint := c.baseURL + "/activities/" + url.PathEscape(activityName) + "/unregister"
	return c.mutate(ctx, http.MethodDelete, endpoint, email, credential)
}

// mutate は変異エンドポイントへのリクエストを実行し、応答を解釈する。
// ログ相関のためX-Request-IDを毎回新規に採番して付与する。
func (c *Client) mutate(ctx context.Context, method, endpoint, email, credential string) (string, error) {
	body, err := json.Marshal(mutationRequest{Email: email})
	if err != nil {
		return "", fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if credential != "" {
		req.Header.Set("Authorization", "Basic "+credential)
	}

	resp, err := c.do(req)
	if err != nil {
		c.logger.Error("mutation request failed",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	// detail/messageはベストエフォートで読む。エラーステータスのボディが
	// JSONでない場合もあるため、パース失敗は空詳細として扱う。
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("応答ボディの読み取りに失敗しました: %w", err)
	}

	var result mutationResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("mutation rejected by server",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", &RequestRejectedError{StatusCode: resp.StatusCode, Detail: result.Detail}
	}

	if decodeErr != nil {
		return "", fmt.Errorf("変異応答のパースに失敗しました: %w", decodeErr)
	}

	return result.Message, nil
}

// do はHTTPリクエストを実行し、ステータスとレイテンシをメトリクスに記録する。
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordRequestLatency(time.Since(start))
		if err == nil {
			c.metrics.RecordHTTPStatus(resp.StatusCode)
		}
	}
	return resp, err
}

// decodeRoster はロスター応答をキーの出現順序を保持してデコードする。
// encoding/jsonのmapデコードは順序を失うため、トークン単位で読み進める。
func decodeRoster(r io.Reader) ([]*model.ActivityRecord, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("unexpected token %v, want object", tok)
	}

	var records []*model.ActivityRecord
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}

		var detail activityDetail
		if err := dec.Decode(&detail); err != nil {
			return nil, err
		}

		records = append(records, &model.ActivityRecord{
			Name:            name,
			Description:     detail.Description,
			Schedule:        detail.Schedule,
			MaxParticipants: detail.MaxParticipants,
			Participants:    detail.Participants,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return records, nil
}
