package model

import "fmt"

// AppError は統一エラーフォーマットを表す。
// UIに表示するメッセージと原因カテゴリを含む。
// すべてのエラーはハンドラ境界でローカルに回復され、
// グローバルハンドラへは伝播しない。
type AppError struct {
	Code     string // エラーコード
	Message  string // UI表示用メッセージ
	Category string // カテゴリ: validation, auth, request, network
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeActivityRequired   = "ACTIVITY_REQUIRED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeLoginFailed        = "LOGIN_FAILED"
	ErrCodeRequestRejected    = "REQUEST_REJECTED"
	ErrCodeNetworkFailure     = "NETWORK_FAILURE"
	ErrCodeRosterFetchFailed  = "ROSTER_FETCH_FAILED"
	ErrCodeMutationInFlight   = "MUTATION_IN_FLIGHT"
)

// NewActivityRequiredError は活動未選択のローカル検証エラーを生成する。
// このエラーはネットワークリクエストを一切発行せずに返される。
func NewActivityRequiredError() *AppError {
	return &AppError{
		Code:     ErrCodeActivityRequired,
		Message:  "Please select an activity",
		Category: "validation",
	}
}

// NewInvalidCredentialsError は認証拒否エラーを生成する。
// 保持していた資格情報は呼び出し側で破棄される。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid username or password",
		Category: "auth",
	}
}

// NewLoginFailedError はログイン中の通信障害エラーを生成する。
func NewLoginFailedError() *AppError {
	return &AppError{
		Code:     ErrCodeLoginFailed,
		Message:  "Login failed. Please try again.",
		Category: "network",
	}
}

// NewRequestRejectedError は変異エンドポイントの非2xx応答エラーを生成する。
// detailにはサーバー提供の詳細をそのまま渡す。空の場合は
// 呼び出し側が汎用フォールバック文字列を渡す。
func NewRequestRejectedError(detail string) *AppError {
	return &AppError{
		Code:     ErrCodeRequestRejected,
		Message:  detail,
		Category: "request",
	}
}

// NewNetworkFailureError は通信・パース障害の汎用エラーを生成する。
// messageには操作ごとのフォールバック文字列を渡す。
func NewNetworkFailureError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeNetworkFailure,
		Message:  message,
		Category: "network",
	}
}

// NewRosterFetchFailedError はロスター取得失敗エラーを生成する。
// このエラーが返された場合、一覧表示は部分表示ではなく
// エラーメッセージへ丸ごと置き換えられる。
func NewRosterFetchFailedError() *AppError {
	return &AppError{
		Code:     ErrCodeRosterFetchFailed,
		Message:  "Failed to load activities. Please try again later.",
		Category: "network",
	}
}

// NewMutationInFlightError は同一対象への変異リクエストが実行中であることを表す。
func NewMutationInFlightError() *AppError {
	return &AppError{
		Code:     ErrCodeMutationInFlight,
		Message:  "Request already in progress. Please wait.",
		Category: "validation",
	}
}
