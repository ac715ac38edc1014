package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/clubhub/internal/model"
)

// ErrorResponseBody はゲートウェイのJSONエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, appErr *model.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     appErr.Code,
		Message:  appErr.Message,
		Category: appErr.Category,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.AppError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred. Please try again later.",
		Category: "system",
	})
}
