package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cobros/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Ocurrió un error interno.",
		Category: "system",
		Action:   "Espera un momento y vuelve a intentarlo.",
	})
}

// StatusForAPIError はAPIErrorのコードから適切なHTTPステータスコードを決定する。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeAccountPending, model.ErrCodeAccountBlocked, model.ErrCodeSelfActionForbidden, model.ErrCodeSheetPermission:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeSheetNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidAmount, model.ErrCodeInvalidDate, model.ErrCodeInvalidType, model.ErrCodeFileTooLarge, model.ErrCodeInvalidFileType:
		return http.StatusBadRequest
	case model.ErrCodeDriveNotConfigured:
		return http.StatusPreconditionFailed
	default:
		return http.StatusBadGateway
	}
}
