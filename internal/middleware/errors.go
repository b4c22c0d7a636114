package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fletnix/internal/model"
)

// ErrorBody はミドルウェアが返すエラーレスポンスのJSON形式。
// handlerパッケージのエラーレスポンスと同じフィールドを持つ。
type ErrorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeError はAPIErrorを統一フォーマットで書き込み、後続のハンドラーには渡さない。
func writeError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(ErrorBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
	if err != nil {
		slog.Error("failed to encode error response",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}
}

// writeUnauthenticated は401を返す。Bearerトークンを要求することをWWW-Authenticateで示す。
func writeUnauthenticated(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="fletnix"`)
	writeError(w, http.StatusUnauthorized, apiErr)
}

// writeInternalError は詳細を伏せた500を返す。
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, model.NewInternalError())
}
