package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/fletnix/internal/agepolicy"
	"github.com/hitoshi/fletnix/internal/model"
)

// 閲覧者の分類（ログ用）。
const (
	viewerAnonymous = "anonymous"
	viewerAdult     = "adult"
	viewerMinor     = "minor"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// requestLogFields は内側のミドルウェアが解決した閲覧者をログ出力まで持ち回る。
type requestLogFields struct {
	userID string
	viewer string
}

type logFieldsKey struct{}

// annotateRequest はログ用に閲覧者の情報を記録する。
// ロギングミドルウェアの内側でのみ効果がある。
func annotateRequest(ctx context.Context, viewer model.Viewer) {
	fields, ok := ctx.Value(logFieldsKey{}).(*requestLogFields)
	if !ok {
		return
	}
	fields.userID = viewer.UserID()
	fields.viewer = viewerClass(viewer)
}

func viewerClass(viewer model.Viewer) string {
	switch {
	case viewer.IsAnonymous():
		return viewerAnonymous
	case agepolicy.Default.CanViewRestricted(viewer.Age()):
		return viewerAdult
	default:
		return viewerMinor
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_msを含む。request_idと閲覧者（user_id、viewer）は得られた場合のみ出力する。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			fields := &requestLogFields{}
			ctx := context.WithValue(r.Context(), logFieldsKey{}, fields)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			if fields.viewer != "" {
				attrs = append(attrs, slog.String("viewer", fields.viewer))
			}
			if fields.userID != "" {
				attrs = append(attrs, slog.String("user_id", fields.userID))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
