// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fletnix/internal/identity"
	"github.com/hitoshi/fletnix/internal/model"
)

// ViewerResolver は認証ヘッダーから閲覧者を解決するインターフェース。
// identity.Resolverが実装する。
type ViewerResolver interface {
	Resolve(ctx context.Context, authHeader string, onFailure identity.OnFailure) (model.Viewer, error)
}

// NewOptionalAuthMiddleware は閲覧者を解決してコンテキストに注入するミドルウェアを返す。
// 認証情報が無い・無効な場合は匿名閲覧者として処理を続行する。
func NewOptionalAuthMiddleware(resolver ViewerResolver) func(next http.Handler) http.Handler {
	return newIdentityMiddleware(resolver, identity.Downgrade)
}

// NewRequireAuthMiddleware は認証済みの閲覧者を必須とするミドルウェアを返す。
// 認証情報が無い・無効な場合は401 UNAUTHENTICATEDを返す。
func NewRequireAuthMiddleware(resolver ViewerResolver) func(next http.Handler) http.Handler {
	return newIdentityMiddleware(resolver, identity.Reject)
}

func newIdentityMiddleware(resolver ViewerResolver, onFailure identity.OnFailure) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"), onFailure)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					writeUnauthenticated(w, apiErr)
					return
				}
				slog.Error("failed to resolve viewer",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeInternalError(w)
				return
			}

			annotateRequest(r.Context(), viewer)
			next.ServeHTTP(w, r.WithContext(identity.WithViewer(r.Context(), viewer)))
		})
	}
}
