package middleware

import "net/http"

// apiContentSecurityPolicy はJSONのみを返すAPI向けのCSP。スクリプトや埋め込みを一切許可しない。
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// NewSecurityHeadersMiddleware はAPIレスポンス共通のヘッダーを付与するミドルウェアを返す。
//
// カタログの応答は閲覧者の年齢によって内容が変わるため、Authorizationヘッダー付きの
// リクエストには共有キャッシュに保存させないCache-Controlを付ける。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", apiContentSecurityPolicy)
			h.Set("Referrer-Policy", "no-referrer")
			h.Add("Vary", "Authorization")
			if r.Header.Get("Authorization") != "" {
				h.Set("Cache-Control", "private, no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}
