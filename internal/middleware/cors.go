package middleware

import (
	"net/http"
	"strings"
)

// corsPolicy は許可するオリジンの集合。"*"を含む場合は全オリジンを許可する。
type corsPolicy struct {
	any     bool
	origins map[string]struct{}
}

// parseAllowedOrigins はカンマ区切りのオリジン指定を解釈する。末尾のスラッシュは無視する。
func parseAllowedOrigins(raw string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{})}
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// NewCORSMiddleware はブラウザクライアント向けのCORSミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定できる。許可されたOriginにだけ
// Access-Control-Allow-Originを返し、BearerトークンのためにAuthorizationヘッダーを許可する。
// 429のRetry-Afterをクライアントが読めるよう公開ヘッダーに含める。
// OPTIONSプリフライトは後続に渡さず204で応答する。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	policy := parseAllowedOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if policy.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Expose-Headers", "Retry-After, X-Request-Id")
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					h.Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
