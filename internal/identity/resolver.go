// Package identity はリクエストの認証情報から閲覧者コンテキストを解決する。
//
// 解決処理は1つで、失敗時の扱いだけが異なる2つのモードを持つ。
//   - Downgrade: 認証情報に問題があれば匿名閲覧者として扱い、リクエストは失敗させない
//   - Reject:    認証情報が無い・無効な場合はUNAUTHENTICATEDで失敗させる
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/fletnix/internal/metrics"
	"github.com/hitoshi/fletnix/internal/model"
)

// OnFailure は認証情報の解決に失敗した場合の扱い。
type OnFailure int

const (
	// Downgrade は解決に失敗した場合に匿名閲覧者として続行する。
	Downgrade OnFailure = iota
	// Reject は解決に失敗した場合にリクエストを拒否する。
	Reject
)

// String はメトリクスやログで使うモード名を返す。
func (f OnFailure) String() string {
	switch f {
	case Downgrade:
		return "downgrade"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("OnFailure(%d)", int(f))
	}
}

// TokenVerifier はトークンを検証してアイデンティティを返す。
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// UserFinder はユーザーの存在確認に使用する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver は認証ヘッダーから閲覧者コンテキストを解決する。
type Resolver struct {
	verifier TokenVerifier
	users    UserFinder
	metrics  metrics.MetricsCollector
}

// NewResolver はResolverを生成する。
// usersがnilの場合はユーザーの存在確認を行わない。
func NewResolver(verifier TokenVerifier, users UserFinder, m metrics.MetricsCollector) *Resolver {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Resolver{verifier: verifier, users: users, metrics: m}
}

// Optional はベストエフォートで閲覧者を解決する。エラーを返すことはない。
func (r *Resolver) Optional(ctx context.Context, authHeader string) model.Viewer {
	viewer, _ := r.Resolve(ctx, authHeader, Downgrade)
	return viewer
}

// Required は認証済みの閲覧者を解決する。解決できない場合はエラーを返す。
func (r *Resolver) Required(ctx context.Context, authHeader string) (model.Viewer, error) {
	return r.Resolve(ctx, authHeader, Reject)
}

// Resolve は認証ヘッダーから閲覧者を解決する。
//
// 認証ヘッダーが無い場合は匿名閲覧者。Rejectモードではこれもエラーとする。
// トークンが無効、またはトークンのユーザーが存在しない場合、Downgradeでは匿名閲覧者、
// RejectではUNAUTHENTICATEDを返す。ユーザーの確認自体に失敗した場合、Downgradeでは
// 匿名閲覧者、Rejectではラップした内部エラーを返す。
// 年齢が不明なアイデンティティに既定の年齢を補うことはない。
func (r *Resolver) Resolve(ctx context.Context, authHeader string, onFailure OnFailure) (model.Viewer, error) {
	token, present := bearerToken(authHeader)
	if !present {
		if onFailure == Reject {
			return model.AnonymousViewer(), model.NewUnauthenticatedError("missing credential")
		}
		return model.AnonymousViewer(), nil
	}

	identity, err := r.verifier.Verify(token)
	if err != nil {
		return r.fail(ctx, onFailure, "invalid credential", err)
	}

	if r.users != nil {
		user, err := r.users.FindByID(ctx, identity.ID)
		if err != nil {
			if onFailure == Reject {
				return model.AnonymousViewer(), fmt.Errorf("ユーザーの確認に失敗しました: %w", err)
			}
			slog.WarnContext(ctx, "user lookup failed, continuing as anonymous",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()),
			)
			return model.AnonymousViewer(), nil
		}
		if user == nil {
			return r.fail(ctx, onFailure, "unknown user", fmt.Errorf("user %s not found", identity.ID))
		}
	}

	return model.Viewer{Identity: identity}, nil
}

func (r *Resolver) fail(ctx context.Context, onFailure OnFailure, reason string, cause error) (model.Viewer, error) {
	r.metrics.RecordAuthFailure(onFailure.String())
	if onFailure == Reject {
		return model.AnonymousViewer(), model.NewUnauthenticatedError(reason)
	}
	slog.DebugContext(ctx, "credential rejected, continuing as anonymous",
		slog.String("reason", reason),
		slog.String("error", cause.Error()),
	)
	return model.AnonymousViewer(), nil
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが空の場合はpresent=false。ヘッダーがあるがBearer形式でない場合は
// present=trueで空のトークンを返し、検証失敗として扱わせる。
func bearerToken(header string) (token string, present bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", true
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
