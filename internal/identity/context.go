package identity

import (
	"context"

	"github.com/hitoshi/fletnix/internal/model"
)

type contextKey struct{}

// WithViewer は閲覧者コンテキストを格納したcontextを返す。
func WithViewer(ctx context.Context, viewer model.Viewer) context.Context {
	return context.WithValue(ctx, contextKey{}, viewer)
}

// ViewerFromContext はcontextから閲覧者を取得する。
// 格納されていない場合は匿名閲覧者を返す。
func ViewerFromContext(ctx context.Context) model.Viewer {
	if v, ok := ctx.Value(contextKey{}).(model.Viewer); ok {
		return v
	}
	return model.AnonymousViewer()
}
