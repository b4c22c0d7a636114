package handler

import (
	"context"

	"github.com/hitoshi/fletnix/internal/auth"
	"github.com/hitoshi/fletnix/internal/catalog"
	"github.com/hitoshi/fletnix/internal/model"
)

// CatalogServiceAdapter は catalog.Service を CatalogServiceInterface に適合させるアダプタ。
type CatalogServiceAdapter struct {
	svc *catalog.Service
}

// NewCatalogServiceAdapter はCatalogServiceAdapterを生成する。
func NewCatalogServiceAdapter(svc *catalog.Service) *CatalogServiceAdapter {
	return &CatalogServiceAdapter{svc: svc}
}

// ListShows は作品一覧をhandlerレスポンス型で返す。
func (a *CatalogServiceAdapter) ListShows(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
	page, err := a.svc.List(ctx, filter, viewer)
	if err != nil {
		return nil, err
	}
	return toShowListResponse(page), nil
}

// GetShow は作品詳細をhandlerレスポンス型で返す。
func (a *CatalogServiceAdapter) GetShow(ctx context.Context, identifier string, viewer model.Viewer) (*showResponse, error) {
	show, err := a.svc.FetchOne(ctx, identifier, viewer)
	if err != nil {
		return nil, err
	}
	resp := toShowResponse(show)
	return &resp, nil
}

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はユーザーを登録し、handlerレスポンス型で返す。
func (a *AuthServiceAdapter) Register(ctx context.Context, in auth.RegisterInput) (*authResponse, error) {
	result, err := a.svc.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(result), nil
}

// Login はログインし、handlerレスポンス型で返す。
func (a *AuthServiceAdapter) Login(ctx context.Context, email, password string) (*authResponse, error) {
	result, err := a.svc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(result), nil
}

// CurrentUser は指定ユーザーの情報をhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) CurrentUser(ctx context.Context, userID string) (*userResponse, error) {
	user, err := a.svc.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func toAuthResponse(result *auth.Result) *authResponse {
	return &authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	}
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Email: user.Email,
		Age:   user.Age,
		Name:  user.Name,
	}
}

// compile-time interface check
var (
	_ CatalogServiceInterface = (*CatalogServiceAdapter)(nil)
	_ AuthServiceInterface    = (*AuthServiceAdapter)(nil)
)
