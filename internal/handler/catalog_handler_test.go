package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fletnix/internal/catalog"
	"github.com/hitoshi/fletnix/internal/identity"
	"github.com/hitoshi/fletnix/internal/model"
)

// --- モック定義 ---

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	listShowsFn func(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error)
	getShowFn   func(ctx context.Context, identifier string, viewer model.Viewer) (*showResponse, error)
}

func (m *mockCatalogService) ListShows(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
	if m.listShowsFn != nil {
		return m.listShowsFn(ctx, filter, viewer)
	}
	return &showListResponse{Items: []showResponse{}, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *mockCatalogService) GetShow(ctx context.Context, identifier string, viewer model.Viewer) (*showResponse, error) {
	if m.getShowFn != nil {
		return m.getShowFn(ctx, identifier, viewer)
	}
	return nil, model.NewShowNotFoundError(identifier)
}

func intPtr(v int) *int { return &v }

// withViewer はリクエストコンテキストに閲覧者を注入する。
func withViewer(r *http.Request, viewer model.Viewer) *http.Request {
	return r.WithContext(identity.WithViewer(r.Context(), viewer))
}

// withURLParam はchiのURLパラメータを設定したリクエストを返す。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

// --- GET /catalog ---

// TestCatalogHandler_ListShows_NormalizesQuery はクエリパラメータがフィルタに変換されることを検証する。
func TestCatalogHandler_ListShows_NormalizesQuery(t *testing.T) {
	var got model.CatalogFilter
	var gotViewer model.Viewer
	svc := &mockCatalogService{
		listShowsFn: func(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
			got = filter
			gotViewer = viewer
			return &showListResponse{Items: []showResponse{}, Page: filter.Page, PageSize: filter.PageSize}, nil
		},
	}
	h := NewCatalogHandler(svc, catalog.DefaultPaging())

	req := httptest.NewRequest(http.MethodGet, "/catalog?search=+matrix+&cast=Keanu&type=Movie&page=2&pageSize=10", nil)
	req = withViewer(req, model.Viewer{Identity: &model.Identity{ID: "user-1", Age: intPtr(25)}})
	w := httptest.NewRecorder()

	h.ListShows(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	want := model.CatalogFilter{Search: "matrix", Cast: "Keanu", Type: model.ContentTypeMovie, Page: 2, PageSize: 10}
	if got != want {
		t.Errorf("filter = %+v, want %+v", got, want)
	}
	if gotViewer.UserID() != "user-1" {
		t.Errorf("viewer = %q, want user-1", gotViewer.UserID())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

// TestCatalogHandler_ListShows_Defaults は不正なパラメータが既定値になることを検証する。
func TestCatalogHandler_ListShows_Defaults(t *testing.T) {
	var got model.CatalogFilter
	svc := &mockCatalogService{
		listShowsFn: func(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
			got = filter
			return &showListResponse{Items: []showResponse{}}, nil
		},
	}
	h := NewCatalogHandler(svc, catalog.DefaultPaging())

	w := httptest.NewRecorder()
	h.ListShows(w, httptest.NewRequest(http.MethodGet, "/catalog?page=0&pageSize=abc&type=Documentary", nil))

	want := model.CatalogFilter{Page: 1, PageSize: catalog.DefaultPageSize}
	if got != want {
		t.Errorf("filter = %+v, want %+v", got, want)
	}
}

// TestCatalogHandler_ListShows_LimitAlias はlimitがpageSizeの別名として扱われることを検証する。
func TestCatalogHandler_ListShows_LimitAlias(t *testing.T) {
	var got model.CatalogFilter
	svc := &mockCatalogService{
		listShowsFn: func(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
			got = filter
			return &showListResponse{Items: []showResponse{}}, nil
		},
	}
	h := NewCatalogHandler(svc, catalog.DefaultPaging())

	h.ListShows(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog?limit=30", nil))

	if got.PageSize != 30 {
		t.Errorf("PageSize = %d, want 30", got.PageSize)
	}
}

// TestCatalogHandler_ListShows_ResponseShape はレスポンスのJSONキーを検証する。
func TestCatalogHandler_ListShows_ResponseShape(t *testing.T) {
	svc := &mockCatalogService{
		listShowsFn: func(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
			return toShowListResponse(&model.PaginatedShows{
				Items:      []model.Show{{ID: "id-1", ShowID: "s1", Type: model.ContentTypeMovie, Title: "The Matrix"}},
				Page:       1,
				PageSize:   15,
				TotalItems: 1,
				TotalPages: 1,
			}), nil
		},
	}
	h := NewCatalogHandler(svc, catalog.DefaultPaging())

	w := httptest.NewRecorder()
	h.ListShows(w, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	var raw map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for _, key := range []string{"items", "page", "pageSize", "totalItems", "totalPages", "limit"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	items := raw["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["show_id"] != "s1" || item["type"] != "Movie" {
		t.Errorf("item = %v", item)
	}
	if cast, ok := item["cast"].([]interface{}); !ok || len(cast) != 0 {
		t.Errorf("cast = %v, want empty array", item["cast"])
	}
	if item["date_added"] != nil || item["release_year"] != nil {
		t.Errorf("unknown date/year should be null: %v %v", item["date_added"], item["release_year"])
	}
}

// TestCatalogHandler_ListShows_ServiceError はサービスエラー時に500が返ることを検証する。
func TestCatalogHandler_ListShows_ServiceError(t *testing.T) {
	svc := &mockCatalogService{
		listShowsFn: func(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error) {
			return nil, errors.New("store unavailable")
		},
	}
	h := NewCatalogHandler(svc, catalog.DefaultPaging())

	w := httptest.NewRecorder()
	h.ListShows(w, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if code := decodeErrorCode(t, w); code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", code, model.ErrCodeInternal)
	}
}

// --- GET /catalog/{identifier} ---

// TestCatalogHandler_GetShow_StatusMapping はサービスの結果に応じたステータスコードを検証する。
func TestCatalogHandler_GetShow_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "成功", wantStatus: http.StatusOK},
		{name: "年齢制限", err: model.NewShowRestrictedError(), wantStatus: http.StatusForbidden, wantCode: model.ErrCodeShowRestricted},
		{name: "存在しない", err: model.NewShowNotFoundError("s9"), wantStatus: http.StatusNotFound, wantCode: model.ErrCodeShowNotFound},
		{name: "内部エラー", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIdentifier string
			svc := &mockCatalogService{
				getShowFn: func(ctx context.Context, identifier string, viewer model.Viewer) (*showResponse, error) {
					gotIdentifier = identifier
					if tt.err != nil {
						return nil, tt.err
					}
					return &showResponse{ShowID: identifier, Title: "The Matrix"}, nil
				},
			}
			h := NewCatalogHandler(svc, catalog.DefaultPaging())

			req := withURLParam(httptest.NewRequest(http.MethodGet, "/catalog/s1", nil), "identifier", "s1")
			w := httptest.NewRecorder()
			h.GetShow(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotIdentifier != "s1" {
				t.Errorf("identifier = %q, want s1", gotIdentifier)
			}
			if tt.wantCode != "" {
				if code := decodeErrorCode(t, w); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			}
		})
	}
}

// TestToShowResponse は作品のレスポンス変換を検証する。
func TestToShowResponse(t *testing.T) {
	added := time.Date(2021, time.September, 25, 0, 0, 0, 0, time.UTC)
	resp := toShowResponse(&model.Show{
		ID:          "id-1",
		ShowID:      "s1",
		Type:        model.ContentTypeTVShow,
		Title:       "Dark",
		Cast:        []string{"Louis Hofmann"},
		DateAdded:   &added,
		ReleaseYear: 2017,
		Rating:      "TV-MA",
	})

	if resp.Type != "TV Show" {
		t.Errorf("Type = %q", resp.Type)
	}
	if resp.DateAdded == nil || *resp.DateAdded != "2021-09-25" {
		t.Errorf("DateAdded = %v", resp.DateAdded)
	}
	if resp.ReleaseYear == nil || *resp.ReleaseYear != 2017 {
		t.Errorf("ReleaseYear = %v", resp.ReleaseYear)
	}
	if resp.ListedIn == nil {
		t.Error("ListedIn should be an empty slice, not nil")
	}
}

// TestMapAPIErrorToHTTPStatus はエラーコードとHTTPステータスの対応を検証する。
func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		model.ErrCodeUnauthenticated:        http.StatusUnauthorized,
		model.ErrCodeInvalidCredentials:     http.StatusUnauthorized,
		model.ErrCodeShowRestricted:         http.StatusForbidden,
		model.ErrCodeShowNotFound:           http.StatusNotFound,
		model.ErrCodeInvalidRequest:         http.StatusBadRequest,
		model.ErrCodeEmailAlreadyRegistered: http.StatusBadRequest,
		model.ErrCodeRateLimitExceeded:      http.StatusTooManyRequests,
		model.ErrCodeInternal:               http.StatusInternalServerError,
		"UNKNOWN":                           http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := mapAPIErrorToHTTPStatus(&model.APIError{Code: code}); got != want {
			t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
