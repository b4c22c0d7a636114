package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fletnix/internal/catalog"
	"github.com/hitoshi/fletnix/internal/identity"
	"github.com/hitoshi/fletnix/internal/model"
)

// dateLayout はdate_addedのJSON表現。
const dateLayout = "2006-01-02"

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// ListShows は閲覧者に表示可能な作品の1ページを返す。
	ListShows(ctx context.Context, filter model.CatalogFilter, viewer model.Viewer) (*showListResponse, error)
	// GetShow は識別子で作品を取得する。年齢制限の場合はSHOW_RESTRICTED、存在しない場合はSHOW_NOT_FOUND。
	GetShow(ctx context.Context, identifier string, viewer model.Viewer) (*showResponse, error)
}

// CatalogHandler はカタログ閲覧のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
	paging  catalog.Paging
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, paging catalog.Paging) *CatalogHandler {
	return &CatalogHandler{service: service, paging: paging}
}

// --- レスポンス型 ---

// showResponse は作品1件のレスポンス。
type showResponse struct {
	ID          string   `json:"id"`
	ShowID      string   `json:"show_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Director    string   `json:"director"`
	Cast        []string `json:"cast"`
	Country     string   `json:"country"`
	DateAdded   *string  `json:"date_added"`
	ReleaseYear *int     `json:"release_year"`
	Rating      string   `json:"rating"`
	Duration    string   `json:"duration"`
	ListedIn    []string `json:"listed_in"`
	Description string   `json:"description"`
}

// showListResponse は作品一覧のレスポンス。
// limitは旧クライアント向けにpageSizeと同じ値を返す。
type showListResponse struct {
	Items      []showResponse `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	Limit      int            `json:"limit"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

// ListShows は作品一覧を取得する。
// GET /catalog?search=&cast=&type=&page=&pageSize=
func (h *CatalogHandler) ListShows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.NormalizeFilter(catalog.FilterParams{
		Search:   q.Get("search"),
		Cast:     q.Get("cast"),
		Type:     q.Get("type"),
		Page:     q.Get("page"),
		PageSize: q.Get("pageSize"),
		Limit:    q.Get("limit"),
	}, h.paging)

	result, err := h.service.ListShows(r.Context(), filter, identity.ViewerFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetShow は作品詳細を取得する。
// GET /catalog/{identifier}
func (h *CatalogHandler) GetShow(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	show, err := h.service.GetShow(r.Context(), identifier, identity.ViewerFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, show)
}

// toShowResponse はmodel.ShowからAPIレスポンスに変換する。
func toShowResponse(show *model.Show) showResponse {
	resp := showResponse{
		ID:          show.ID,
		ShowID:      show.ShowID,
		Type:        string(show.Type),
		Title:       show.Title,
		Director:    show.Director,
		Cast:        nonNil(show.Cast),
		Country:     show.Country,
		Rating:      show.Rating,
		Duration:    show.Duration,
		ListedIn:    nonNil(show.ListedIn),
		Description: show.Description,
	}
	if show.DateAdded != nil {
		d := show.DateAdded.UTC().Format(dateLayout)
		resp.DateAdded = &d
	}
	if show.ReleaseYear > 0 {
		y := show.ReleaseYear
		resp.ReleaseYear = &y
	}
	return resp
}

func toShowListResponse(page *model.PaginatedShows) *showListResponse {
	items := make([]showResponse, len(page.Items))
	for i := range page.Items {
		items[i] = toShowResponse(&page.Items[i])
	}
	return &showListResponse{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Limit:      page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
