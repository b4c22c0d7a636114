package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseSize はAPIレスポンスとして読み込む最大サイズ。
const maxResponseSize = 4 << 20

// APIクライアントが返すエラー。errors.Isで判定する。
var (
	ErrUnauthenticated = errors.New("認証が必要です")
	ErrRestricted      = errors.New("年齢制限によりこの作品は表示できません")
	ErrNotFound        = errors.New("作品が見つかりません")
	ErrUnavailable     = errors.New("カタログサービスに接続できません")
)

// StatusError はAPIがエラーステータスを返したことを示す。
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog api returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("catalog api returned %d", e.StatusCode)
}

// Is はステータスコードに対応するエラー値と一致するかを返す。
// 403（年齢制限）と404（存在しない）は別のエラーとして区別する。
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRestricted:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// Show はAPIが返す作品。
type Show struct {
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

// ShowPage はAPIが返す作品一覧の1ページ。
type ShowPage struct {
	Items      []Show `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
}

// RegisterRequest は会員登録の入力。
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Name     string `json:"name,omitempty"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *Session
	Logger     *slog.Logger
	PageSize   int
}

// Client はカタログAPIのクライアント。
// セッションにトークンがあればAuthorizationヘッダーに付与する。
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	logger     *slog.Logger
	pageSize   int
}

// NewClient はClientを生成する。
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog api base url: %q", cfg.BaseURL)
	}
	c := &Client{
		baseURL:    base.String(),
		httpClient: cfg.HTTPClient,
		session:    cfg.Session,
		logger:     cfg.Logger,
		pageSize:   cfg.PageSize,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.session == nil {
		c.session = NewSession()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.pageSize <= 0 {
		c.pageSize = 15
	}
	return c, nil
}

// Session はクライアントが使用するセッションを返す。
func (c *Client) Session() *Session {
	return c.session
}

// ListShows は条件に一致する作品一覧を取得する。
func (c *Client) ListShows(ctx context.Context, filter Filter) (*ShowPage, error) {
	filter = filter.Normalize()
	q := url.Values{}
	if filter.TitleSearch != "" {
		q.Set("search", filter.TitleSearch)
	}
	if filter.CastSearch != "" {
		q.Set("cast", filter.CastSearch)
	}
	if t := filter.Type.APIValue(); t != "" {
		q.Set("type", t)
	}
	q.Set("page", strconv.Itoa(filter.Page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))

	var page ShowPage
	if err := c.do(ctx, http.MethodGet, "/catalog", q, nil, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []Show{}
	}
	return &page, nil
}

// GetShow は作品を1件取得する。
// 年齢制限の場合はErrRestricted、存在しない場合はErrNotFoundに一致するエラーを返す。
func (c *Client) GetShow(ctx context.Context, identifier string) (*Show, error) {
	var show Show
	if err := c.do(ctx, http.MethodGet, "/catalog/"+url.PathEscape(identifier), nil, nil, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// Login はログインし、成功した場合はセッションを確定する。
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body)
}

// Register は会員登録し、成功した場合はセッションを確定する。
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

// Logout はセッションを破棄する。
func (c *Client) Logout() {
	c.session.Logout()
}

// Me はログイン中のユーザーを取得する。
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("認証レスポンスにトークンが含まれていません")
	}
	c.session.Login(resp.Token, resp.User)
	user := resp.User
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("catalog api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var e errorResponse
		if json.Unmarshal(data, &e) == nil {
			statusErr.Code = e.Code
			statusErr.Message = e.Message
		}
		c.logger.Debug("catalog api returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("code", statusErr.Code),
		)
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ShowLister = (*Client)(nil)
