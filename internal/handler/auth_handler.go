package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/fletnix/internal/auth"
	"github.com/hitoshi/fletnix/internal/identity"
	"github.com/hitoshi/fletnix/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*authResponse, error)
	Login(ctx context.Context, email, password string) (*authResponse, error)
	CurrentUser(ctx context.Context, userID string) (*userResponse, error)
}

// AuthHandler はユーザー登録・ログインのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	validate *validator.Validate
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: newValidator(),
	}
}

// --- リクエスト・レスポンス型 ---

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Age      *int   `json:"age" validate:"required,min=0,max=150"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// userResponse はユーザー情報のレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Age   int    `json:"age"`
	Name  string `json:"name"`
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// Register はユーザーを登録してトークンを返す。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if apiErr := h.decode(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Age:      *req.Age,
		Name:     req.Name,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Login はメールアドレスとパスワードでログインしてトークンを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := h.decode(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me は認証済みユーザーの情報を返す。
// GET /auth/me（認証必須）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	viewer := identity.ViewerFromContext(r.Context())
	if viewer.IsAnonymous() {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("missing credential"))
		return
	}

	user, err := h.service.CurrentUser(r.Context(), viewer.UserID())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// decode はリクエストボディをJSONとして読み込み、バリデーションする。
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) *model.APIError {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return model.NewInvalidRequestError("リクエストボディの解析に失敗しました。")
	}
	if err := h.validate.Struct(dst); err != nil {
		return model.NewInvalidRequestError(validationMessage(err))
	}
	return nil
}

// newValidator はエラーにJSONのフィールド名を使うvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage は最初のバリデーションエラーをユーザー向けのメッセージに変換する。
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "入力内容が不正です。"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です。", fe.Field())
	case "email":
		return fmt.Sprintf("%sの形式が正しくありません。", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%sは%s文字以上で入力してください。", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%sは%s以上で入力してください。", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%sは%s文字以内で入力してください。", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%sは%s以下で入力してください。", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%sが不正です。", fe.Field())
	}
}
