// Package auth はメールアドレスとパスワードによるユーザー登録・ログインを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fletnix/internal/credential"
	"github.com/hitoshi/fletnix/internal/model"
	"github.com/hitoshi/fletnix/internal/repository"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

// TokenIssuer はアイデンティティトークンを発行する。
type TokenIssuer interface {
	Issue(identity model.Identity) (string, time.Time, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Email    string
	Password string
	Age      int
	Name     string
}

// Result は登録・ログイン成功時の結果。
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens TokenIssuer, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		config:   config,
		now:      time.Now,
	}
}

// Register はユーザーを登録し、トークンを発行する。
// メールアドレスは小文字化・トリムして保存する。登録済みの場合はEMAIL_ALREADY_REGISTEREDを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, model.NewInvalidRequestError("メールアドレスを入力してください。")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("パスワードは%d文字以上で入力してください。", MinPasswordLength))
	}
	if in.Age < 0 {
		return nil, model.NewInvalidRequestError("年齢は0以上で入力してください。")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailAlreadyRegisteredError()
	}

	hash, err := credential.HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Age:          in.Age,
		Name:         strings.TrimSpace(in.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailAlreadyRegisteredError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered", slog.String("user_id", user.ID))

	return s.issue(user)
}

// Login はメールアドレスとパスワードを検証し、トークンを発行する。
// ユーザーが存在しない場合とパスワードが一致しない場合は同じINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := credential.ComparePassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return s.issue(user)
}

// GetUser は指定IDのユーザーを取得する。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError("unknown user")
	}
	return user, nil
}

func (s *Service) issue(user *model.User) (*Result, error) {
	age := user.Age
	token, exp, err := s.tokens.Issue(model.Identity{
		ID:    user.ID,
		Email: user.Email,
		Age:   &age,
		Name:  user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Result{Token: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
