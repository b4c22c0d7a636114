// Package credential は署名付きアイデンティティトークンの発行・検証とパスワードハッシュを提供する。
package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/fletnix/internal/model"
)

// ErrInvalidToken はトークンが不正・期限切れ・検証不能な場合のエラー。
var ErrInvalidToken = errors.New("invalid token")

// issuer はトークンのiss。
const issuer = "fletnix"

// Claims はアイデンティティトークンのクレーム。
// ageは任意で、欠落している場合は年齢不明として扱う。
type Claims struct {
	Email string `json:"email"`
	Age   *int   `json:"age,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService はHS256でトークンを発行・検証する。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はアイデンティティに対するトークンを発行し、トークンと有効期限を返す。
func (s *TokenService) Issue(identity model.Identity) (string, time.Time, error) {
	if identity.ID == "" {
		return "", time.Time{}, fmt.Errorf("identity ID is required")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: identity.Email,
		Age:   identity.Age,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify はトークンを検証し、アイデンティティを返す。
// 検証に失敗した場合はErrInvalidTokenをラップしたエラーを返す。
func (s *TokenService) Verify(tokenStr string) (*model.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Age != nil && *claims.Age < 0 {
		return nil, fmt.Errorf("%w: negative age claim", ErrInvalidToken)
	}

	return &model.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Age:   claims.Age,
		Name:  claims.Name,
	}, nil
}
