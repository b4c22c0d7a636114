package catalogclient

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionExpired は保存済みトークンの有効期限が切れていることを示す。
var ErrSessionExpired = errors.New("session token has expired")

// User はログイン中のユーザー。Ageがnilの場合は年齢不明。
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
	Name  string `json:"name"`
}

// SessionState はセッションの現在値。Userがnilの場合は未ログイン。
type SessionState struct {
	Token string
	User  *User
}

// Authenticated はログイン中かを返す。
func (s SessionState) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Session はクライアント全体で共有するログイン状態。
//
// 状態の変更はLoginとLogoutの2か所だけで行い、画面の各部品はSubscribeで変更を購読する。
// 購読者は確定順に通知を受ける。
type Session struct {
	commitMu sync.Mutex

	mu        sync.RWMutex
	state     SessionState
	observers map[uint64]func(SessionState)
	nextID    uint64
}

// NewSession は未ログインのSessionを生成する。
func NewSession() *Session {
	return &Session{observers: make(map[uint64]func(SessionState))}
}

// sessionClaims はクライアントが読み取るトークンのクレーム。
type sessionClaims struct {
	Email string `json:"email"`
	Age   *int   `json:"age,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// RestoreSession は保存済みトークンからSessionを復元する。
// 署名はサーバーが検証するため、ここではクレームの読み取りと有効期限の確認のみを行う。
// ageクレームがない場合は年齢不明として復元する。
func RestoreSession(token string, now time.Time) (*Session, error) {
	user, err := userFromToken(token, now)
	if err != nil {
		return nil, err
	}
	s := NewSession()
	s.state = SessionState{Token: token, User: user}
	return s, nil
}

func userFromToken(token string, now time.Time) (*User, error) {
	var claims sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode session token: %w", err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrSessionExpired
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}
	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
		Age:   claims.Age,
		Name:  claims.Name,
	}, nil
}

// Current は現在の状態を返す。
func (s *Session) Current() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token は現在のトークンを返す。未ログインの場合は空文字列。
func (s *Session) Token() string {
	return s.Current().Token
}

// Login はログイン状態を確定し、購読者に通知する。
func (s *Session) Login(token string, user User) {
	u := user
	s.set(SessionState{Token: token, User: &u})
}

// Logout は未ログイン状態を確定し、購読者に通知する。
func (s *Session) Logout() {
	s.set(SessionState{})
}

// Subscribe は状態の変更を購読する。登録時に現在の状態で一度呼ばれる。
// 戻り値の関数で購読を解除する。
func (s *Session) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	state := s.state
	s.mu.Unlock()

	fn(state)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) set(state SessionState) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	s.state = state
	observers := make([]func(SessionState), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
