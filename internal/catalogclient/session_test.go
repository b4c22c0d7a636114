package catalogclient

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var sessionNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func signTestToken(t *testing.T, claims sessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("client-test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func validClaims(age *int) sessionClaims {
	return sessionClaims{
		Email: "neo@example.com",
		Age:   age,
		Name:  "Neo",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(sessionNow.Add(time.Hour)),
		},
	}
}

func TestRestoreSession_ReadsClaims(t *testing.T) {
	token := signTestToken(t, validClaims(intPtr(25)))

	s, err := RestoreSession(token, sessionNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.Current()
	if !state.Authenticated() || state.Token != token {
		t.Fatalf("state = %+v, want authenticated with token", state)
	}
	want := User{ID: "user-1", Email: "neo@example.com", Age: intPtr(25), Name: "Neo"}
	if !reflect.DeepEqual(*state.User, want) {
		t.Errorf("user = %+v, want %+v", *state.User, want)
	}
}

// TestRestoreSession_MissingAgeIsUnknown はageクレームがない場合に18歳とみなさず年齢不明として復元することを検証する。
func TestRestoreSession_MissingAgeIsUnknown(t *testing.T) {
	token := signTestToken(t, validClaims(nil))

	s, err := RestoreSession(token, sessionNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if age := s.Current().User.Age; age != nil {
		t.Errorf("Age = %d, want nil (unknown)", *age)
	}
}

func TestRestoreSession_Expired(t *testing.T) {
	claims := validClaims(intPtr(30))
	claims.ExpiresAt = jwt.NewNumericDate(sessionNow.Add(-time.Minute))

	_, err := RestoreSession(signTestToken(t, claims), sessionNow)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestRestoreSession_Malformed(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := RestoreSession(token, sessionNow); err == nil {
			t.Errorf("RestoreSession(%q) should fail", token)
		}
	}
}

// TestSession_ObserversFollowSingleCommitPoint は購読者が登録時と各確定時に同じ状態を受け取ることを検証する。
func TestSession_ObserversFollowSingleCommitPoint(t *testing.T) {
	s := NewSession()
	var header, detail recorder[SessionState]

	unsubscribeHeader := s.Subscribe(header.record)
	s.Subscribe(detail.record)

	s.Login("tok", User{ID: "user-1", Email: "neo@example.com", Age: intPtr(17)})
	s.Logout()
	unsubscribeHeader()
	unsubscribeHeader()
	s.Login("tok2", User{ID: "user-2"})

	headerStates := header.all()
	if len(headerStates) != 3 {
		t.Fatalf("header notifications = %d, want 3 (initial, login, logout)", len(headerStates))
	}
	if headerStates[0].Authenticated() || !headerStates[1].Authenticated() || headerStates[2].Authenticated() {
		t.Errorf("header states = %+v", headerStates)
	}

	detailStates := detail.all()
	if len(detailStates) != 4 {
		t.Fatalf("detail notifications = %d, want 4", len(detailStates))
	}
	if detailStates[3].Token != "tok2" || detailStates[3].User.ID != "user-2" {
		t.Errorf("last detail state = %+v", detailStates[3])
	}
	if got := s.Token(); got != "tok2" {
		t.Errorf("Token() = %q, want tok2", got)
	}
}
