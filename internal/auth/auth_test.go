package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/draftcore/draftcore/backend-go/internal/db"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(store.Close)
	s := NewService(store, "test-secret")
	s.bcryptCost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	reg, err := s.Register(ctx, "  Ada@Example.com ", "correct horse", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "ada@example.com" || !strings.HasPrefix(reg.User.ID, "user_") {
		t.Errorf("registered user = %+v", reg.User)
	}

	if _, err := s.Register(ctx, "ada@example.com", "another pass", "Ada 2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register error = %v, want ErrEmailTaken", err)
	}

	login, err := s.Login(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sub, err := s.ValidateToken(login.Token); err != nil || sub != reg.User.ID {
		t.Errorf("ValidateToken = %q, %v", sub, err)
	}

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", "correct horse"},
	} {
		if _, err := s.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s, %s) error = %v", tc.email, tc.password, err)
		}
	}

	u, err := s.GetUser(ctx, reg.User.ID)
	if err != nil || u.DisplayName != "Ada" {
		t.Errorf("GetUser = %+v, %v", u, err)
	}
	if _, err := s.GetUser(ctx, "user_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user error = %v", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService(t)
	good, err := s.issueToken("user_1")
	if err != nil {
		t.Fatal(err)
	}

	other := newTestService(t)
	other.jwtSecret = []byte("other-secret")

	expired := newTestService(t)
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _ := expired.issueToken("user_1")

	tests := []struct {
		name  string
		svc   *Service
		token string
	}{
		{"garbage", s, "not-a-token"},
		{"wrong secret", other, good},
		{"expired", s, old},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	s := newTestService(t)
	token, _ := s.issueToken("user_1")

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/projects"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && seen != "user_1" {
				t.Errorf("user id in context = %q", seen)
			}
		})
	}
}

func TestHandlerRegisterValidation(t *testing.T) {
	h := NewHandler(newTestService(t))
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"no email", `{"password":"longenough","displayName":"A"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.c","password":"short","displayName":"A"}`, http.StatusBadRequest},
		{"ok", `{"email":"a@b.c","password":"longenough","displayName":"A"}`, http.StatusCreated},
		{"taken", `{"email":"a@b.c","password":"longenough","displayName":"A"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if tt.status == http.StatusCreated {
				var res AuthResult
				if err := json.NewDecoder(rec.Body).Decode(&res); err != nil || res.Token == "" {
					t.Errorf("response = %+v, %v", res, err)
				}
			}
		})
	}
}

func TestHandlerLoginAndMe(t *testing.T) {
	s := newTestService(t)
	h := NewHandler(s)
	reg, err := s.Register(context.Background(), "ada@example.com", "correct horse", "Ada")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing password", `{"email":"ada@example.com"}`, http.StatusBadRequest},
		{"wrong password", `{"email":"ada@example.com","password":"wrong horse"}`, http.StatusUnauthorized},
		{"mixed case email", `{"email":"Ada@Example.com","password":"correct horse"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}

	me := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		h.Me(rec, req)
		return rec
	}
	if rec := me(reg.User.ID); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"displayName":"Ada"`) {
		t.Errorf("me = %d %s", rec.Code, rec.Body)
	}
	if rec := me("user_missing"); rec.Code != http.StatusNotFound {
		t.Errorf("me for unknown user = %d", rec.Code)
	}
}
