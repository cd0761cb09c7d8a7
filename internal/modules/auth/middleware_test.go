package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tchisanga/opsuite-backend/internal/modules/user"
)

type fakeUserRepo struct {
	users map[string]*user.User
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *user.User) error {
	f.users[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	for _, u := range f.users {
		if u.ID.String() == id {
			return u, nil
		}
	}
	return nil, errors.New("no rows")
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password, role string) *user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u := &user.User{ID: uuid.New(), Email: email, PasswordHash: string(hash), Role: role}
	repo.users[email] = u
	return u
}

func TestLoginAndMiddlewareRoundtrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	repo := &fakeUserRepo{users: map[string]*user.User{}}
	u := seedUser(t, repo, "manager@example.com", "hunter2", "MANAGER")
	svc := NewService(repo)

	token, err := svc.Login(context.Background(), "manager@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	var got Principal
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.UserID != u.ID || got.Role != "MANAGER" {
		t.Errorf("unexpected principal %+v", got)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	repo := &fakeUserRepo{users: map[string]*user.User{}}
	seedUser(t, repo, "manager@example.com", "hunter2", "MANAGER")
	svc := NewService(repo)

	if _, err := svc.Login(context.Background(), "manager@example.com", "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "hunter2"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestMiddleware_RejectsBadTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without valid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without header, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole("ADMIN", "MANAGER")
	ok := false
	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ok = true }))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(
		WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: "STAFF"})))
	if rec.Code != http.StatusForbidden || ok {
		t.Errorf("expected 403 for STAFF, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(
		WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: "ADMIN"})))
	if rec.Code != http.StatusOK || !ok {
		t.Errorf("expected pass for ADMIN, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without principal, got %d", rec.Code)
	}
}
