package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/vitaltrack/internal/database"
	"github.com/dukerupert/vitaltrack/internal/email"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/token"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAuthHandler(t *testing.T) (*AuthHandler, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewAuthHandler(
		store.NewUserStore(db),
		store.NewActivityStore(db),
		email.NewClient("", "noreply@example.com", "http://localhost:8080"),
		discardLogger(),
		testSecret,
		time.Hour,
	)
	return h, db
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}

func TestRegister(t *testing.T) {
	h, _ := setupAuthHandler(t)

	rec := postJSON(t, h.Register, "/api/v1/auth/register", map[string]any{
		"email":    "New@Example.com",
		"password": "hunter2hunter2",
		"username": "newbie",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Email != "new@example.com" {
		t.Errorf("email = %q, want lowercased", resp.User.Email)
	}

	claims, err := token.Validate(testSecret, resp.Token, token.PurposeAccess)
	if err != nil {
		t.Fatalf("returned token invalid: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Errorf("token user = %q, want %q", claims.UserID, resp.User.ID)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	h, _ := setupAuthHandler(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing email", map[string]any{"password": "hunter2hunter2"}},
		{"bad email", map[string]any{"email": "nope", "password": "hunter2hunter2"}},
		{"short password", map[string]any{"email": "a@b.com", "password": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.Register, "/api/v1/auth/register", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _ := setupAuthHandler(t)

	body := map[string]any{"email": "dupe@example.com", "password": "hunter2hunter2"}
	if rec := postJSON(t, h.Register, "/api/v1/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register: %d", rec.Code)
	}
	if rec := postJSON(t, h.Register, "/api/v1/auth/register", body); rec.Code != http.StatusConflict {
		t.Errorf("second register: %d, want 409", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	h, _ := setupAuthHandler(t)

	register := map[string]any{"email": "login@example.com", "password": "hunter2hunter2"}
	if rec := postJSON(t, h.Register, "/api/v1/auth/register", register); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	rec := postJSON(t, h.Login, "/api/v1/auth/login", register)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := token.Validate(testSecret, resp.Token, token.PurposeAccess); err != nil {
		t.Errorf("login token invalid: %v", err)
	}

	rec = postJSON(t, h.Login, "/api/v1/auth/login", map[string]any{
		"email": "login@example.com", "password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	rec = postJSON(t, h.Login, "/api/v1/auth/login", map[string]any{
		"email": "nobody@example.com", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", rec.Code)
	}
}

func TestVerify(t *testing.T) {
	h, db := setupAuthHandler(t)

	if rec := postJSON(t, h.Register, "/api/v1/auth/register", map[string]any{
		"email": "verify@example.com", "password": "hunter2hunter2",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	users := store.NewUserStore(db)
	user, err := users.GetByEmail("verify@example.com")
	if err != nil || user == nil {
		t.Fatalf("get user: %v", err)
	}

	verifyToken, err := token.Issue(testSecret, user.ID, token.PurposeVerify, time.Hour)
	if err != nil {
		t.Fatalf("issue verify token: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify?token="+verifyToken, nil)
	rec := httptest.NewRecorder()
	h.Verify(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", rec.Code, rec.Body)
	}

	got, err := users.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.IsVerified {
		t.Error("expected user verified")
	}

	// An access token must not work as a verification token.
	accessToken, err := token.Issue(testSecret, user.ID, token.PurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	r = httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify?token="+accessToken, nil)
	rec = httptest.NewRecorder()
	h.Verify(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("access-token verify status = %d, want 401", rec.Code)
	}
}
