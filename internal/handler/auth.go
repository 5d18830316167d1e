package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/vitaltrack/internal/auth"
	"github.com/dukerupert/vitaltrack/internal/email"
	"github.com/dukerupert/vitaltrack/internal/model"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/token"
)

const verifyTokenTTL = 24 * time.Hour

type AuthHandler struct {
	users     *store.UserStore
	activity  *store.ActivityStore
	email     *email.Client
	logger    *slog.Logger
	jwtSecret string
	jwtTTL    time.Duration
}

func NewAuthHandler(users *store.UserStore, activity *store.ActivityStore, emailClient *email.Client, logger *slog.Logger, jwtSecret string, jwtTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:     users,
		activity:  activity,
		email:     emailClient,
		logger:    logger,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := h.users.GetByEmail(emailAddr)
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.users.Create(emailAddr, string(hashed), req.Username, req.FullName)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	if err := h.activity.Record(&model.ActivityLog{
		UserID:   user.ID,
		Action:   model.ActivityUserRegister,
		ItemName: "Account",
	}); err != nil {
		h.logger.Error("record activity", "error", err)
	}

	h.sendVerification(user)

	accessToken, err := token.Issue(h.jwtSecret, user.ID, token.PurposeAccess, h.jwtTTL)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: accessToken, User: user})
}

// sendVerification issues a verification token and emails it in the
// background. Delivery failure never fails registration.
func (h *AuthHandler) sendVerification(user *model.User) {
	if !h.email.Configured() {
		return
	}
	verifyToken, err := token.Issue(h.jwtSecret, user.ID, token.PurposeVerify, verifyTokenTTL)
	if err != nil {
		h.logger.Error("issue verify token", "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := h.email.SendVerification(ctx, user.Email, verifyToken); err != nil {
			h.logger.Error("send verification email", "email", user.Email, "error", err)
		}
	}()
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "account disabled")
		return
	}

	accessToken, err := token.Issue(h.jwtSecret, user.ID, token.PurposeAccess, h.jwtTTL)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	if err := h.activity.Record(&model.ActivityLog{
		UserID:   user.ID,
		Action:   model.ActivityUserLogin,
		ItemName: "Account",
	}); err != nil {
		h.logger.Error("record activity", "error", err)
	}

	writeJSON(w, http.StatusOK, authResponse{Token: accessToken, User: user})
}

// Verify confirms an email address from the token in the verification link.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	claims, err := token.Validate(h.jwtSecret, tokenStr, token.PurposeVerify)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	if err := h.users.MarkVerified(claims.UserID); err != nil {
		h.logger.Error("mark verified", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
