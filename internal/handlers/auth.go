package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/middleware"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/internal/services"
)

// AuthServiceInterface is what the auth handler needs from services.AuthService.
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	FederatedLogin(ctx context.Context, claims models.FederatedClaims) (*models.AuthResponse, error)
	Me(ctx context.Context, claims *services.Claims) (*models.User, error)
	Logout(ctx context.Context, claims *services.Claims) error
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FederatedLoginRequest accepts both the current field names and the ones
// sent by the first front end (firebaseUid, name, photo).
type FederatedLoginRequest struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`

	FirebaseUID string `json:"firebaseUid"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
}

func (r FederatedLoginRequest) claims() models.FederatedClaims {
	c := models.FederatedClaims{UID: r.UID, Email: r.Email, DisplayName: r.DisplayName, PhotoURL: r.PhotoURL}
	if c.UID == "" {
		c.UID = r.FirebaseUID
	}
	if c.DisplayName == "" {
		c.DisplayName = r.Name
	}
	if c.PhotoURL == "" {
		c.PhotoURL = r.Photo
	}
	return c
}

// AuthResponse is returned by every login flow.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *models.User `json:"user,omitempty"`
}

type AuthHandler struct {
	service AuthServiceInterface
	logger  *zap.Logger
}

func NewAuthHandler(service AuthServiceInterface, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	res, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, Message: "User created successfully", Token: res.Token, User: res.User})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed in successfully", Token: res.Token, User: res.User})
}

// FederatedLogin handles POST /api/auth/federated-login and its
// /api/auth/firebase-login alias.
func (h *AuthHandler) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	var req FederatedLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.FederatedLogin(r.Context(), req.claims())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Token: res.Token, User: res.User})
}

// Me handles GET /api/auth/user. It is the credential validator clients
// use to restore a session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "No token, authorization denied")
		return
	}

	user, err := h.service.Me(r.Context(), claims)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented credential.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "No token, authorization denied")
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed out"})
}
