package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/middleware"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/internal/services"
)

// UserServiceInterface is what the user handler needs from services.UserService.
type UserServiceInterface interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	List(ctx context.Context, f services.UserFilter) ([]*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
	SetPhoto(ctx context.Context, userID, photoURL string) (*models.User, error)
}

type UserResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

type UsersResponse struct {
	Success bool           `json:"success"`
	Users   []*models.User `json:"users"`
}

type UserHandler struct {
	service UserServiceInterface
	logger  *zap.Logger
}

func NewUserHandler(service UserServiceInterface, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// UpdateProfile handles POST /api/users. Only the caller's own profile can
// be changed, and only the supplied fields are touched.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "No token, authorization denied")
		return
	}
	var upd models.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, upd)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

// List handles GET /api/users?q=&mode=teach|learn&limit=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.UserFilter{
		Query: q.Get("q"),
		Mode:  services.SearchMode(q.Get("mode")),
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		f.Limit = int64(n)
	}

	users, err := h.service.List(r.Context(), f)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, UsersResponse{Success: true, Users: users})
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

// GetByProviderID handles GET /api/users/by-provider-id/{pid} and the
// by-google-id alias.
func (h *UserHandler) GetByProviderID(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByProviderID(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}
