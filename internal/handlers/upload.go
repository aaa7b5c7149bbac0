package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/middleware"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/internal/services"
)

type UploadResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	URL     string       `json:"url,omitempty"`
	User    *models.User `json:"user,omitempty"`
}

// PhotoHandler uploads profile photos. uploader is nil when Cloudinary is
// not configured.
type PhotoHandler struct {
	uploader services.PhotoUploader
	users    UserServiceInterface
	logger   *zap.Logger
}

func NewPhotoHandler(uploader services.PhotoUploader, users UserServiceInterface, logger *zap.Logger) *PhotoHandler {
	return &PhotoHandler{uploader: uploader, users: users, logger: logger}
}

// Upload handles POST /api/users/photo with the image in the "file" form field.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "No token, authorization denied")
		return
	}
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Photo uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "No file provided")
		return
	}
	file.Close()

	data, err := services.ReadPhoto(fileHeader)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	url, err := h.uploader.UploadPhoto(r.Context(), claims.UserID, data)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	user, err := h.users.SetPhoto(r.Context(), claims.UserID, url)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "Photo uploaded successfully",
		URL:     url,
		User:    user,
	})
}
