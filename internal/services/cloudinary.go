package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// MaxPhotoSize bounds profile photo uploads.
const MaxPhotoSize = 5 << 20

const photoFolder = "skillswap/profile-photos"

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// PhotoUploader stores an image and returns its public URL.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, owner string, data []byte) (string, error)
}

type CloudinaryService struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryService{cld: cld}, nil
}

// UploadPhoto uploads one image per owner; a new upload replaces the old one.
func (s *CloudinaryService) UploadPhoto(ctx context.Context, owner string, data []byte) (string, error) {
	overwrite := true
	result, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		Folder:       photoFolder,
		PublicID:     owner,
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	return result.SecureURL, nil
}

// ReadPhoto reads an uploaded form file and checks its size and content type.
func ReadPhoto(fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > MaxPhotoSize {
		return nil, fmt.Errorf("%w: photo is larger than %d bytes", ErrInvalidInput, MaxPhotoSize)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxPhotoSize {
		return nil, fmt.Errorf("%w: photo is larger than %d bytes", ErrInvalidInput, MaxPhotoSize)
	}
	if ct := http.DetectContentType(data); !allowedPhotoTypes[ct] {
		return nil, fmt.Errorf("%w: unsupported image type %s", ErrInvalidInput, ct)
	}
	return data, nil
}
