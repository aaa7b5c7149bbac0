package client

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

type usersEnvelope struct {
	Success bool           `json:"success"`
	Users   []*models.User `json:"users"`
}

type uploadEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	URL     string       `json:"url"`
	User    *models.User `json:"user"`
}

// UserSearch filters ListUsers. Mode is "teach", "learn" or empty for name
// search.
type UserSearch struct {
	Query string
	Mode  string
	Limit int
}

// ListUsers returns public profiles matching s.
func (c *Client) ListUsers(ctx context.Context, s UserSearch) ([]*models.User, error) {
	q := url.Values{}
	if s.Query != "" {
		q.Set("q", s.Query)
	}
	if s.Mode != "" {
		q.Set("mode", s.Mode)
	}
	if s.Limit > 0 {
		q.Set("limit", strconv.Itoa(s.Limit))
	}
	var out usersEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users", q, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// GetUser looks a profile up by its durable id.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users/"+pathID(id), nil, "", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// GetUserByProviderID looks a profile up by its identity provider uid.
func (c *Client) GetUserByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users/by-provider-id/"+pathID(providerID), nil, "", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateProfile upserts the supplied fields of the caller's profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/users", nil, token, update, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UploadPhoto replaces the caller's profile photo.
func (c *Client) UploadPhoto(ctx context.Context, token, filename string, data []byte) (*models.User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/users/photo", nil, token, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadEnvelope
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
