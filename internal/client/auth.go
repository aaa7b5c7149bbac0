package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/internal/reconciler"
)

type authEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

type userEnvelope struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// AuthResult is the credential and profile returned by a login call.
type AuthResult struct {
	Token string
	User  *models.User
}

func (e *authEnvelope) result() (*AuthResult, error) {
	if e.Token == "" || e.User == nil {
		return nil, fmt.Errorf("login response missing token or user")
	}
	return &AuthResult{Token: e.Token, User: e.User}, nil
}

// Register creates an email/password account.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var out authEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.result()
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out authEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.result()
}

// FederatedLogin exchanges an identity provider session for a credential.
func (c *Client) FederatedLogin(ctx context.Context, pu reconciler.ProviderUser) (*AuthResult, error) {
	var out authEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/federated-login", nil, "", models.FederatedClaims{
		UID:         pu.UID,
		Email:       pu.Email,
		DisplayName: pu.DisplayName,
		PhotoURL:    pu.PhotoURL,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.result()
}

// WhoAmI resolves token to its backend profile. A rejected credential
// yields an error wrapping ErrUnauthenticated.
func (c *Client) WhoAmI(ctx context.Context, token string) (*reconciler.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, token, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("who-am-i response missing user")
	}
	return IdentityFromUser(out.User), nil
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, token, nil, nil)
}

// IdentityFromUser converts a backend profile to an authoritative identity.
func IdentityFromUser(u *models.User) *reconciler.Identity {
	if u == nil {
		return nil
	}
	id := &reconciler.Identity{
		ID:          u.ID.Hex(),
		ProviderID:  u.ProviderID,
		Name:        u.Name,
		Email:       u.Email,
		Photo:       u.Photo,
		TeachSkills: u.TeachSkills,
		LearnSkills: u.LearnSkills,
		Bio:         u.Bio,
		Source:      reconciler.SourceBackend,
	}
	if id.TeachSkills == nil {
		id.TeachSkills = []string{}
	}
	if id.LearnSkills == nil {
		id.LearnSkills = []string{}
	}
	return id
}
