package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/metrics"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/pkg/utils"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)

// AuthService implements registration, both login flows and the credential
// validator.
type AuthService struct {
	repo      UserRepository
	tokens    *TokenService
	cache     *ProfileCache
	sanitizer *Sanitizer
	metrics   metrics.Recorder
	logger    *zap.Logger
}

// NewAuthService builds the service. cache is the profile cache shared with
// UserService; it may be nil.
func NewAuthService(repo UserRepository, tokens *TokenService, cache *ProfileCache, sanitizer *Sanitizer, rec metrics.Recorder, logger *zap.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, cache: cache, sanitizer: sanitizer, metrics: rec, logger: logger}
}

// Register creates an email/password account and returns a credential for it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}
	name = s.sanitizer.Text(name)
	if err := utils.ValidateName(name); err != nil {
		return nil, err
	}
	if name == "" {
		name = localPart(email)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Name: name, Email: email, Password: hash}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()))
	s.metrics.RecordLogin("register", true)
	return s.respond(user)
}

// Login checks an email/password pair. Legacy bcrypt hashes are upgraded on
// success.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &utils.ValidationError{Field: "email", Message: "Email and password are required"}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.RecordLogin("password", false)
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if user.Password == "" {
		s.metrics.RecordLogin("password", false)
		return nil, errInvalidCredentials
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil {
		s.logger.Error("stored password hash unreadable", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	if !ok {
		s.metrics.RecordLogin("password", false)
		return nil, errInvalidCredentials
	}

	if utils.IsLegacyHash(user.Password) {
		s.upgradeHash(ctx, user, password)
	}

	s.metrics.RecordLogin("password", true)
	return s.respond(user)
}

func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.Error(err))
		return
	}
	if _, err := s.repo.UpdateFields(ctx, user.ID, map[string]interface{}{"password": hash}); err != nil {
		s.logger.Warn("password rehash not stored", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return
	}
	user.Password = hash
}

// FederatedLogin finds the account for the asserted provider identity. An
// account with the same email is linked to the provider id, filling in only
// a missing name or photo. Otherwise a new account is created.
func (s *AuthService) FederatedLogin(ctx context.Context, claims models.FederatedClaims) (*models.AuthResponse, error) {
	uid := strings.TrimSpace(claims.UID)
	if err := validateProviderID(uid); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(claims.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	name := s.sanitizer.Text(claims.DisplayName)
	photo := strings.TrimSpace(claims.PhotoURL)
	if validatePhotoURL(photo) != nil {
		photo = ""
	}

	user, err := s.findOrLink(ctx, uid, email, name, photo)
	if errors.Is(err, ErrConflict) {
		// a concurrent login for the same identity created it first
		user, err = s.repo.FindByProviderID(ctx, uid)
	}
	if err != nil {
		s.metrics.RecordLogin("federated", false)
		return nil, err
	}

	s.metrics.RecordLogin("federated", true)
	return s.respond(user)
}

func (s *AuthService) findOrLink(ctx context.Context, uid, email, name, photo string) (*models.User, error) {
	user, err := s.repo.FindByProviderID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user, err = s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.ProviderID != "" && user.ProviderID != uid {
			return nil, fmt.Errorf("%w: email is linked to another identity", ErrForbidden)
		}
		fields := map[string]interface{}{"provider_id": uid}
		if user.Name == "" && name != "" {
			fields["name"] = name
		}
		if user.Photo == "" && photo != "" {
			fields["photo"] = photo
		}
		s.logger.Info("linking provider identity", zap.String("user_id", user.ID.Hex()))
		linked, err := s.repo.UpdateFields(ctx, user.ID, fields)
		if err != nil {
			return nil, err
		}
		// cached copies still address the user by durable id
		dropCachedProfile(ctx, s.cache, s.logger, user.ID.Hex())
		return linked, nil
	case errors.Is(err, ErrNotFound):
		if name == "" {
			name = localPart(email)
		}
		user = &models.User{Name: name, Email: email, ProviderID: uid, Photo: photo}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("user created from provider identity", zap.String("user_id", user.ID.Hex()))
		return user, nil
	default:
		return nil, err
	}
}

// Authenticate validates a bearer credential.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	return s.tokens.Parse(ctx, token)
}

// Me resolves validated claims to the current profile.
func (s *AuthService) Me(ctx context.Context, claims *Claims) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the presented credential.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	return s.tokens.Revoke(ctx, claims)
}

func (s *AuthService) respond(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
