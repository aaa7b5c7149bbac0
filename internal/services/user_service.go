package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/channel"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/pkg/utils"
)

// UserRepository is the persistence the user and auth services need.
// UserStore implements it.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByProviderID(ctx context.Context, providerID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]*models.User, error)
}

// UserService serves profiles and applies profile updates.
type UserService struct {
	repo      UserRepository
	cache     *ProfileCache
	sanitizer *Sanitizer
	logger    *zap.Logger
}

// NewUserService builds the service. cache may be nil.
func NewUserService(repo UserRepository, cache *ProfileCache, sanitizer *Sanitizer, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, cache: cache, sanitizer: sanitizer, logger: logger}
}

// Get returns a profile by durable id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if s.cache != nil {
		if user, ok := s.cache.Get(ctx, id); ok {
			return user, nil
		}
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, user); err != nil {
			s.logger.Warn("profile cache write failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

// GetByProviderID returns the profile linked to a provider id.
func (s *UserService) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider id is required", ErrInvalidInput)
	}
	return s.repo.FindByProviderID(ctx, providerID)
}

// List returns public profiles, optionally filtered.
func (s *UserService) List(ctx context.Context, f UserFilter) ([]*models.User, error) {
	f.Query = strings.TrimSpace(f.Query)
	switch f.Mode {
	case SearchAll, SearchTeach, SearchLearn:
	default:
		return nil, &utils.ValidationError{Field: "mode", Message: "mode must be teach or learn"}
	}
	return s.repo.List(ctx, f)
}

// UpdateProfile applies the supplied fields to the caller's profile. The
// provider id is stored only when the profile has none.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if upd.Name != nil {
		name := s.sanitizer.Text(*upd.Name)
		if err := utils.ValidateName(name); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if upd.Email != nil {
		email := utils.NormalizeEmail(*upd.Email)
		if err := utils.ValidateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			fields["email"] = email
		}
	}
	if upd.Photo != nil {
		photo := strings.TrimSpace(*upd.Photo)
		if err := validatePhotoURL(photo); err != nil {
			return nil, err
		}
		fields["photo"] = photo
	}
	if upd.TeachSkills != nil {
		skills, err := utils.NormalizeSkills("teach_skills", s.sanitizeAll(*upd.TeachSkills))
		if err != nil {
			return nil, err
		}
		fields["teach_skills"] = skills
	}
	if upd.LearnSkills != nil {
		skills, err := utils.NormalizeSkills("learn_skills", s.sanitizeAll(*upd.LearnSkills))
		if err != nil {
			return nil, err
		}
		fields["learn_skills"] = skills
	}
	if upd.Bio != nil {
		bio := s.sanitizer.Text(*upd.Bio)
		if err := utils.ValidateBio(bio); err != nil {
			return nil, err
		}
		fields["bio"] = bio
	}
	if upd.ProviderID != nil && user.ProviderID == "" {
		pid := strings.TrimSpace(*upd.ProviderID)
		if pid != "" {
			if err := validateProviderID(pid); err != nil {
				return nil, err
			}
			fields["provider_id"] = pid
		}
	}

	if len(fields) == 0 {
		return user, nil
	}
	return s.update(ctx, user.ID, fields)
}

// SetPhoto stores an uploaded photo URL on the caller's profile.
func (s *UserService) SetPhoto(ctx context.Context, userID, photoURL string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return s.update(ctx, oid, map[string]interface{}{"photo": photoURL})
}

func (s *UserService) update(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	updated, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id.Hex())
	return updated, nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	dropCachedProfile(ctx, s.cache, s.logger, id)
}

func dropCachedProfile(ctx context.Context, cache *ProfileCache, logger *zap.Logger, id string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, id); err != nil {
		logger.Warn("profile cache invalidation failed", zap.String("user_id", id), zap.Error(err))
	}
}

func (s *UserService) sanitizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = s.sanitizer.Text(v)
	}
	return out
}

func validatePhotoURL(photo string) error {
	if photo == "" {
		return nil
	}
	u, err := url.Parse(photo)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return &utils.ValidationError{Field: "photo", Message: "Photo must be an http(s) URL"}
	}
	return nil
}

// Provider ids double as chat ids, so they must be usable in a channel id.
func validateProviderID(pid string) error {
	if _, err := channel.Derive(pid, pid); err != nil {
		return &utils.ValidationError{Field: "provider_id", Message: "Provider id must not be empty or contain " + channel.Separator}
	}
	return nil
}
