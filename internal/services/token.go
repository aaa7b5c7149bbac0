package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

const (
	// RevokedKeyPrefix is the Redis key prefix for revoked token ids
	RevokedKeyPrefix = "revoked:"
	issuer           = "skillswap"
)

// Claims is the payload of a bearer credential.
type Claims struct {
	UserID     string `json:"uid"`
	ProviderID string `json:"pid,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 bearer credentials. Revocations are
// kept in Redis until the token would have expired anyway.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, rdb *redis.Client) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		rdb:    rdb,
		now:    time.Now,
	}
}

// Issue signs a credential for user.
func (s *TokenService) Issue(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:     user.ID.Hex(),
		ProviderID: user.ProviderID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry and revocation.
func (s *TokenService) Parse(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	revoked, err := s.rdb.Exists(ctx, RevokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: revocation check: %v", ErrUnavailable, err)
	}
	if revoked > 0 {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	return claims, nil
}

// Revoke denies the credential for the rest of its lifetime.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return errors.New("token has no id")
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	return s.rdb.Set(ctx, RevokedKeyPrefix+claims.ID, claims.UserID, ttl).Err()
}
