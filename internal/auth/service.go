package auth

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/currency/internal/config"
	"github.com/congo-pay/currency/internal/identity"
)

type Service struct {
	cfg    config.Config
	idRepo identity.Repository
	now    func() time.Time
}

func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo, now: time.Now}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues tokens for a signer already authenticated by identity.Service.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	now := s.now()
	access, accessExp, err := signToken(user.ID, user.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := signToken(user.ID, user.TokenVersion, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(accessExp.Sub(now).Seconds())}, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	if _, err := s.currentUser(ctx, claims); err != nil {
		return "", 0, err
	}

	signed, _, err := signToken(claims.Subject, claims.Version, s.cfg.JWTSecret, s.cfg.AccessTokenTTL, s.now())
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Verify checks an access token and returns the signer it was issued to.
func (s *Service) Verify(ctx context.Context, accessToken string) (identity.User, error) {
	claims, err := parseToken(accessToken, s.cfg.JWTSecret)
	if err != nil {
		return identity.User{}, err
	}
	return s.currentUser(ctx, claims)
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

func (s *Service) currentUser(ctx context.Context, claims *Claims) (identity.User, error) {
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return identity.User{}, ErrInvalidToken
		}
		return identity.User{}, err
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, ErrTokenRevoked
	}
	return user, nil
}
