package service

import (
	"context"
	"errors"
	"fmt"

	"agora/internal/api"
	"agora/internal/models"
	"agora/internal/validation"
)

var (
	// ErrNameRejected is returned when a guest name cannot be claimed.
	ErrNameRejected = errors.New("name rejected")
	// ErrInvalidCredentials is returned when a password login fails for any reason.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService obtains sessions, either by claiming a guest name or by
// verifying a username and password.
type AuthService struct {
	api AuthAPI
}

func NewAuthService(api AuthAPI) *AuthService {
	return &AuthService{api: api}
}

// Claim registers a guest name. Blank names fail without a request.
func (s *AuthService) Claim(ctx context.Context, username string) (models.User, error) {
	name, err := validation.NormalizeGuestName(username)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrNameRejected, err)
	}
	resp, err := s.api.GuestLogin(ctx, name)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrNameRejected, err)
	}
	return models.User{
		Username:   resp.Username,
		IsStaff:    resp.IsStaff,
		AuthHeader: resp.AuthToken,
	}, nil
}

// Login checks username and password against GET /me/ using Basic auth.
// The same credential is kept for every later request. Usernames a Basic
// credential cannot carry fail without a request.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.User, error) {
	if err := validation.ValidateLoginUsername(username); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	header := api.BasicAuthHeader(username, password)
	me, err := s.api.Me(ctx, header)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return models.User{
		Username:   me.Username,
		IsStaff:    me.IsStaff,
		AuthHeader: header,
	}, nil
}
