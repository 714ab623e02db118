package service

import (
	"context"
	"net/http"

	"github.com/pageza/recipebook/internal/apiclient"
	"github.com/pageza/recipebook/internal/types"
)

// AuthService wraps the account endpoints
type AuthService struct {
	api APIClient
}

// NewAuthService creates a new AuthService instance
func NewAuthService(api APIClient) *AuthService {
	return &AuthService{api: api}
}

var _ IAuthService = (*AuthService)(nil)

// Login exchanges credentials for a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*types.AuthResponse, error) {
	var out types.AuthResponse
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login/",
		Body:   types.LoginRequest{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, wrapErr(err)
	}
	if out.AccessToken() == "" {
		return nil, apiclient.NewRequestError("login response carried no token", nil)
	}
	return &out, nil
}

// Register creates an account and returns its token
func (s *AuthService) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error) {
	if req.Password2 == "" {
		req.Password2 = req.Password
	}
	var out types.AuthResponse
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/register/",
		Body:   req,
	}, &out)
	if err != nil {
		return nil, wrapErr(err)
	}
	if out.AccessToken() == "" {
		return nil, apiclient.NewRequestError("registration response carried no token", nil)
	}
	return &out, nil
}

// CurrentUser returns the account the current token belongs to
func (s *AuthService) CurrentUser(ctx context.Context) (*types.User, error) {
	var out types.User
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/auth/user/"}, &out); err != nil {
		return nil, wrapErr(err)
	}
	return &out, nil
}
