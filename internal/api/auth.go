// internal/api/auth.go
//
// Auth endpoints used by the admin login screen.

package api

import (
	"context"
	"net/http"
)

// User is the authenticated operator.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Tokens is an access/refresh pair.
type Tokens struct {
	Access  string `json:"token"`
	Refresh string `json:"refreshToken,omitempty"`
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	User User `json:"user"`
	Tokens
}

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, cr Credentials) (LoginResult, error) {
	var env Envelope[LoginResult]
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, cr, &env); err != nil {
		return LoginResult{}, err
	}
	if err := rejected(http.StatusOK, env); err != nil {
		return LoginResult{}, err
	}
	return env.Data, nil
}

// Refresh trades a refresh token for a new pair.  A response without a new
// refresh token keeps the old one.
func (c *Client) Refresh(ctx context.Context, refresh string) (Tokens, error) {
	var env Envelope[Tokens]
	body := map[string]string{"refreshToken": refresh}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, &env); err != nil {
		return Tokens{}, err
	}
	if err := rejected(http.StatusOK, env); err != nil {
		return Tokens{}, err
	}
	if env.Data.Refresh == "" {
		env.Data.Refresh = refresh
	}
	return env.Data, nil
}

// VerifyToken checks the current bearer token and returns its user.  Call it
// on a client built with WithCredentials.
func (c *Client) VerifyToken(ctx context.Context) (User, error) {
	var env Envelope[struct {
		User User `json:"user"`
	}]
	if err := c.do(ctx, http.MethodGet, "/auth/verify-token", nil, nil, &env); err != nil {
		return User{}, err
	}
	return env.Data.User, rejected(http.StatusOK, env)
}

// Logout tells the backend to drop the session.  Failures are advisory; the
// local session is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}
