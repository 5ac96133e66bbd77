// internal/archive/auth.go
package archive

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the result of a successful SSO login.
type Session struct {
	AccessToken string
	User        User

	// Subject and ExpiresAt are read from the access token without
	// verifying its signature. They are zero when the token is opaque.
	Subject   string
	ExpiresAt time.Time
}

// Login posts the contributor object to /auth/sso-login with the API key.
func (c *Client) Login(ctx context.Context, who Contributor) (*Session, error) {
	const op = "sso login"
	body, err := jsonBody(op, who)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, call{
		op:          op,
		name:        "POST /auth/sso-login",
		method:      http.MethodPost,
		path:        "/auth/sso-login",
		apiKey:      true,
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	if err := resp.expect(op, http.StatusOK); err != nil {
		return nil, err
	}

	var data struct {
		AccessToken string `json:"accessToken"`
		User        User   `json:"user"`
	}
	if err := resp.envelope(op, &data); err != nil {
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, missing(op, resp.status, "data.accessToken")
	}

	s := &Session{AccessToken: data.AccessToken, User: data.User}
	s.inspect()
	return s, nil
}

func (s *Session) inspect() {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
}
