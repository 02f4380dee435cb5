// Package identity supplies the bearer token used by the REST client and the
// transport, and decodes the current user from it.
package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/code-troopers/postits/pkg/board"
	"github.com/golang-jwt/jwt/v4"
)

// ErrNoToken is returned when a token source has nothing to offer.
var ErrNoToken = errors.New("no bearer token configured")

// TokenSource yields the current bearer token. Tokens are fetched on every
// use so that a refreshed token file is picked up without restarting.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// FileToken reads the token from a file on each call, trimming whitespace.
type FileToken struct {
	Path string
}

// Token implements TokenSource.
func (f FileToken) Token() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s: %w", f.Path, ErrNoToken)
	}
	return token, nil
}

// Claims are the identity claims carried by the authority's tokens.
type Claims struct {
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Picture    string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// CurrentUser decodes the user a token was issued to. The signature is not
// verified: the authority does that on every request, the client only needs
// its own id and display attributes.
func CurrentUser(token string) (board.User, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return board.User{}, fmt.Errorf("failed to decode token: %w", err)
	}
	if claims.Subject == "" {
		return board.User{}, fmt.Errorf("token has no subject claim")
	}
	return board.User{
		ID:         claims.Subject,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Email:      claims.Email,
		Picture:    claims.Picture,
	}, nil
}

// CurrentUserFrom fetches a token from src and decodes its user.
func CurrentUserFrom(src TokenSource) (board.User, error) {
	token, err := src.Token()
	if err != nil {
		return board.User{}, err
	}
	return CurrentUser(token)
}
