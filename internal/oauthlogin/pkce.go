// Package oauthlogin implements the PKCE authorization-code login flow
// against Anthropic's OAuth endpoints. Because the registered redirect
// target is console.anthropic.com rather than a local listener, the flow
// is paste-based: the CLI opens the authorization URL, the browser lands on
// a page that displays an authorization code, and the user pastes that code
// back into the terminal.
package oauthlogin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/kalehub/claude-relay/internal/auth"
)

const (
	authorizeURL = "https://claude.ai/oauth/authorize"
	redirectURL  = "https://console.anthropic.com/oauth/code/callback"
	scope        = "org:create_api_key user:profile user:inference"
)

// Session holds the PKCE verifier and anti-CSRF state for one login attempt.
type Session struct {
	cfg      *oauth2.Config
	Verifier string
	State    string
}

// NewSession starts a fresh PKCE session: a random S256 verifier and an
// opaque state value that must round-trip through the pasted callback.
func NewSession() (*Session, error) {
	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, err
	}
	return &Session{
		cfg: &oauth2.Config{
			ClientID: auth.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  auth.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes:      strings.Split(scope, " "),
			RedirectURL: redirectURL,
		},
		Verifier: oauth2.GenerateVerifier(),
		State:    hex.EncodeToString(stateBytes),
	}, nil
}

// AuthURL returns the URL to open in the browser.
func (s *Session) AuthURL() string {
	return s.cfg.AuthCodeURL(s.State, oauth2.S256ChallengeOption(s.Verifier))
}

// ParsePastedCode splits the "code#state" string Claude's callback page
// displays and verifies the state matches this session.
func (s *Session) ParsePastedCode(pasted string) (code string, err error) {
	pasted = strings.TrimSpace(pasted)
	parts := strings.SplitN(pasted, "#", 2)
	code = parts[0]
	if code == "" {
		return "", fmt.Errorf("pasted value did not contain an authorization code")
	}
	if len(parts) == 2 && parts[1] != "" && parts[1] != s.State {
		return "", fmt.Errorf("state mismatch; refusing to exchange a code from a different session")
	}
	return code, nil
}

// ExchangeCode exchanges the authorization code for the credential triple
// and persists it via the Credential Store.
func (s *Session) ExchangeCode(ctx context.Context, code string) (*auth.Credentials, error) {
	tok, err := s.cfg.Exchange(ctx, code, oauth2.VerifierOption(s.Verifier))
	if err != nil {
		return nil, err
	}

	creds := &auth.Credentials{
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
		ExpiresAt:    tok.Expiry.UTC().Format("2006-01-02T15:04:05Z"),
		TokenType:    tok.TokenType,
	}
	if raw, ok := tok.Extra("scope").(string); ok {
		creds.Scope = raw
	}
	if err := auth.WriteCredentials(creds); err != nil {
		return nil, err
	}
	return creds, nil
}
