package auth

import (
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// ClientID is the OAuth client id registered for claude-relay's PKCE flow.
	ClientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
	// TokenURL is the OAuth token endpoint used for both the authorization-code
	// exchange (login) and the refresh_token grant (C2 force-refresh).
	TokenURL = "https://console.anthropic.com/v1/oauth/token"
)

// TokenManager is the Token Authority (C2). It hands out a usable access
// token without ever proactively checking expiry (spec: the upstream is
// authoritative), and performs a force-refresh only when told to by the
// caller after an upstream 401.
type TokenManager struct {
	mu sync.Mutex
}

// NewTokenManager constructs a Token Authority.
func NewTokenManager() *TokenManager {
	return &TokenManager{}
}

// tokenURL returns TokenURL, overridable by CLAUDE_RELAY_OAUTH_TOKEN_URL so
// tests can stand in a local server for the real OAuth endpoint.
func tokenURL() string {
	if u := os.Getenv("CLAUDE_RELAY_OAUTH_TOKEN_URL"); u != "" {
		return u
	}
	return TokenURL
}

// GetAccessToken returns the stored access token as-is, without checking
// ExpiresAt. Returns ErrNoCredentials (mapped to NotAuthenticated) if no
// credential record exists on disk.
func (tm *TokenManager) GetAccessToken() (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	creds, err := ReadCredentials()
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// ForceRefresh is triggered only in response to an upstream 401. It POSTs
// the refresh token to the OAuth endpoint, receives a new triple, persists
// it atomically, and returns the new access token. Concurrent refreshes
// from independent processes are acceptable; the last writer wins.
func (tm *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	creds, err := ReadCredentials()
	if err != nil {
		return "", err
	}
	if creds.RefreshToken == "" {
		return "", ErrRefreshFailed
	}

	cfg := &oauth2.Config{
		ClientID: ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		logrus.WithError(err).Warn("oauth refresh failed")
		return "", ErrRefreshFailed
	}

	newRefresh := tok.RefreshToken
	if newRefresh == "" {
		newRefresh = creds.RefreshToken
	}

	next := &Credentials{
		RefreshToken: newRefresh,
		AccessToken:  tok.AccessToken,
		ExpiresAt:    tok.Expiry.UTC().Format("2006-01-02T15:04:05Z"),
		TokenType:    tok.TokenType,
	}
	if raw, ok := tok.Extra("scope").(string); ok {
		next.Scope = raw
	}

	if err := WriteCredentials(next); err != nil {
		logrus.WithError(err).Error("failed to persist refreshed credentials")
		return "", err
	}

	return next.AccessToken, nil
}
