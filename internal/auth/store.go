// Package auth implements the Credential Store (C1) and Token Authority
// (C2): the on-disk OAuth credential triple and the lazy-refresh-on-401
// access-token authority built on top of it.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credentials is the on-disk OAuth credential triple plus the scope and
// token_type fields the token endpoint hands back alongside it.
type Credentials struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	ExpiresAt    string `json:"expires_at"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// HomeDir returns the per-user configuration directory, overridable by
// CLAUDE_RELAY_HOME.
func HomeDir() string {
	if d := os.Getenv("CLAUDE_RELAY_HOME"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude-relay")
}

func authPath() string {
	return filepath.Join(HomeDir(), "auth.json")
}

// ReadCredentials loads the credential triple from auth.json. Returns
// ErrNoCredentials if the file is absent.
func ReadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(authPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse auth.json: %w", err)
	}
	return &c, nil
}

// WriteCredentials atomically replaces auth.json with c: write to a temp
// file in the same directory, then rename over the destination. Invariant:
// after a successful refresh all three credential fields are replaced
// atomically and persisted before the new access token is returned.
func WriteCredentials(c *Credentials) error {
	dir := HomeDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create auth home directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	dest := authPath()
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}
