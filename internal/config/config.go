// Package config holds the ServerConfig defaults/env/flag layering and the
// on-disk JSON file shapes C9 watches.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ServerConfig holds runtime server configuration.
type ServerConfig struct {
	Host               string
	Port               int
	Verbose            bool
	Debug              bool
	LocalAPIKey        string
	CacheMessageCount  int
	DedupeWindowMillis int
}

// ClientID returns the OAuth client id used for the login flow.
func ClientID() string {
	if id := os.Getenv("CLAUDE_RELAY_CLIENT_ID"); id != "" {
		return id
	}
	return "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
}

// DefaultFromEnv builds a ServerConfig from defaults overridden by
// environment variables, the way the teacher's config layer does before
// flags are applied on top.
func DefaultFromEnv() *ServerConfig {
	return &ServerConfig{
		Host:               envOrDefault("CLAUDE_RELAY_HOST", "127.0.0.1"),
		Port:               envIntOrDefault("CLAUDE_RELAY_PORT", 8000),
		Verbose:            envBool("CLAUDE_RELAY_VERBOSE"),
		Debug:              envBool("CLAUDE_RELAY_DEBUG"),
		CacheMessageCount:  envIntOrDefault("CLAUDE_RELAY_CACHE_MESSAGE_COUNT", 3),
		DedupeWindowMillis: envIntOrDefault("CLAUDE_RELAY_DEDUPE_WINDOW_MS", 2000),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
