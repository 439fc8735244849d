package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// ParseJWTClaims decodes the payload segment of a JWT without verifying the
// signature. Used only for the "claude-relay info" diagnostic command; never
// load-bearing for the request path.
func ParseJWTClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidJWT
	}
	payload := parts[1]
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	var claims map[string]any
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}
