package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kalehub/claude-relay/internal/auth"
)

// ConfigFile is the on-disk config.json shape: model-mapping table plus the
// server bind block.
type ConfigFile struct {
	ModelMapping map[string]string `json:"modelMapping"`
	Server       struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
}

// APIKeyFile is the on-disk apikey.json shape: the local API key record, or
// an absent file meaning "accept all local callers".
type APIKeyFile struct {
	Key       string `json:"key"`
	CreatedAt string `json:"createdAt"`
}

// ConfigPath returns the path to config.json under the credential home.
func ConfigPath() string {
	return filepath.Join(auth.HomeDir(), "config.json")
}

// APIKeyPath returns the path to apikey.json under the credential home.
func APIKeyPath() string {
	return filepath.Join(auth.HomeDir(), "apikey.json")
}

// ReadConfigFile reads and parses config.json. A missing file is not an
// error; it returns a zero-value ConfigFile.
func ReadConfigFile() (*ConfigFile, error) {
	var cf ConfigFile
	cf.ModelMapping = map[string]string{}
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &cf, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.ModelMapping == nil {
		cf.ModelMapping = map[string]string{}
	}
	return &cf, nil
}

// ReadAPIKeyFile reads and parses apikey.json. A missing file returns
// (nil, nil): absent means "accept all local callers".
func ReadAPIKeyFile() (*APIKeyFile, error) {
	data, err := os.ReadFile(APIKeyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ak APIKeyFile
	if err := json.Unmarshal(data, &ak); err != nil {
		return nil, err
	}
	if ak.Key == "" {
		return nil, nil
	}
	return &ak, nil
}

// WriteConfigFile pretty-prints cf to config.json, creating the home
// directory if needed.
func WriteConfigFile(cf *ConfigFile) error {
	if err := os.MkdirAll(auth.HomeDir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
