package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/adstash/adstash/internal/client"
)

const (
	configDir  = ".adstash"
	envPrefix  = "ADSTASH"
	keyAPIURL  = "api_url"
	keyToken   = "token"
	keyMaxSize = "max_bytes"

	defaultMaxBytes = 100 << 20
)

type Settings struct {
	APIURL   string `mapstructure:"api_url"`
	Token    string `mapstructure:"token"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// ConfigDir returns ~/.adstash, or dir when set.
func ConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}

// LoadSettings reads config.yaml from dir, then ADSTASH_* environment
// variables. A missing config file is not an error.
func LoadSettings(dir string) (*viper.Viper, Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault(keyAPIURL, client.DefaultBaseURL)
	v.SetDefault(keyMaxSize, defaultMaxBytes)
	// registered so Unmarshal sees ADSTASH_TOKEN
	v.SetDefault(keyToken, "")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, Settings{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return v, s, nil
}

// SaveAPIURL persists the api url so later commands reuse it.
func SaveAPIURL(v *viper.Viper, dir, apiURL string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	v.Set(keyAPIURL, apiURL)
	return v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}
