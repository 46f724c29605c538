package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "adstash"
	keyringUser    = "personal-access-token"
	fallbackFile   = ".token"
)

var ErrNoToken = errors.New("not logged in: run `adstash login` or set ADSTASH_TOKEN")

// TokenStore keeps the personal access token in the OS keyring. Headless
// systems without a keyring fall back to a 0600 file in the config dir.
type TokenStore struct {
	dir string
}

func NewTokenStore(dir string) TokenStore {
	return TokenStore{dir: dir}
}

func (s TokenStore) fallbackPath() string {
	return filepath.Join(s.dir, fallbackFile)
}

func (s TokenStore) Save(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath(), []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s TokenStore) Load() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}
	b, ferr := os.ReadFile(s.fallbackPath())
	if ferr != nil || len(strings.TrimSpace(string(b))) == 0 {
		return "", ErrNoToken
	}
	return strings.TrimSpace(string(b)), nil
}

// Delete removes the token from both places. Missing entries are fine.
func (s TokenStore) Delete() error {
	kerr := keyring.Delete(keyringService, keyringUser)
	if errors.Is(kerr, keyring.ErrNotFound) {
		kerr = nil
	}
	ferr := os.Remove(s.fallbackPath())
	if errors.Is(ferr, os.ErrNotExist) {
		ferr = nil
	}
	if kerr != nil && ferr != nil {
		return fmt.Errorf("failed to delete token: %w", errors.Join(kerr, ferr))
	}
	return nil
}
