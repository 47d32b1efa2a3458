package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name entries are stored under.
const Service = "fxconvert"

var ErrNotFound = errors.New("credential not found")

// Store resolves provider API keys: an explicit env value wins, then the
// OS keyring.
type Store struct {
	service string
	env     map[string]string
}

// New builds a Store. env maps provider id to a key read from configuration;
// empty values fall through to the keyring.
func New(env map[string]string) *Store {
	return &Store{service: Service, env: env}
}

// Lookup returns the key for provider or ErrNotFound.
func (s *Store) Lookup(provider string) (string, error) {
	if v := strings.TrimSpace(s.env[provider]); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(envName(provider))); v != "" {
		return v, nil
	}
	v, err := keyring.Get(s.service, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", provider, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", provider, err)
	}
	return v, nil
}

// Key is Lookup without the error, for wiring optional keys.
func (s *Store) Key(provider string) string {
	v, _ := s.Lookup(provider)
	return v
}

func (s *Store) Set(provider, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("empty credential")
	}
	if err := keyring.Set(s.service, provider, secret); err != nil {
		return fmt.Errorf("keyring set %s: %w", provider, err)
	}
	return nil
}

func (s *Store) Delete(provider string) error {
	err := keyring.Delete(s.service, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", provider, ErrNotFound)
	}
	return err
}

// envName maps "currencyapi" to FXCONVERT_CURRENCYAPI_KEY.
func envName(provider string) string {
	return "FXCONVERT_" + strings.ToUpper(provider) + "_KEY"
}
