package credential

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// KeyName is the single entry persisted in the credential file.
	KeyName = "openrouter_api_key"

	// Prefix every OpenRouter key starts with.
	Prefix = "sk-or-v1-"
)

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid API key: " + e.Reason
}

// Validate trims value and checks it against the issuer's key format.
func Validate(value string) (string, error) {
	key := strings.TrimSpace(value)
	if key == "" {
		return "", &ValidationError{Reason: "please enter an API key"}
	}
	if !strings.HasPrefix(key, Prefix) {
		return "", &ValidationError{Reason: fmt.Sprintf("OpenRouter keys should start with %q", Prefix)}
	}

	return key, nil
}

// Store keeps one API key in a small YAML file.
type Store struct {
	path string

	mu  sync.RWMutex
	key string
}

// Open loads the credential file at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("No credential file yet", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	s.key = values[KeyName]

	return s, nil
}

func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.key
}

// Set validates and persists value. The previous key stays in place when
// either step fails.
func (s *Store) Set(value string) error {
	key, err := Validate(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(key); err != nil {
		return err
	}
	s.key = key

	return nil
}

// Seed installs a key taken from the environment without writing it to disk.
// It is ignored when a key is already stored or value does not validate.
func (s *Store) Seed(value string) bool {
	key, err := Validate(value)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != "" {
		return false
	}
	s.key = key

	return true
}

func (s *Store) persist(key string) error {
	data, err := yaml.Marshal(map[string]string{KeyName: key})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}

	return nil
}

// Mask returns a short preview of key that is safe to log or display.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= len(Prefix)+4 {
		return Prefix + "…"
	}

	return key[:len(Prefix)+4] + "…"
}
