// Package credentials persists per-service secrets and overlays them with
// environment variables. The file on disk never wins over the environment.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// envAliases maps well-known service names to their conventional variables.
// Anything else falls back to FORGELOOP_<SERVICE>.
var envAliases = map[string]string{
	"github":   "FORGELOOP_GITHUB_TOKEN",
	"database": "FORGELOOP_DATABASE_URL",
	"openai":   "FORGELOOP_OPENAI_API_KEY",
	"stripe":   "FORGELOOP_STRIPE_API_KEY",
}

// Store is a file-backed secret store. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
	log  *zap.Logger
}

// NewStore loads the store at path, tolerating a missing file.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading credential store: %w", err)
		}
	}
	return &Store{path: path, v: v, log: log.Named("credentials")}, nil
}

// Get resolves a secret for the named service: environment first, then the
// store file.
func (s *Store) Get(service string) (string, bool) {
	if val := os.Getenv(EnvVar(service)); val != "" {
		return val, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	val := s.v.GetString(key(service))
	return val, val != ""
}

// Set persists a secret for the named service. The file is created with
// owner-only permissions.
func (s *Store) Set(service, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key(service), secret)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing credential store: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("restricting credential store permissions: %w", err)
	}
	s.log.Info("credential stored", zap.String("service", service))
	return nil
}

// Missing partitions the requested services into those with a resolvable
// secret and those without.
func (s *Store) Missing(services []string) (available, missing []string) {
	for _, svc := range services {
		if _, ok := s.Get(svc); ok {
			available = append(available, svc)
		} else {
			missing = append(missing, svc)
		}
	}
	return available, missing
}

// EnvVar names the environment variable consulted for a service.
func EnvVar(service string) string {
	norm := strings.ToLower(strings.TrimSpace(service))
	if alias, ok := envAliases[norm]; ok {
		return alias
	}
	upper := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, norm)
	return "FORGELOOP_" + strings.ToUpper(upper)
}

func key(service string) string {
	return "services." + strings.ToLower(strings.TrimSpace(service))
}
