package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/artpar/stackman/internal/core/domain"
)

// DefaultPath is the conventional settings file name.
const DefaultPath = "stackman.yml"

// =============================================================================
// Settings Source
// =============================================================================

// Load reads the settings file at path, merges it with the defaults and
// returns a Resolver over the result. A missing file is not an error: the
// hard-coded defaults apply. A file that exists but cannot be parsed is a
// ConfigError, fatal at startup.
func Load(path string) (*Resolver, error) {
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewResolver(Defaults()), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, domain.NewConfigError(path, err)
	}

	return NewResolver(Merge(v.AllSettings(), Defaults())), nil
}
