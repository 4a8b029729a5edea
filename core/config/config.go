package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"account-sync/core/database"
	"account-sync/core/logger"
	"account-sync/core/reconcile"
	"account-sync/core/remote"
	"account-sync/core/server"
	"account-sync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Source is the site accounts are read from.
	Source remote.Config `mapstructure:"source"`
	// Target is the site accounts are written to.
	Target remote.Config `mapstructure:"target"`
	// Sync holds the reconciliation options.
	Sync reconcile.Config `mapstructure:"sync"`
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the snapshot object storage.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run history database.
	Database database.Config `mapstructure:"database"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SOURCE_URL -> source.url)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings every sync needs: both sites must be addressable
// and authenticated.
func (c *Config) Validate() error {
	var errs []error
	for _, site := range []struct {
		name string
		cfg  remote.Config
	}{{"source", c.Source}, {"target", c.Target}} {
		if site.cfg.URL == "" {
			errs = append(errs, fmt.Errorf("%s url is required", site.name))
		}
		if site.cfg.Key == "" || site.cfg.Secret == "" {
			errs = append(errs, fmt.Errorf("%s key and secret are required", site.name))
		}
	}
	if c.Sync.MaxParentRetries < 1 {
		errs = append(errs, errors.New("sync max_parent_retries must be at least 1"))
	}
	if c.Sync.RetryDelay < 0 {
		errs = append(errs, errors.New("sync retry_delay must not be negative"))
	}
	return errors.Join(errs...)
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
