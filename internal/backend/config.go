package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"matchday/internal/config"
)

// FromAppConfig picks the settings relevant to the configured backend.
// Settings of the other backends are left zero.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{Type: BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend)))}
	switch cfg.Type {
	case SQLiteBackend:
		cfg.SQLiteDBPath = appConfig.SQLiteDBPath
	case MemoryBackend:
		cfg.SeedFile = appConfig.SeedFile
	case APIBackend:
		cfg.BookingAPIURL = appConfig.BookingAPIURL
		cfg.BookingAPIToken = appConfig.BookingAPIToken
		cfg.BookingAPITimeout = appConfig.BookingAPITimeout
	default:
		return Config{}, fmt.Errorf("unknown data backend %q: must be one of %s",
			appConfig.DataBackend, strings.Join(TypeNames(), ", "))
	}
	return cfg, nil
}

// Validate reports every missing setting of the selected backend.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown data backend %q: must be one of %s", c.Type, strings.Join(TypeNames(), ", "))
	}

	var errs []error
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("sqlite backend: database path is required"))
		}
	case APIBackend:
		if c.BookingAPIURL == "" {
			errs = append(errs, errors.New("api backend: booking API URL is required"))
		} else if u, err := url.Parse(c.BookingAPIURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("api backend: malformed booking API URL %q", c.BookingAPIURL))
		}
		if c.BookingAPITimeout < 0 {
			errs = append(errs, fmt.Errorf("api backend: negative timeout %v", c.BookingAPITimeout))
		}
	}
	return errors.Join(errs...)
}

// Types lists the supported backends, default first.
func Types() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, APIBackend}
}

// TypeNames lists the supported backends as strings.
func TypeNames() []string {
	types := Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
