package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

const minSecretLen = 32

// Validate checks the loaded configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes", minSecretLen))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if strings.TrimSpace(c.Auth.DefaultRole) == "" {
		errs = append(errs, errors.New("auth.default_role is required"))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes must be positive"))
	}
	if c.HTTP.RateBurst <= 0 || c.HTTP.RatePerSecond <= 0 {
		errs = append(errs, errors.New("http rate limit values must be positive"))
	}
	if c.HTTP.StreamHeartbeat <= 0 {
		errs = append(errs, errors.New("http.stream_heartbeat must be positive"))
	}
	for _, p := range c.HTTP.TrustedProxies {
		p = strings.TrimSpace(p)
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Errorf("http.trusted_proxies: %q is not an address or CIDR", p))
		}
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		if strings.TrimSpace(c.Database.Host) == "" {
			errs = append(errs, errors.New("database.host is required when dsn is empty"))
		}
		if strings.TrimSpace(c.Database.Name) == "" {
			errs = append(errs, errors.New("database.name is required when dsn is empty"))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}

	return errors.Join(errs...)
}
