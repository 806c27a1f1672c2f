package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidDatabaseURL = errors.New("invalid database url")

const jdbcPrefix = "jdbc:"

// DSN returns the connection URL with username and password applied.
//
// Username and password override any credentials embedded in the URL.
// A leading "jdbc:" prefix is accepted and stripped, "postgresql" is accepted as scheme.
func (d DatabaseConfig) DSN() (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(d.URL), jdbcPrefix)

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDatabaseURL, parsed.Scheme)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidDatabaseURL)
	}

	username, password := credentialsOf(parsed)
	if d.Username != "" {
		username = d.Username
	}
	if d.Password != "" {
		password = d.Password
	}

	switch {
	case username != "" && password != "":
		parsed.User = url.UserPassword(username, password)
	case username != "":
		parsed.User = url.User(username)
	}

	return parsed.String(), nil
}

func credentialsOf(u *url.URL) (username, password string) {
	if u.User == nil {
		return "", ""
	}

	password, _ = u.User.Password()

	return u.User.Username(), password
}

// RedactedDSN returns the DSN with the password masked, for logging.
func (d DatabaseConfig) RedactedDSN() string {
	dsn, err := d.DSN()
	if err != nil {
		return ""
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return ""
	}

	return parsed.Redacted()
}
