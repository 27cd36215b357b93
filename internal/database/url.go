package database

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jellydator/validation"
)

var defaultPorts = map[string]int{
	"postgres":   5432,
	"postgresql": 5432,
}

// DSNInfo is a parsed database URL.
type DSNInfo struct {
	Driver   string
	User     string
	Password string
	Host     string
	Port     int
	Name     string
}

// ParseURL splits a database URL into its parts and validates them.
// sqlite URLs only carry a database path.
func ParseURL(rawURL string) (DSNInfo, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "sqlite:") {
		info := DSNInfo{Driver: "sqlite", Name: SQLitePath(rawURL)}
		if err := validation.ValidateStruct(&info,
			validation.Field(&info.Name, validation.Required.Error("database name cannot be empty")),
		); err != nil {
			return DSNInfo{}, fmt.Errorf("invalid database url: %w", err)
		}
		return info, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return DSNInfo{}, fmt.Errorf("parse database url: %w", err)
	}

	info := DSNInfo{
		Driver: u.Scheme,
		User:   u.User.Username(),
		Host:   u.Hostname(),
		Name:   strings.TrimPrefix(u.Path, "/"),
	}
	info.Password, _ = u.User.Password()

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return DSNInfo{}, fmt.Errorf("invalid database port %q: %w", p, err)
		}
		info.Port = port
	} else {
		info.Port = defaultPorts[info.Driver]
	}

	if err := info.Validate(); err != nil {
		return DSNInfo{}, fmt.Errorf("invalid database url: %w", err)
	}
	return info, nil
}

func (d DSNInfo) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required),
		validation.Field(&d.User, validation.Required.Error("user cannot be empty")),
		validation.Field(&d.Password, validation.Required.Error("password cannot be empty")),
		validation.Field(&d.Host, validation.Required.Error("host cannot be empty")),
		validation.Field(&d.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&d.Name, validation.Required.Error("database name cannot be empty")),
	)
}

// Redacted renders the DSN without the password, for logs.
func (d DSNInfo) Redacted() string {
	if d.Driver == "sqlite" {
		return "sqlite://" + d.Name
	}
	return fmt.Sprintf("%s://%s:***@%s:%d/%s", d.Driver, d.User, d.Host, d.Port, d.Name)
}
