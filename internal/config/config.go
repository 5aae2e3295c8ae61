// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

// Package config loads ldapgate configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default LDAP ports.
const (
	DefaultLDAPPort  = 389
	DefaultLDAPSPort = 636
)

// Directory holds connection and mapping settings for the LDAP server.
// Immutable after load.
type Directory struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Secure       bool   `koanf:"secure"`
	BindUser     string `koanf:"bind_user"`
	BindPassword string `koanf:"bind_password"`
	BaseDN       string `koanf:"base_dn"`

	// Attribute names on the directory entry. AccountAttr is the attribute
	// matched against the supplied username.
	AccountAttr   string `koanf:"account_attr"`
	EmailAttr     string `koanf:"email_attr"`
	FirstNameAttr string `koanf:"firstname_attr"`
	LastNameAttr  string `koanf:"lastname_attr"`

	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// URL renders the connection URL, e.g. "ldap://host:389" or "ldaps://host:636".
func (d Directory) URL() string {
	scheme := "ldap"
	port := d.Port
	if d.Secure {
		scheme = "ldaps"
		if port == 0 {
			port = DefaultLDAPSPort
		}
	} else if port == 0 {
		port = DefaultLDAPPort
	}
	return fmt.Sprintf("%s://%s:%d", scheme, d.Host, port)
}

// Auth holds login driver behavior toggles.
type Auth struct {
	// GuestLogin substitutes the guest identity when no valid login exists.
	GuestLogin bool `koanf:"guest_login"`

	// CreateWhenMissing lets hash creation insert a credential record for
	// ids the store has never seen.
	CreateWhenMissing bool `koanf:"create_when_missing"`

	// Request body field names for hosts that parse credentials from forms.
	UsernameField string `koanf:"username_field"`
	PasswordField string `koanf:"password_field"`
}

// Redis holds connection settings for the redis credential store.
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Store selects and configures the credential store backend.
type Store struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Redis  Redis  `koanf:"redis"`
}

// Log holds logging settings.
type Log struct {
	Format string `koanf:"format"`
}

// Config is the root configuration. Immutable after Load.
type Config struct {
	Directory Directory `koanf:"directory"`
	Auth      Auth      `koanf:"auth"`
	Store     Store     `koanf:"store"`
	Log       Log       `koanf:"log"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Directory: Directory{
			Host:           "localhost",
			AccountAttr:    "sAMAccountName",
			EmailAttr:      "mail",
			FirstNameAttr:  "givenName",
			LastNameAttr:   "sn",
			ConnectTimeout: 10 * time.Second,
		},
		Auth: Auth{
			GuestLogin:    true,
			UsernameField: "username",
			PasswordField: "password",
		},
		Store: Store{
			Driver: "memory",
		},
		Log: Log{
			Format: "json",
		},
	}
}

// flagKeys maps command-line flag names onto config keys. Flags not
// listed here do not feed the config tree.
var flagKeys = map[string]string{
	"log-format":   "log.format",
	"store-driver": "store.driver",
	"dsn":          "store.dsn",
	"guest-login":  "auth.guest_login",
}

// Load builds a Config from defaults, then the YAML file at path (if any),
// then the given flag set (if any). Flags win over the file, the file wins
// over defaults.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			if mapped, ok := flagKeys[key]; ok {
				return mapped, value
			}
			return "", nil
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted away.
func (c Config) Validate() error {
	if c.Directory.Host == "" {
		return oops.Code("CONFIG_INVALID").Errorf("directory.host is required")
	}
	if c.Directory.Port < 0 || c.Directory.Port > 65535 {
		return oops.Code("CONFIG_INVALID").
			With("port", c.Directory.Port).
			Errorf("directory.port out of range")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	if c.Store.Driver == "" {
		return oops.Code("CONFIG_INVALID").Errorf("store.driver is required")
	}
	return nil
}
