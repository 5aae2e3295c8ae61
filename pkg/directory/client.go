// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

// Package directory wraps the LDAP protocol operations ldapgate needs:
// connect, bind, filtered subtree search, and unbind. It also resolves
// usernames to directory entries through a service-account bind.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/samber/oops"
)

// Sentinel errors for directory operations.
var (
	// ErrNotConnected is returned when an operation requires a live
	// connection and none exists.
	ErrNotConnected = errors.New("not connected to directory server")

	// ErrNoSuchUser is returned when a username cannot be resolved to a
	// directory entry. It deliberately covers service-bind failures and
	// empty search results alike so callers cannot enumerate usernames.
	ErrNoSuchUser = errors.New("no such user")
)

// Conn is the subset of *ldap.Conn used by the client. Abstracted for
// testing against fake directory servers.
type Conn interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	Unbind() error
	Close() error
}

// Conn is a subset of the ldap.Client interface, implemented by ldap.Conn.
var _ Conn = (*ldap.Conn)(nil)

// Dialer establishes a directory connection for the given URL.
type Dialer func(ctx context.Context, url string, timeout time.Duration) (Conn, error)

// defaultDialer dials with go-ldap. go-ldap speaks LDAPv3 and does not
// chase referrals, which covers the protocol pinning some directory
// server implementations require. The timeout applies to the dial and,
// afterwards, to individual reads on the connection.
func defaultDialer(_ context.Context, url string, timeout time.Duration) (Conn, error) {
	conn, err := ldap.DialURL(url, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		conn.SetTimeout(timeout)
	}
	return conn, nil
}

// Config holds the connection parameters and the attribute mapping used
// to project directory entries onto user records. Immutable after load.
type Config struct {
	// URL of the directory server, e.g. "ldap://dc1.example.net:389" or
	// "ldaps://dc1.example.net:636".
	URL string

	// Service account used to locate entries. Never used to verify
	// end-user secrets.
	BindUser     string
	BindPassword string

	BaseDN string

	// AccountAttr is matched against the supplied username.
	// Empty attribute names fall back to their defaults.
	AccountAttr   string
	EmailAttr     string
	FirstNameAttr string
	LastNameAttr  string

	ConnectTimeout time.Duration
}

// DefaultAccountAttr is used when Config.AccountAttr is empty.
const DefaultAccountAttr = "sAMAccountName"

func (c Config) accountAttr() string {
	if c.AccountAttr == "" {
		return DefaultAccountAttr
	}
	return c.AccountAttr
}

// Client manages a single directory connection. A Client serves one
// authentication attempt at a time; it is not safe for concurrent use.
type Client struct {
	cfg    Config
	dialer Dialer
	logger *slog.Logger
	conn   Conn
}

// NewClient creates a directory client. A nil logger falls back to
// slog.Default().
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return NewClientWithDialer(cfg, logger, nil)
}

// NewClientWithDialer creates a directory client with a custom dialer.
// A nil dialer uses the go-ldap default.
func NewClientWithDialer(cfg Config, logger *slog.Logger, dialer Dialer) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if dialer == nil {
		dialer = defaultDialer
	}
	return &Client{
		cfg:    cfg,
		dialer: dialer,
		logger: logger,
	}
}

// Connect establishes (but does not authenticate) the connection.
// Directory unavailability is terminal for the current authentication
// attempt; there is no automatic retry.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dialer(ctx, c.cfg.URL, c.cfg.ConnectTimeout)
	if err != nil {
		c.logger.Error("cannot connect to directory server",
			"url", c.cfg.URL,
			"error", err,
		)
		return oops.Code("DIR_CONNECT_FAILED").
			With("url", c.cfg.URL).
			Wrap(err)
	}
	c.conn = conn
	c.logger.Debug("connected to directory server", "url", c.cfg.URL)
	return nil
}

// Connected reports whether a live connection exists.
func (c *Client) Connected() bool {
	return c.conn != nil
}

// Bind attempts to authenticate the connection as dn. Invalid
// credentials return (false, nil); only transport-level failures return
// an error, and those also report false.
func (c *Client) Bind(dn, password string) (bool, error) {
	if c.conn == nil {
		return false, ErrNotConnected
	}

	err := c.conn.Bind(dn, password)
	if err == nil {
		return true, nil
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
		c.logger.Debug("bind rejected", "dn", dn)
		return false, nil
	}

	c.logger.Error("bind failed", "dn", dn, "error", err)
	return false, oops.Code("DIR_BIND_FAILED").
		With("dn", dn).
		Wrap(err)
}

// Search performs a filtered subtree search under baseDN. A nil
// attribute list returns all attributes.
func (c *Client) Search(baseDN, filter string, attributes []string) (*ldap.SearchResult, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	c.logger.Debug("directory search",
		"base_dn", baseDN,
		"filter", filter,
		"attributes", attributes,
	)

	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attributes,
		nil,
	)

	result, err := c.conn.Search(req)
	if err != nil {
		c.logger.Debug("directory search failed", "filter", filter, "error", err)
		return nil, oops.Code("DIR_SEARCH_FAILED").
			With("filter", filter).
			Wrap(err)
	}
	return result, nil
}

// Unbind is best-effort; a failure is logged and never propagated since
// nothing that follows depends on it.
func (c *Client) Unbind() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Unbind(); err != nil {
		c.logger.Debug("unbind failed", "error", err)
	}
}

// Close tears down the connection if one exists.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("close failed", "error", err)
	}
	c.conn = nil
}
