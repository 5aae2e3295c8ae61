// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package directory

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Entry is the resolved directory identity for a username: the
// distinguished name plus the mapped profile attributes. Email is empty
// when the entry carries no email attribute.
type Entry struct {
	DN        string
	Email     string
	FirstName string
	LastName  string
}

// Resolver turns a username into a canonical directory identity using a
// service-level bind and a filtered search.
type Resolver struct {
	client *Client
	cfg    Config
	logger *slog.Logger
}

// NewResolver creates a Resolver over an existing client. A nil logger
// falls back to slog.Default().
func NewResolver(client *Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client: client,
		cfg:    client.cfg,
		logger: logger,
	}
}

// Resolve locates the directory entry for username. Service-bind
// failures, empty search results, and entries without a DN all report
// ErrNoSuchUser so callers cannot tell a missing user from a
// misconfigured service account. The underlying cause is logged.
func (r *Resolver) Resolve(username string) (*Entry, error) {
	if !r.client.Connected() {
		r.logger.Error("no connection to directory server")
		return nil, ErrNotConnected
	}

	ok, err := r.client.Bind(r.cfg.BindUser, r.cfg.BindPassword)
	if err != nil || !ok {
		r.logger.Error("service bind failed",
			"bind_user", r.cfg.BindUser,
			"error", err,
		)
		return nil, ErrNoSuchUser
	}

	filter := fmt.Sprintf("(&(%s=%s)(objectClass=*))",
		r.cfg.accountAttr(), ldap.EscapeFilter(username))

	result, err := r.client.Search(r.cfg.BaseDN, filter, r.attributeList())
	if err != nil {
		r.logger.Debug("entry search failed", "filter", filter, "error", err)
		return nil, ErrNoSuchUser
	}

	if len(result.Entries) == 0 || result.Entries[0].DN == "" {
		r.logger.Debug("no entry for username", "filter", filter)
		return nil, ErrNoSuchUser
	}

	ldapEntry := result.Entries[0]
	entry := &Entry{
		DN:        ldapEntry.DN,
		Email:     attributeValue(ldapEntry, r.cfg.EmailAttr),
		FirstName: attributeValue(ldapEntry, r.cfg.FirstNameAttr),
		LastName:  attributeValue(ldapEntry, r.cfg.LastNameAttr),
	}

	r.logger.Debug("resolved user entry",
		"username", username,
		"dn", entry.DN,
	)
	return entry, nil
}

// attributeList builds the requested-attribute narrowing list from the
// configured attribute names. An empty list means unrestricted, which
// the search layer expresses as nil.
func (r *Resolver) attributeList() []string {
	var attrs []string
	for _, name := range []string{
		r.cfg.AccountAttr,
		r.cfg.EmailAttr,
		r.cfg.FirstNameAttr,
		r.cfg.LastNameAttr,
	} {
		if name != "" {
			attrs = append(attrs, name)
		}
	}
	return attrs
}

// attributeValue looks up an attribute case-insensitively: the exact
// configured name first, then its lower-cased form. Servers differ in
// the attribute-name casing they return. Missing attributes and an
// empty configured name yield "".
func attributeValue(entry *ldap.Entry, name string) string {
	if name == "" {
		return ""
	}
	if v := entry.GetAttributeValue(name); v != "" {
		return v
	}
	return entry.GetAttributeValue(strings.ToLower(name))
}
