// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package directory_test

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldapgate/ldapgate/pkg/directory"
)

func resolverConfig() directory.Config {
	return directory.Config{
		URL:           "ldap://dc1.example.net:389",
		BindUser:      "CN=Service,DC=example,DC=net",
		BindPassword:  "service-secret",
		BaseDN:        "DC=example,DC=net",
		AccountAttr:   "sAMAccountName",
		EmailAttr:     "mail",
		FirstNameAttr: "givenName",
		LastNameAttr:  "sn",
	}
}

func aliceLdapEntry() *ldap.Entry {
	return &ldap.Entry{
		DN: "CN=Alice Atkins,OU=People,DC=example,DC=net",
		Attributes: []*ldap.EntryAttribute{
			{Name: "sAMAccountName", Values: []string{"alice"}},
			{Name: "mail", Values: []string{"alice@example.net"}},
			{Name: "givenName", Values: []string{"Alice"}},
			{Name: "sn", Values: []string{"Atkins"}},
		},
	}
}

func TestResolve(t *testing.T) {
	t.Run("resolves entry with mapped attributes", func(t *testing.T) {
		conn := &fakeConn{searchResult: &ldap.SearchResult{Entries: []*ldap.Entry{aliceLdapEntry()}}}
		client := newConnectedClient(t, conn, resolverConfig())
		r := directory.NewResolver(client, nil)

		entry, err := r.Resolve("alice")
		require.NoError(t, err)

		assert.Equal(t, "CN=Alice Atkins,OU=People,DC=example,DC=net", entry.DN)
		assert.Equal(t, "alice@example.net", entry.Email)
		assert.Equal(t, "Alice", entry.FirstName)
		assert.Equal(t, "Atkins", entry.LastName)

		assert.Equal(t, "CN=Service,DC=example,DC=net", conn.bindDN, "lookup uses the service account")

		require.Len(t, conn.searchReqs, 1)
		req := conn.searchReqs[0]
		assert.Equal(t, "(&(sAMAccountName=alice)(objectClass=*))", req.Filter)
		assert.Equal(t, "DC=example,DC=net", req.BaseDN)
		assert.ElementsMatch(t, []string{"sAMAccountName", "mail", "givenName", "sn"}, req.Attributes)
	})

	t.Run("not connected", func(t *testing.T) {
		client := directory.NewClientWithDialer(resolverConfig(), nil, fakeDialer(&fakeConn{}, nil))
		r := directory.NewResolver(client, nil)

		_, err := r.Resolve("alice")
		assert.ErrorIs(t, err, directory.ErrNotConnected)
	})

	t.Run("service bind failure maps to no such user", func(t *testing.T) {
		conn := &fakeConn{bindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))}
		client := newConnectedClient(t, conn, resolverConfig())
		r := directory.NewResolver(client, nil)

		_, err := r.Resolve("alice")
		assert.ErrorIs(t, err, directory.ErrNoSuchUser,
			"a broken service account must not be distinguishable from a missing user")
	})

	t.Run("search failure maps to no such user", func(t *testing.T) {
		conn := &fakeConn{searchErr: errors.New("operations error")}
		client := newConnectedClient(t, conn, resolverConfig())
		r := directory.NewResolver(client, nil)

		_, err := r.Resolve("alice")
		assert.ErrorIs(t, err, directory.ErrNoSuchUser)
	})

	t.Run("empty result maps to no such user", func(t *testing.T) {
		conn := &fakeConn{searchResult: &ldap.SearchResult{}}
		client := newConnectedClient(t, conn, resolverConfig())
		r := directory.NewResolver(client, nil)

		_, err := r.Resolve("nobody")
		assert.ErrorIs(t, err, directory.ErrNoSuchUser)
	})

	t.Run("entry without dn maps to no such user", func(t *testing.T) {
		conn := &fakeConn{searchResult: &ldap.SearchResult{Entries: []*ldap.Entry{{DN: ""}}}}
		client := newConnectedClient(t, conn, resolverConfig())
		r := directory.NewResolver(client, nil)

		_, err := r.Resolve("alice")
		assert.ErrorIs(t, err, directory.ErrNoSuchUser)
	})

	t.Run("filter metacharacters are escaped", func(t *testing.T) {
		conn := &fakeConn{searchResult: &ldap.SearchResult{}}
		client := newConnectedClient(t, conn, resolverConfig())
		r := directory.NewResolver(client, nil)

		_, err := r.Resolve("*)(uid=*")
		assert.ErrorIs(t, err, directory.ErrNoSuchUser)

		require.Len(t, conn.searchReqs, 1)
		assert.Equal(t, `(&(sAMAccountName=\2a\29\28uid=\2a)(objectClass=*))`, conn.searchReqs[0].Filter)
	})

	t.Run("default account attribute", func(t *testing.T) {
		cfg := resolverConfig()
		cfg.AccountAttr = ""
		conn := &fakeConn{searchResult: &ldap.SearchResult{}}
		client := newConnectedClient(t, conn, cfg)
		r := directory.NewResolver(client, nil)

		_, _ = r.Resolve("alice")

		require.Len(t, conn.searchReqs, 1)
		assert.Equal(t, "(&(sAMAccountName=alice)(objectClass=*))", conn.searchReqs[0].Filter)
	})

	t.Run("no configured attributes requests all", func(t *testing.T) {
		cfg := resolverConfig()
		cfg.AccountAttr = ""
		cfg.EmailAttr = ""
		cfg.FirstNameAttr = ""
		cfg.LastNameAttr = ""
		conn := &fakeConn{searchResult: &ldap.SearchResult{}}
		client := newConnectedClient(t, conn, cfg)
		r := directory.NewResolver(client, nil)

		_, _ = r.Resolve("alice")

		require.Len(t, conn.searchReqs, 1)
		assert.Empty(t, conn.searchReqs[0].Attributes)
	})

	t.Run("falls back to lower-cased attribute names", func(t *testing.T) {
		cfg := resolverConfig()
		cfg.FirstNameAttr = "givenName"
		entry := &ldap.Entry{
			DN: "CN=Alice Atkins,OU=People,DC=example,DC=net",
			Attributes: []*ldap.EntryAttribute{
				// Some servers return attribute names lower-cased.
				{Name: "givenname", Values: []string{"Alice"}},
				{Name: "mail", Values: []string{"alice@example.net"}},
			},
		}
		conn := &fakeConn{searchResult: &ldap.SearchResult{Entries: []*ldap.Entry{entry}}}
		client := newConnectedClient(t, conn, cfg)
		r := directory.NewResolver(client, nil)

		resolved, err := r.Resolve("alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", resolved.FirstName)
		assert.Empty(t, resolved.LastName, "missing attributes resolve to empty")
	})
}
