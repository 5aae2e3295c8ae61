// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

// Package auth implements the ldapgate login engine: credential
// validation against a directory, and session lifecycle through a
// rotating login hash.
//
// # Domain Types
//
//   - UserRecord - a directory-backed identity, or the guest identity
//     from Guest()
//   - Driver - the login state machine (PerformCheck, Login,
//     ForceLogin, Logout) operating on an explicit SessionCarrier
//   - Validator - resolves a username and verifies the password by
//     binding as the resolved entry
//
// # Collaborators
//
// The engine owns no persistence or transport of its own:
//
//   - CredentialStore - pluggable backend for the user-id → login-hash
//     mapping; selected by driver name through RegisterStore/OpenStore
//     ("memory" here, "postgres" and "redis" in subpackages)
//   - SessionCarrier - two opaque session values plus identity
//     rotation, normally backed by the host's session middleware
//
// A Driver instance serves one request/session-check at a time and must
// not be shared across goroutines. Stores may be shared; they guarantee
// per-user-id atomicity of hash mutations.
package auth
