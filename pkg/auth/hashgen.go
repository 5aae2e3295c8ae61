// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

const loginHashBytes = 32

// GenerateLoginHash returns a new opaque login hash: 32 bytes from
// crypto/rand, hex encoded. The value carries no structure; it is
// compared for strict equality only.
func GenerateLoginHash() (string, error) {
	buf := make([]byte, loginHashBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.
			Code("HASH_GENERATION_FAILED").
			Wrapf(err, "generating login hash")
	}
	return hex.EncodeToString(buf), nil
}
