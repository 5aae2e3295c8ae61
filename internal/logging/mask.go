// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package logging

import "strings"

// MaskSecret renders a secret for log output without revealing it.
// The first rune is kept and the remainder is replaced with '*',
// preserving length so operators can spot truncated or empty input.
// Empty input stays empty.
func MaskSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) == 0 {
		return ""
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}
