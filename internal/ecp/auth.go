package ecp

import (
	"crypto/sha1" //nolint:gosec // the device mandates SHA-1
	"encoding/base64"
	"strings"
)

const (
	// authKey is the shared client key, stored rotated.
	authKey = "95E610D0-7C29-44EF-FB0F-97F1FCE4C297"

	// authKeyShift is the rotation applied to every hex digit of authKey.
	authKeyShift = 9
)

// AuthResponse computes the reply to an authenticate challenge:
// base64(SHA-1(challenge + derived key)).
func AuthResponse(challenge string) string {
	sum := sha1.Sum([]byte(challenge + transformKey(authKey, authKeyShift))) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:])
}

// transformKey maps every upper-case hex digit d to (15-d+shift) mod 16.
// Other characters are copied unchanged.
func transformKey(key string, shift int) string {
	var b strings.Builder
	b.Grow(len(key))

	for _, c := range key {
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			b.WriteRune(c)
			continue
		}

		r := (15 - v + shift) & 15
		if r < 10 {
			b.WriteByte(byte('0' + r))
		} else {
			b.WriteByte(byte('A' + r - 10))
		}
	}

	return b.String()
}
