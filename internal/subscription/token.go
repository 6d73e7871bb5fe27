package subscription

import (
	"crypto/rand"
	"fmt"
)

const tokenLength = 25

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxUnbiasedByte is the largest byte value that maps onto tokenAlphabet
// without bias: 256 isn't a multiple of len(tokenAlphabet) (62), so a plain
// b%62 would favor the low indices. Bytes above this are rejected and
// redrawn instead.
var maxUnbiasedByte = byte(256 - 256%len(tokenAlphabet) - 1)

// generateToken produces a 25-character, uniform-random alphanumeric
// subscription token (spec §3). crypto/rand backs the sampling, and
// rejection sampling over maxUnbiasedByte keeps every character uniform
// over tokenAlphabet, so the token is unguessable, matching the security
// role a confirmation link plays.
func generateToken() (string, error) {
	out := make([]byte, tokenLength)
	buf := make([]byte, 1)
	for i := range out {
		for {
			if _, err := rand.Read(buf); err != nil {
				return "", fmt.Errorf("subscription: generate token: %w", err)
			}
			if buf[0] <= maxUnbiasedByte {
				out[i] = tokenAlphabet[int(buf[0])%len(tokenAlphabet)]
				break
			}
		}
	}
	return string(out), nil
}
