package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex identifier. A non-empty prefix is joined with
// an underscore so related ids group together in logs and listings.
func NewID(prefix string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
