package engine

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint returns the SHA-256 hex digest of the exact text handed to the
// embedding provider for one dimension. Identical text always fingerprints
// identically, so the cache can prove a stored vector still matches its
// source without keeping the text around.
func Fingerprint(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}
