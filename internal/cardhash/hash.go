// Package cardhash fingerprints flashcard content so the same word pair is
// recognised regardless of case, surrounding whitespace or line endings.
package cardhash

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize joins the cleaned front and back of a card.
func Normalize(front, back string) string {
	clean := func(part string) string {
		p := strings.ReplaceAll(part, "\r\n", "\n")
		p = strings.ToLower(p)
		p = strings.Join(strings.Fields(p), " ")
		return p
	}
	// The separator keeps "ab"+"c" apart from "a"+"bc".
	return clean(front) + "\n" + clean(back)
}

// Fingerprint returns the SHA-256 hex digest of the normalized card.
func Fingerprint(front, back string) string {
	sum := sha256.Sum256([]byte(Normalize(front, back)))
	return fmt.Sprintf("%x", sum)
}
