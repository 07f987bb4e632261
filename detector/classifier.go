package detector

import (
	"encoding/base64"
	"strings"
	"unicode"
)

const (
	// EncodedLength is the length of an invite secret once whitespace is removed.
	EncodedLength = 28
	// DecodedBytes is the raw size the secret decodes to.
	DecodedBytes = 20

	minUniqueChars = 10
	minCharClasses = 3
)

// Classifier decides whether a single token looks like an encoded invite secret.
// The zero value is not usable, use NewClassifier.
type Classifier struct {
	EncodedLength  int
	DecodedBytes   int
	MinUniqueChars int
	MinCharClasses int
}

// NewClassifier returns a Classifier tuned for the invite secret format in use.
func NewClassifier() *Classifier {
	return &Classifier{
		EncodedLength:  EncodedLength,
		DecodedBytes:   DecodedBytes,
		MinUniqueChars: minUniqueChars,
		MinCharClasses: minCharClasses,
	}
}

// IsSuspicious reports whether token, with all whitespace removed, is an
// encoded secret of the expected shape. It never fails: anything that does
// not decode cleanly is simply not suspicious.
func (c *Classifier) IsSuspicious(token string) bool {
	cleaned := StripWhitespace(token)
	if cleaned == "" {
		return false
	}
	if !c.matchesShape(cleaned) {
		return false
	}
	if !c.hasEntropy(cleaned) {
		return false
	}
	return c.decodesToSecret(cleaned)
}

// StripWhitespace removes every unicode whitespace rune from s.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// matchesShape checks the fixed layout: n-1 alphabet characters followed by a
// single '=' pad. A double pad fails because '=' is not in the body alphabet.
func (c *Classifier) matchesShape(s string) bool {
	if len(s) != c.EncodedLength {
		return false
	}
	if s[len(s)-1] != '=' {
		return false
	}
	for i := 0; i < len(s)-1; i++ {
		if !isAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func (c *Classifier) hasEntropy(s string) bool {
	body := s[:len(s)-1]

	seen := make(map[byte]struct{}, len(body))
	var upper, lower, digit, special bool
	for i := 0; i < len(body); i++ {
		ch := body[i]
		seen[ch] = struct{}{}
		switch {
		case ch >= 'A' && ch <= 'Z':
			upper = true
		case ch >= 'a' && ch <= 'z':
			lower = true
		case ch >= '0' && ch <= '9':
			digit = true
		case ch == '+' || ch == '/':
			special = true
		}
	}
	if len(seen) < c.MinUniqueChars {
		return false
	}

	classes := 0
	for _, present := range []bool{upper, lower, digit, special} {
		if present {
			classes++
		}
	}
	return classes >= c.MinCharClasses
}

// decodesToSecret requires a strict round trip so tokens with non-zero
// trailing bits are rejected.
func (c *Classifier) decodesToSecret(s string) bool {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	if base64.StdEncoding.EncodeToString(raw) != s {
		return false
	}
	return len(raw) == c.DecodedBytes
}

func isAlphabet(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '+' || ch == '/'
}
