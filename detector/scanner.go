package detector

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// spacedPattern finds runs that may be a secret with whitespace injected
// between its characters. The whitespace class matches unicode.IsSpace:
// \s alone is ASCII only, so \p{Z}, \v and U+0085 are listed explicitly.
var spacedPattern = regexp.MustCompile(`[\s\v\x{85}\p{Z}A-Za-z0-9+/]{25,35}=`)

// Match is one suspicious token found in a message.
type Match struct {
	// Original is the substring as it appeared in the message.
	Original string
	// Normalized is Original with whitespace removed.
	Normalized string
	// Position is the byte offset of Original in the message.
	Position int
}

// Scanner extracts candidate tokens from free text and runs them through a
// Classifier.
type Scanner struct {
	classifier *Classifier
}

// NewScanner returns a Scanner backed by c. A nil c uses NewClassifier.
func NewScanner(c *Classifier) *Scanner {
	if c == nil {
		c = NewClassifier()
	}
	return &Scanner{classifier: c}
}

type candidate struct {
	text string
	pos  int
}

// Scan returns every distinct suspicious token in text, ordered by position.
// Tokens are deduplicated on their normalized form and the earliest
// occurrence is kept.
func (s *Scanner) Scan(text string) []Match {
	if text == "" {
		return nil
	}

	candidates := splitWords(text)
	for _, loc := range spacedPattern.FindAllStringIndex(text, -1) {
		candidates = append(candidates, candidate{text: text[loc[0]:loc[1]], pos: loc[0]})
		candidates = append(candidates, boundarySuffixes(text, loc[0], loc[1], s.classifier.EncodedLength)...)
	}

	byNormalized := make(map[string]int)
	var matches []Match
	for _, c := range candidates {
		c = trimCandidate(c)
		if !s.classifier.IsSuspicious(c.text) {
			continue
		}
		normalized := StripWhitespace(c.text)
		if i, ok := byNormalized[normalized]; ok {
			if c.pos < matches[i].Position {
				matches[i].Original = c.text
				matches[i].Position = c.pos
			}
			continue
		}
		byNormalized[normalized] = len(matches)
		matches = append(matches, Match{Original: c.text, Normalized: normalized, Position: c.pos})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Position < matches[j].Position
	})
	return matches
}

// trimCandidate drops surrounding whitespace so Original and Position point
// at the token itself.
func trimCandidate(c candidate) candidate {
	trimmed := strings.TrimLeftFunc(c.text, unicode.IsSpace)
	c.pos += len(c.text) - len(trimmed)
	c.text = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	return c
}

// splitWords splits text on runs of whitespace, keeping byte offsets.
func splitWords(text string) []candidate {
	var words []candidate
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, candidate{text: text[start:i], pos: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, candidate{text: text[start:], pos: start})
	}
	return words
}

// boundarySuffixes returns the suffixes of text[start:end] that begin at a
// word boundary of the whole message and hold exactly want non-whitespace
// characters. The spaced pattern is greedy, so a match can swallow the tail
// of the preceding word; these suffixes recover the token itself.
func boundarySuffixes(text string, start, end, want int) []candidate {
	var out []candidate
	for p := start; p < end; {
		r, size := utf8.DecodeRuneInString(text[p:])
		if !unicode.IsSpace(r) && atBoundary(text, p) {
			sub := text[p:end]
			if len(StripWhitespace(sub)) == want && p != start {
				out = append(out, candidate{text: sub, pos: p})
			}
		}
		p += size
	}
	return out
}

func atBoundary(text string, p int) bool {
	if p == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:p])
	if unicode.IsSpace(prev) {
		return true
	}
	return !isAlphabet(byte(prev)) || prev >= utf8.RuneSelf
}
