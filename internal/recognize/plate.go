package recognize

import "strings"

// PlateTokens filters free-form OCR output down to plate-shaped tokens.
//
// A token qualifies when, after uppercasing and stripping separator
// punctuation, it is 4 to 10 characters of A-Z and 0-9 containing at least
// one digit and at least one letter. That deliberately drops digit-only
// plates; on noisy OCR output the false positives (years, timestamps, street
// numbers) would swamp them. Duplicates are removed, first occurrence wins.
// The result is never nil.
func PlateTokens(text string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, field := range strings.Fields(text) {
		tok := normalizeToken(field)
		if !plateShaped(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// normalizeToken uppercases and keeps only A-Z and 0-9, so "ab-123-cd,"
// becomes "AB123CD".
func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func plateShaped(tok string) bool {
	if len(tok) < 4 || len(tok) > 10 {
		return false
	}
	hasDigit, hasLetter := false, false
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasDigit && hasLetter
}
