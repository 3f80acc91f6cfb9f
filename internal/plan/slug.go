package plan

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const slugSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// makeSlug derives a URL slug from the title plus a 6-character random suffix
// so two plans with the same title get distinct slugs. The column still
// carries a unique constraint as the backstop.
func makeSlug(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	base := strings.Trim(b.String(), "-")
	if base == "" {
		base = "plan"
	}
	if len(base) > 60 {
		base = strings.Trim(base[:60], "-")
	}
	return base + "-" + randomSuffix(6)
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = slugSuffixAlphabet[int(buf[i])%len(slugSuffixAlphabet)]
	}
	return string(buf)
}
