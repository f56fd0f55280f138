package utils

import "strings"

// Slugify turns a shop name into a URL-safe slug: lower-cased ASCII letters
// and digits with runs of other characters collapsed into single hyphens.
// "Ravi's Garments " becomes "ravi-s-garments".  Uniqueness suffixes are the
// caller's concern.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
