package util

import "strings"

// Slugify derives a URL-safe lowercase identifier from a human-readable
// name. Runs of non-alphanumeric characters collapse to a single hyphen,
// leading and trailing hyphens are trimmed.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}

// EventLabel turns an event name into a human-readable choice label:
// underscores split words, each word is title-cased.
func EventLabel(event string) string {
	words := strings.FieldsFunc(strings.ToLower(event), func(r rune) bool {
		return r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
