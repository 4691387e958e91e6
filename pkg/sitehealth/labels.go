package sitehealth

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\s]+`)

// Label turns a stripped option name into a heading: words split on
// underscores, each starting with a capital. The rest of a word is kept as
// is, so "recaptcha_version" reads "Recaptcha Version" and "migrate_2.0"
// reads "Migrate 2.0".
func Label(name string) string {
	var words []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		words = append(words, strings.ToUpper(word[:1])+word[1:])
	}
	return strings.Join(words, " ")
}

// StripPrefix removes the option namespace prefix from name.
func StripPrefix(name string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}
