// Package sanitize cleans user supplied text and HTML before it is stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy

	contentOnce   sync.Once
	contentPolicy *bluemonday.Policy
)

var whitespace = regexp.MustCompile(`[\t\r\n ]+`)

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

func content() *bluemonday.Policy {
	contentOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").Globally()
		policy.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
		contentPolicy = policy
	})
	return contentPolicy
}

// Text strips markup and collapses whitespace to single spaces.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := html.UnescapeString(strict().Sanitize(raw))
	return strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
}

// Textarea strips markup but keeps line breaks.
func Textarea(raw string) string {
	if raw == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(html.UnescapeString(strict().Sanitize(line)), " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Email strips markup and every character that cannot appear in an address.
func Email(raw string) string {
	cleaned := Text(raw)
	var b strings.Builder
	for _, r := range cleaned {
		if r > ' ' && r < 0x7f && !strings.ContainsRune(`"(),:;<>[\]`, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HTML keeps the safe subset of markup allowed in sheet descriptions.
func HTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return strings.TrimSpace(content().Sanitize(raw))
}

// Fields applies Text to every value of a form map.
func Fields(values map[string]string) map[string]string {
	if len(values) == 0 {
		return values
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = Text(v)
	}
	return out
}
