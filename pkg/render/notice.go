package render

import (
	"strings"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notice is one message shown above a page or form.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notices is an ordered list of notices without duplicates.
type Notices []Notice

// Add appends a trimmed notice unless an identical one is already present.
func (n Notices) Add(level Level, message string) Notices {
	message = strings.TrimSpace(message)
	if message == "" {
		return n
	}
	for _, existing := range n {
		if existing.Level == level && existing.Message == message {
			return n
		}
	}
	return append(n, Notice{Level: level, Message: message})
}

// Merge appends every notice of other through Add.
func (n Notices) Merge(other Notices) Notices {
	for _, notice := range other {
		n = n.Add(notice.Level, notice.Message)
	}
	return n
}

// HasErrors reports whether any notice is an error.
func (n Notices) HasErrors() bool {
	for _, notice := range n {
		if notice.Level == LevelError {
			return true
		}
	}
	return false
}

// Messages returns the messages with the given level.
func (n Notices) Messages(level Level) []string {
	var out []string
	for _, notice := range n {
		if notice.Level == level {
			out = append(out, notice.Message)
		}
	}
	return out
}

// ErrorMapping splits validation messages into field-level and form-level
// messages.
type ErrorMapping struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// MapErrors assigns each payload entry to a known form field. Keys may use
// bracket ("signup[firstname]"), dotted or JSON pointer notation; the last
// segment naming a known field wins. Unknown keys become form-level messages
// so nothing is lost.
func MapErrors(known []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	fields := make(map[string]struct{}, len(known))
	for _, name := range known {
		fields[strings.TrimSpace(name)] = struct{}{}
	}

	for raw, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		field := matchField(raw, fields)
		if field == "" {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[field] = normalizeMessages(append(mapping.Fields[field], messages...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	return normalizeMessages(append(append([]string(nil), existing...), extras...))
}

func matchField(raw string, fields map[string]struct{}) string {
	segments := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return r == '.' || r == '/' || r == '[' || r == ']' || r == '#' || r == '$'
	})
	for i := len(segments) - 1; i >= 0; i-- {
		if _, ok := fields[segments[i]]; ok {
			return segments[i]
		}
	}
	return ""
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
