package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error collects field-keyed validation messages for one request, so a
// single response can report every bad field at once.
type Error struct {
	Fields map[string]string
}

// Error renders the messages in field-name order so the response body is
// stable across runs.
func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}
