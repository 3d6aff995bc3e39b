package form

import (
	"errors"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password the API accepts, in characters.
const MinPasswordLength = 6

// ErrInvalid matches every *ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid form")

// ValidationError maps field names (the JSON names) to a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("invalid form: ")
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(e.Fields[name])
	}
	return b.String()
}

// Is matches ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Field returns the message for name, or "".
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

type collector map[string]string

func (c collector) add(field, msg string) {
	if _, ok := c[field]; !ok {
		c[field] = msg
	}
}

func (c collector) err() error {
	if len(c) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(c)}
}

func (c collector) required(field, value, msg string) bool {
	if strings.TrimSpace(value) == "" {
		c.add(field, msg)
		return false
	}
	return true
}

// present is required without trimming; whitespace is a valid password.
func (c collector) present(field, value, msg string) bool {
	if value == "" {
		c.add(field, msg)
		return false
	}
	return true
}

func (c collector) email(field, value string) {
	if !c.required(field, value, "email is required") {
		return
	}
	if !validEmail(value) {
		c.add(field, "enter a valid email")
	}
}

func (c collector) password(field, value string) {
	if !c.present(field, value, "password is required") {
		return
	}
	if utf8.RuneCountInString(value) < MinPasswordLength {
		c.add(field, "password must have at least 6 characters")
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	if addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
