package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxNameLength  = 100
	MaxTextLength  = 2000
	MaxTagLength   = 60
	MaxTagsPerList = 30
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var msgs []string
	for _, e := range v {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any errors
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// Add adds a validation error
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// ValidateName validates a display name
func ValidateName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 1 && n <= MaxNameLength
}

// ValidateUserID checks an identity-provider user ID. IDs are opaque, but must
// not contain the pair separator, slashes that break document paths, or any
// whitespace. IDs are used exactly as given, so nothing is trimmed.
func ValidateUserID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, "_/") && !strings.ContainsFunc(id, unicode.IsSpace)
}

// ValidateTags checks a tag list for size and element length
func ValidateTags(field string, tags []string, errs *ValidationErrors) {
	if len(tags) > MaxTagsPerList {
		errs.Add(field, "too many entries")
		return
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > MaxTagLength {
			errs.Add(field, "entry too long")
			return
		}
	}
}

// SanitizeString trims whitespace and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxLen {
		return string([]rune(s)[:maxLen])
	}
	return s
}
