package items

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000

	msgInvalidID           = "Invalid ID parameter"
	msgNameRequired        = "Name is required and must be a non-empty string"
	msgDescriptionRequired = "Description is required and must be a non-empty string"
	msgNameTooLong         = "Name must be 255 characters or less"
	msgDescriptionTooLong  = "Description must be 1000 characters or less"
)

// ValidationError is a client mistake whose message is safe to return verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateID parses a path id, which must be a positive integer.
func ValidateID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Message: msgInvalidID}
	}
	return id, nil
}

// ValidateInput checks a create or update body and returns the trimmed values.
func ValidateInput(name, description any) (string, string, error) {
	trimmedName, ok := nonEmptyString(name)
	if !ok {
		return "", "", &ValidationError{Message: msgNameRequired}
	}
	trimmedDescription, ok := nonEmptyString(description)
	if !ok {
		return "", "", &ValidationError{Message: msgDescriptionRequired}
	}
	if utf8.RuneCountInString(trimmedName) > MaxNameLength {
		return "", "", &ValidationError{Message: msgNameTooLong}
	}
	if utf8.RuneCountInString(trimmedDescription) > MaxDescriptionLength {
		return "", "", &ValidationError{Message: msgDescriptionTooLong}
	}
	return trimmedName, trimmedDescription, nil
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}
