package submessage

import (
	"errors"
	"fmt"
)

// Error kinds returned by the decoders. Callers classify failures with
// errors.Is; an unrecognized tag is never an error.
var (
	// ErrMalformedContent means the item's content is not a JSON object,
	// so it cannot even be classified.
	ErrMalformedContent = errors.New("submessage: malformed content")
	// ErrMalformedField means a required field is missing or has the wrong
	// JSON type for the matched variant.
	ErrMalformedField = errors.New("submessage: malformed field")
	// ErrMalformedKeyShape means a vote key was present and a string but
	// does not follow the option-key grammar.
	ErrMalformedKeyShape = errors.New("submessage: malformed option key")
)

// FieldError describes a missing or mistyped field. Use errors.As to
// extract it:
//
//	var fieldErr *submessage.FieldError
//	if errors.As(err, &fieldErr) {
//	    log.Printf("bad %s.%s", fieldErr.Variant, fieldErr.Field)
//	}
type FieldError struct {
	// Variant is the wire tag of the item being decoded ("envelope",
	// "poll", "vote", ...).
	Variant string
	// Field is the JSON field name.
	Field string
	// Missing is true when the field was absent or null, false when it was
	// present with the wrong type.
	Missing bool
}

func (e *FieldError) Error() string {
	if e.Missing {
		return fmt.Sprintf("submessage: %s: missing field %q", e.Variant, e.Field)
	}
	return fmt.Sprintf("submessage: %s: field %q has the wrong type", e.Variant, e.Field)
}

// Unwrap lets errors.Is match ErrMalformedField.
func (e *FieldError) Unwrap() error { return ErrMalformedField }

// KeyShapeError reports an option key that fails grammar validation.
type KeyShapeError struct {
	Key    string
	Reason string
}

func (e *KeyShapeError) Error() string {
	return fmt.Sprintf("submessage: option key %q: %s", e.Key, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedKeyShape.
func (e *KeyShapeError) Unwrap() error { return ErrMalformedKeyShape }

func missingField(variant, field string) error {
	return &FieldError{Variant: variant, Field: field, Missing: true}
}

func wrongType(variant, field string) error {
	return &FieldError{Variant: variant, Field: field}
}
