package submessage

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// fields is a decoded JSON object whose values are still raw.
type fields map[string]json.RawMessage

// parseObject splits content into its top-level fields. Anything that is
// not a JSON object is ErrMalformedContent.
func parseObject(content []byte) (fields, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedContent
	}
	var f fields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, ErrMalformedContent
	}
	return f, nil
}

// lookup returns the raw value of name, treating JSON null as absent.
func (f fields) lookup(name string) (json.RawMessage, bool) {
	raw, ok := f[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

// tag reads a discriminator. ok is false when the field is absent or null;
// valid is false when it is present but not a string.
func (f fields) tag(name string) (tag string, ok, valid bool) {
	raw, ok := f.lookup(name)
	if !ok {
		return "", false, true
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return "", true, false
	}
	return tag, true, true
}

func (f fields) requireString(variant, name string) (string, error) {
	raw, ok := f.lookup(name)
	if !ok {
		return "", missingField(variant, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", wrongType(variant, name)
	}
	return s, nil
}

func (f fields) requireInt(variant, name string) (int64, error) {
	raw, ok := f.lookup(name)
	if !ok {
		return 0, missingField(variant, name)
	}
	if !isNumber(raw) {
		return 0, wrongType(variant, name)
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, wrongType(variant, name)
	}
	return n, nil
}

// requireNumber accepts any JSON number, integral or not. A number too
// large for float64 comes back as an infinity.
func (f fields) requireNumber(variant, name string) (float64, error) {
	raw, ok := f.lookup(name)
	if !ok {
		return 0, missingField(variant, name)
	}
	if !isNumber(raw) {
		return 0, wrongType(variant, name)
	}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, wrongType(variant, name)
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isNumber(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	c := trimmed[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// cloneRaw copies raw so a retained value never aliases caller memory.
func cloneRaw(raw []byte) json.RawMessage {
	return append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
}
