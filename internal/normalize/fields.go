package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value any
}

// Fields is a record that remembers key order, so keyword scans are deterministic.
// Decoded values are string, json.Number, bool, nil, or json.RawMessage for nested data.
type Fields []Field

// Get returns the value stored under an exact key.
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key, appending the key if it is new.
func (f *Fields) Set(key string, value any) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// String returns the text value under key, or "" when absent or not text.
func (f Fields) String(key string) string {
	v, _ := f.Get(key)
	text, _ := Text(v)
	return text
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("fields: decoding %q: %w", key, err)
		}
		value, err := decodeScalar(raw)
		if err != nil {
			return fmt.Errorf("fields: decoding %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("fields: encoding %q: %w", field.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		err := json.Unmarshal(trimmed, &b)
		return b, err
	case '{', '[':
		return json.RawMessage(append([]byte(nil), trimmed...)), nil
	default:
		return json.Number(trimmed), nil
	}
}

// FieldByKeywords returns the value of the first field, in key order, whose lowercased
// name contains any of the keywords.
func FieldByKeywords(fields Fields, keywords ...string) (any, bool) {
	for _, field := range fields {
		if keyMatches(field.Key, keywords) {
			return field.Value, true
		}
	}
	return nil, false
}

func keyMatches(key string, keywords []string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range keywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
