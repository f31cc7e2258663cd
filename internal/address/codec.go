package address

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Address is the structured form of the profile address field.
// Absent values are empty strings.
type Address struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Number   string `json:"number"`
}

// IsZero reports whether every field is empty.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Ptr maps an empty field to nil.
func Ptr(field string) *string {
	if field == "" {
		return nil
	}
	return &field
}

// Encode serializes the address into the JSON string stored by the backend.
func Encode(a Address) string {
	// A struct of strings always marshals.
	b, _ := json.Marshal(a)
	return string(b)
}

// Decode parses a stored address value. Nil or empty input yields the zero
// Address. Input that is not a JSON object is kept whole as the address line,
// so legacy plain-text addresses survive a round trip through the profile form.
func Decode(raw *string) Address {
	if raw == nil {
		return Address{}
	}
	return DecodeString(*raw)
}

// DecodeString is Decode for a non-nullable value.
func DecodeString(raw string) Address {
	if strings.TrimSpace(raw) == "" {
		return Address{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return Address{Address: raw}
	}

	return Address{
		Country:  scalar(fields["country"]),
		State:    scalar(fields["state"]),
		Address:  scalar(fields["address"]),
		City:     scalar(fields["city"]),
		Postcode: scalar(fields["postcode"]),
		Number:   scalar(fields["number"]),
	}
}

// scalar renders a JSON value as text. Strings are unquoted, numbers and
// booleans keep their literal form, null and nested values become empty.
func scalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}

	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return s
	case 'n', '{', '[':
		return ""
	default:
		return string(v)
	}
}
