package sessionauth

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// User is the identity record returned by the auth API. Beyond ID and
// Email the payload is backend-defined and kept verbatim.
type User struct {
	id    string
	email string
	raw   json.RawMessage
}

func (u *User) ID() string {
	if u == nil {
		return ""
	}
	return u.id
}

func (u *User) Email() string {
	if u == nil {
		return ""
	}
	return u.email
}

// Field returns the raw JSON value of a top-level attribute.
func (u *User) Field(name string) (json.RawMessage, bool) {
	if u == nil {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(u.raw, &fields); err != nil {
		return nil, false
	}
	v, ok := fields[name]
	return v, ok
}

// Decode unmarshals the full payload into dst.
func (u *User) Decode(dst any) error {
	return json.Unmarshal(u.raw, dst)
}

func (u *User) MarshalJSON() ([]byte, error) {
	if u == nil || len(u.raw) == 0 {
		return []byte("null"), nil
	}
	return u.raw, nil
}

// UnmarshalJSON accepts any JSON object. A password attribute is dropped.
func (u *User) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("user payload: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("user payload: expected object")
	}
	delete(fields, "password")

	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	*u = User{raw: raw}
	u.id = scalarString(fields["id"])
	u.email = scalarString(fields["email"])
	return nil
}

// scalarString renders a JSON string or number as a Go string.
func scalarString(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		return n.String()
	}
	return ""
}
