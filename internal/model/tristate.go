package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Tristate is a filter dimension that either requires a flag, requires its
// absence, or leaves the flag unconstrained.
type Tristate int8

const (
	TriUnset Tristate = iota
	TriTrue
	TriFalse
)

// TriOf converts a plain bool into a constraining Tristate.
func TriOf(b bool) Tristate {
	if b {
		return TriTrue
	}
	return TriFalse
}

// ParseTristate accepts "true", "false" and "any" (also "null", "none" or "").
func ParseTristate(s string) (Tristate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "only":
		return TriTrue, nil
	case "false", "no", "not":
		return TriFalse, nil
	case "", "any", "null", "none":
		return TriUnset, nil
	}
	return TriUnset, fmt.Errorf("invalid filter value %q (want true, false or any)", s)
}

func (t Tristate) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "any"
	}
}

// Valid reports whether t is one of the three defined states.
func (t Tristate) Valid() bool {
	return t == TriUnset || t == TriTrue || t == TriFalse
}

// IsSet reports whether the tri-state constrains anything.
func (t Tristate) IsSet() bool {
	return t == TriTrue || t == TriFalse
}

// MarshalJSON encodes TriUnset as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case TriTrue:
		return []byte("true"), nil
	case TriFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null.
func (t *Tristate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = TriUnset
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode tristate: %w", err)
	}
	*t = TriOf(b)
	return nil
}

// Value stores TriUnset as NULL and the constraining states as 1/0.
func (t Tristate) Value() (driver.Value, error) {
	switch t {
	case TriTrue:
		return int64(1), nil
	case TriFalse:
		return int64(0), nil
	default:
		return nil, nil
	}
}

// Scan reads NULL, integer or boolean columns.
func (t *Tristate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = TriUnset
	case int64:
		*t = TriOf(v != 0)
	case bool:
		*t = TriOf(v)
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("scan tristate: unsupported type %T", src)
	}
	return nil
}

func (t *Tristate) scanString(s string) error {
	switch s {
	case "1", "true":
		*t = TriTrue
	case "0", "false":
		*t = TriFalse
	case "":
		*t = TriUnset
	default:
		return fmt.Errorf("scan tristate: unexpected value %q", s)
	}
	return nil
}
