package store

import (
	"database/sql"
	"encoding/json"
)

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

// UnmarshalStrings converts JSON text back to a non-nil []string.
func UnmarshalStrings(s string) []string {
	out := []string{}
	if s == "" || s == "null" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// marshalOptional stores nil as NULL so an omitted list stays omitted.
func marshalOptional(list []string) sql.NullString {
	if list == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: marshalStrings(list), Valid: true}
}

func unmarshalOptional(v sql.NullString) []string {
	if !v.Valid {
		return nil
	}
	return UnmarshalStrings(v.String)
}
