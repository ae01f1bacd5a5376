package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/histore/internal/record"
)

// marshalContent converts node content to canonical JSON TEXT for storage.
func marshalContent(content record.Object) (string, error) {
	if content == nil {
		content = record.Object{}
	}
	data, err := record.MarshalCanonical(content)
	if err != nil {
		return "", fmt.Errorf("marshal content: %w", err)
	}
	return string(data), nil
}

// unmarshalContent parses canonical JSON TEXT back to an Object.
// Integers go through json.Number so values above 2^53 survive.
func unmarshalContent(data string) (record.Object, error) {
	if data == "" || data == "{}" {
		return record.Object{}, nil
	}
	obj, err := record.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return obj, nil
}

func marshalBranchIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := record.MarshalCanonical(ids)
	if err != nil {
		return "", fmt.Errorf("marshal branch ids: %w", err)
	}
	return string(data), nil
}

func unmarshalBranchIDs(data string) ([]string, error) {
	ids := []string{}
	if data == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal branch ids: %w", err)
	}
	return ids, nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
