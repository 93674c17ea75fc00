package persist

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the wire format SQL-backed Snapshotters store timestamps
// in: RFC3339 with nanosecond precision, always UTC.
const TimeLayout = time.RFC3339Nano

// FormatTime renders t for storage in a TEXT timestamp column.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ParseTime parses a timestamp written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("persist: parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// MarshalTags JSON-encodes a tag list for storage in a BLOB column.
func MarshalTags(tags []string) ([]byte, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("persist: marshal tags: %w", err)
	}
	return b, nil
}

// UnmarshalTags decodes a tag list written by MarshalTags. A nil or empty
// input yields a nil slice.
func UnmarshalTags(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("persist: unmarshal tags: %w", err)
	}
	return tags, nil
}
