package types

import (
	"fmt"
	"strings"
	"time"
)

// DateTime wraps a time.Time struct, allowing for improved dateTime JSON compatibility.
type DateTime struct {
	time.Time
}

// NewDateTime Creates a new DateTime struct, embedding a time.Time struct.
func NewDateTime(time time.Time) *DateTime {
	return &DateTime{Time: time}
}

func (dt *DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + dt.UTC().Format(time.RFC3339) + `"`), nil
}

func (dt *DateTime) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		return nil
	}
	parsed, err := ParseDateTime(value)
	if err != nil {
		return err
	}
	dt.Time = parsed.Time
	return nil
}

// ParseDateTime coerces a timestamp string into a DateTime. Central systems are
// not consistent about fractional seconds and zone suffixes, so several layouts
// are attempted before giving up.
func ParseDateTime(value string) (*DateTime, error) {
	layouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NewDateTime(t), nil
		}
	}
	return nil, fmt.Errorf("unsupported timestamp format: %s", value)
}

// MaxTime is the upper bound used when a charging schedule carries no duration.
var MaxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
