package timefmt

import (
	"errors"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultPattern renders a day, a time with second precision and a UTC marker.
const DefaultPattern = "%Y-%m-%d %H:%M:%SZ"

// InvalidDate is rendered for absent or malformed timestamps.
const InvalidDate = "Invalid date"

var errEmpty = errors.New("empty timestamp")

// layouts accepted by Parse, most specific first.
// Values without an offset are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Formatter renders timestamps through one fixed strftime pattern in UTC.
type Formatter struct {
	pattern string
}

// NewFormatter creates a formatter. An empty pattern selects DefaultPattern.
func NewFormatter(pattern string) *Formatter {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	return &Formatter{pattern: pattern}
}

// Pattern returns the configured strftime pattern.
func (f *Formatter) Pattern() string {
	return f.pattern
}

// Format parses an ISO-8601 string and renders it.
// Absent or malformed input yields InvalidDate.
func (f *Formatter) Format(raw string) string {
	t, err := Parse(raw)
	if err != nil {
		return InvalidDate
	}
	return f.FormatTime(t)
}

// FormatPtr is Format for optional payload fields.
func (f *Formatter) FormatPtr(raw *string) string {
	if raw == nil {
		return InvalidDate
	}
	return f.Format(*raw)
}

// FormatTime renders t in UTC. The zero time yields InvalidDate.
func (f *Formatter) FormatTime(t time.Time) string {
	if t.IsZero() {
		return InvalidDate
	}
	return strftime.Format(f.pattern, t.UTC())
}

// Parse reads an ISO-8601 timestamp.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errEmpty
	}

	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParsePtr is Parse for optional payload fields; failures yield the zero time.
func ParsePtr(raw *string) time.Time {
	if raw == nil {
		return time.Time{}
	}
	t, err := Parse(*raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
