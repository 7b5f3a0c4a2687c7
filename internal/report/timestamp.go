package report

import (
	"strings"
	"time"

	"github.com/daimoniac/waiverreport/internal/types"
)

const (
	// InvalidDate replaces a timestamp that could not be parsed.
	InvalidDate = "Invalid Date"

	// OutputLayout is the layout every parsed timestamp is rendered with.
	OutputLayout = "2006-01-02 15:04:05"

	inputLayout   = "2006-01-02T15:04:05"
	maxFracDigits = 6
	offsetLayout  = "-0700"
	offsetLength  = len("+0000")
)

// TimestampKind classifies the outcome of ParseTimestamp.
type TimestampKind int

const (
	// TimestampNotAvailable means the field was absent or already "N/A".
	TimestampNotAvailable TimestampKind = iota
	// TimestampFormatted means the value parsed and was reformatted.
	TimestampFormatted
	// TimestampInvalid means the value was present but unparseable.
	TimestampInvalid
)

// Timestamp is the normalized form of a waiver timestamp.
type Timestamp struct {
	Kind TimestampKind
	// Time is set only for TimestampFormatted. When the "+HHMM" suffix is a
	// valid offset it is applied, otherwise the wall clock is read as UTC.
	Time time.Time
}

// ParseTimestamp normalizes server timestamps like "2024-01-15T10:30:00.123456+0000".
// Everything from the first '+' onwards is dropped before parsing, and the
// fractional seconds (1 to 6 digits) are mandatory.
func ParseTimestamp(text string) Timestamp {
	if text == "" || text == types.NotAvailable {
		return Timestamp{Kind: TimestampNotAvailable}
	}

	local, offset, _ := strings.Cut(text, "+")

	whole, frac, ok := strings.Cut(local, ".")
	if !ok || !isFraction(frac) {
		return Timestamp{Kind: TimestampInvalid}
	}

	wall, err := time.Parse(inputLayout, whole)
	if err != nil {
		return Timestamp{Kind: TimestampInvalid}
	}

	return Timestamp{Kind: TimestampFormatted, Time: applyOffset(wall, offset)}
}

// String renders the timestamp the way it appears in the report.
func (t Timestamp) String() string {
	switch t.Kind {
	case TimestampFormatted:
		return t.Time.Format(OutputLayout)
	case TimestampInvalid:
		return InvalidDate
	default:
		return types.NotAvailable
	}
}

// FormatTimestamp is shorthand for ParseTimestamp(text).String().
func FormatTimestamp(text string) string {
	return ParseTimestamp(text).String()
}

func isFraction(s string) bool {
	if len(s) == 0 || len(s) > maxFracDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// applyOffset reinterprets the UTC wall clock in the zone named by offset
// ("0000", "0530", ...). The rendered wall clock never changes.
func applyOffset(wall time.Time, offset string) time.Time {
	if len(offset) != offsetLength-1 {
		return wall
	}
	zone, err := time.Parse(offsetLayout, "+"+offset)
	if err != nil {
		return wall
	}
	return time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), zone.Location())
}
