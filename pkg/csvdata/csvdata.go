package csvdata

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Encoding names accepted by the import entry points.
const (
	EncodingShiftJIS = "shift_jis"
	EncodingUTF8     = "utf8"
)

var ErrUnknownEncoding = errors.New("unknown feed encoding")

// NewReader wraps r in a CSV reader, decoding Shift-JIS when requested.
// Column counts vary per feed, so record length checks are left to callers.
func NewReader(r io.Reader, encoding string) (*csv.Reader, error) {
	switch encoding {
	case EncodingShiftJIS:
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	case EncodingUTF8, "":
	default:
		return nil, errors.Wrapf(ErrUnknownEncoding, "%q", encoding)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr, nil
}

// ParseDate accepts the two date layouts the line controllers emit.
// Anything else, including the empty string, yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006/1/2", "2006-1-2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseDateTime accepts the date layouts with an optional time-of-day part.
func ParseDateTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{
		"2006/1/2 15:4:5",
		"2006-1-2 15:4:5",
		"2006/1/2",
		"2006-1-2",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseFloat returns 0 on any parse failure. The feeds routinely carry
// blanks and stray text in numeric columns and the line owners treat
// those as zero counts.
func ParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseInt returns 0 on any parse failure, truncating fractional input.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Field returns the trimmed value at index i, or "" when the row is short.
func Field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
