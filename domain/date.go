package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// CanonicalDateLayout is the DD-MM-YYYY form every persisted transaction date
// converges to.
const CanonicalDateLayout = "02-01-2006"

var (
	canonicalDatePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	isoDatePattern       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

	lenientLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"01/02/2006",
		"02.01.2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"2 January 2006",
		"Mon Jan 2 2006",
		time.RFC1123Z,
		time.RFC1123,
	}

	naturalDates = newNaturalDateParser()
)

func newNaturalDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// CanonicalDate converts a date string to DD-MM-YYYY.
//
// DD-MM-YYYY input is returned verbatim and YYYY-MM-DD is rewritten textually.
// Anything else is parsed leniently; when nothing matches, the date of now is
// used instead.
func CanonicalDate(input string, now time.Time) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return now.Format(CanonicalDateLayout)
	}
	if canonicalDatePattern.MatchString(s) {
		return s
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return m[3] + "-" + m[2] + "-" + m[1]
	}
	if t, ok := parseLenient(s, now); ok {
		return t.Format(CanonicalDateLayout)
	}
	return now.Format(CanonicalDateLayout)
}

// CanonicalDateValue is CanonicalDate for decoded JSON values: strings,
// epoch milliseconds, time values or nil.
func CanonicalDateValue(v any, now time.Time) string {
	switch val := v.(type) {
	case string:
		return CanonicalDate(val, now)
	case time.Time:
		if val.IsZero() {
			return now.Format(CanonicalDateLayout)
		}
		return val.In(now.Location()).Format(CanonicalDateLayout)
	case float64:
		return time.UnixMilli(int64(val)).In(now.Location()).Format(CanonicalDateLayout)
	case int64:
		return time.UnixMilli(val).In(now.Location()).Format(CanonicalDateLayout)
	case int:
		return time.UnixMilli(int64(val)).In(now.Location()).Format(CanonicalDateLayout)
	default:
		return now.Format(CanonicalDateLayout)
	}
}

// IsCanonicalDate reports whether s already has the DD-MM-YYYY shape.
func IsCanonicalDate(s string) bool {
	return canonicalDatePattern.MatchString(s)
}

// MigrateISODate rewrites a YYYY-MM-DD date to DD-MM-YYYY and leaves every
// other value untouched. It is idempotent.
func MigrateISODate(s string) (string, bool) {
	m := isoDatePattern.FindStringSubmatch(s)
	if m == nil {
		return s, false
	}
	return m[3] + "-" + m[2] + "-" + m[1], true
}

// ParseCanonicalDate parses a DD-MM-YYYY date in loc.
func ParseCanonicalDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(CanonicalDateLayout, s, loc)
}

func parseLenient(s string, now time.Time) (time.Time, bool) {
	loc := now.Location()
	for _, layout := range lenientLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	r, err := naturalDates.Parse(s, now)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time.In(loc), true
}
