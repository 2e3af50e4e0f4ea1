// Package dates standardizes free-form date columns to ISO-8601.
// Values are parsed against two strict day-first layouts before a
// tolerant fallback parser; anything blank, sentinel, or unparsable
// renders as the empty string.
package dates

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"popprep/internal/dataset"
	"popprep/pkg/errors"
)

// Suffix appended to a raw date column name to form its ISO column.
const Suffix = "_iso"

// strictLayouts are tried in order before the tolerant fallback.
// Both are day-first: DD/MM/YY then DD/MM/YYYY.
var strictLayouts = []string{"02/01/06", "02/01/2006"}

// sentinels are raw values treated as absent, compared case-insensitively.
var sentinels = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
}

// Parse parses a single raw date value. The second return value is
// false when the value is blank, a sentinel, or unparsable.
func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := sentinels[strings.ToLower(s)]; ok {
		return time.Time{}, false
	}

	for _, layout := range strictLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Tolerant fallback, preferring day-before-month for ambiguous
	// numeric dates.
	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ToISO renders the parse result of raw as a canonical YYYY-MM-DD
// string, or the empty string when the value is absent.
func ToISO(raw string) string {
	t, ok := Parse(raw)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// Normalize derives an ISO column for every required date column in
// ds, appending <name>_iso alongside the originals. It fails with a
// schema error naming every absent required column before touching
// the dataset.
func Normalize(ds *dataset.Dataset, columns []string) error {
	var missing []string
	for _, name := range columns {
		if !ds.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrorTypeSchema,
			"missing required column(s): ["+strings.Join(missing, " ")+"]").
			WithDetail("missing", missing)
	}

	for _, name := range columns {
		raw, err := ds.Column(name)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to read column "+name)
		}

		iso := make([]string, len(raw))
		for i, value := range raw {
			iso[i] = ToISO(value)
		}

		if err := ds.AppendColumn(name+Suffix, iso); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to append column "+name+Suffix)
		}
	}

	return nil
}
