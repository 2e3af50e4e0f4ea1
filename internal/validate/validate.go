// Package validate re-checks the cleaned dataset before export. It
// counts genuinely unparsable date values and verifies every produced
// ISO string against the canonical pattern, failing the run when any
// derived value slipped through malformed.
package validate

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"popprep/internal/dataset"
	"popprep/internal/dates"
	"popprep/pkg/errors"
)

// isoPattern is the canonical YYYY-MM-DD shape every non-empty derived
// value must match.
var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// maxSamples caps the offending rows logged per column.
const maxSamples = 5

// OffendingRow identifies a row whose derived ISO value fails the
// canonical pattern.
type OffendingRow struct {
	Key string
	Raw string
	ISO string
}

// Report summarizes the validation pass over one dataset.
type Report struct {
	Rows       int
	Unparsable map[string]int
	Offending  map[string][]OffendingRow
}

// Check validates the derived ISO columns for the given raw date
// columns. It returns the diagnostic report and a formatting error
// when any offending rows exist; callers must not export in that case.
func Check(ds *dataset.Dataset, keyColumn string, dateColumns []string, logger *zap.Logger) (*Report, error) {
	report := &Report{
		Rows:       ds.Rows(),
		Unparsable: make(map[string]int, len(dateColumns)),
		Offending:  make(map[string][]OffendingRow, len(dateColumns)),
	}

	for _, name := range dateColumns {
		raw, err := ds.Column(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read column "+name)
		}
		iso, err := ds.Column(name + dates.Suffix)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read column "+name+dates.Suffix)
		}

		for i := range raw {
			if iso[i] == "" {
				if strings.TrimSpace(raw[i]) != "" {
					report.Unparsable[name]++
				}
				continue
			}
			if isoPattern.MatchString(iso[i]) {
				continue
			}

			key := ""
			if ds.HasColumn(keyColumn) {
				key, _ = ds.Value(keyColumn, i)
			}
			report.Offending[name] = append(report.Offending[name], OffendingRow{
				Key: key,
				Raw: raw[i],
				ISO: iso[i],
			})
		}
	}

	fields := []zap.Field{zap.Int("rows", report.Rows)}
	for _, name := range dateColumns {
		fields = append(fields, zap.Int("unparsable_"+name, report.Unparsable[name]))
	}
	logger.Info("validation summary", fields...)

	bad := false
	for _, name := range dateColumns {
		offending := report.Offending[name]
		if len(offending) == 0 {
			continue
		}
		bad = true

		samples := offending
		if len(samples) > maxSamples {
			samples = samples[:maxSamples]
		}
		for _, row := range samples {
			logger.Error("offending row",
				zap.String("column", name),
				zap.String("key", row.Key),
				zap.String("raw", row.Raw),
				zap.String("iso", row.ISO))
		}
	}
	if bad {
		err := errors.New(errors.ErrorTypeFormatting, "ISO formatting check failed")
		for _, name := range dateColumns {
			if n := len(report.Offending[name]); n > 0 {
				err = err.WithDetail(name, n)
			}
		}
		return report, err
	}

	return report, nil
}
