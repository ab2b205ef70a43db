package importer

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/bramble/pkg/models"
)

const (
	fieldOriginalReleaseDate = "original_release_date"
	fieldExpectedYear        = "expected_release_year"
	fieldExpectedQuarter     = "expected_release_quarter"
	fieldExpectedMonth       = "expected_release_month"
)

// InferReleaseDate picks the most specific release date the record supports.
// Precedence is full date, quarter, month, year. A record carrying both a
// quarter and a month resolves to QuarterYear. The date is nil for NoRelease.
func InferReleaseDate(record models.EntityRecord) (any, models.ReleaseDateType) {
	if full, ok := models.ToText(record[fieldOriginalReleaseDate]); ok && strings.TrimSpace(full) != "" {
		full = strings.TrimSpace(full)
		if len(full) > len("2006-01-02") {
			full = full[:len("2006-01-02")]
		}
		return full, models.FullDate
	}

	year, ok := positive(record[fieldExpectedYear])
	if !ok {
		return nil, models.NoRelease
	}
	if quarter, ok := positive(record[fieldExpectedQuarter]); ok && quarter <= 4 {
		return firstOfMonth(year, quarter), models.QuarterYear
	}
	if month, ok := positive(record[fieldExpectedMonth]); ok && month <= 12 {
		return firstOfMonth(year, month), models.MonthYear
	}
	return firstOfMonth(year, 1), models.YearOnly
}

func positive(v any) (int64, bool) {
	n, ok := models.ToInt64(v)
	return n, ok && n > 0
}

// firstOfMonth formats day one of month. A quarter is stored as its number used as the month.
func firstOfMonth(year, month int64) string {
	return fmt.Sprintf("%04d-%02d-01", year, month)
}
