package aggregator

import (
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/period"
)

// ParsePeriodQuery builds a query from raw request values. Dates are YYYY-MM-DD in
// loc. A start/end pair without an explicit selector implies custom.
func ParsePeriodQuery(selector, start, end string, days int, loc *time.Location) (PeriodQuery, error) {
	if days < 0 {
		return PeriodQuery{}, apperrors.NewBadRequestError("days must be positive")
	}

	custom, err := period.ParseDateRange(start, end, loc)
	if err != nil {
		return PeriodQuery{}, err
	}

	if selector == "" && custom != nil {
		selector = string(domain.PeriodCustom)
	}
	sel, err := period.ParseSelector(selector)
	if err != nil {
		return PeriodQuery{}, err
	}

	return PeriodQuery{Selector: sel, Custom: custom, Days: days}, nil
}
