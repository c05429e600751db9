package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
)

func TestParsePeriodQuery(t *testing.T) {
	q, err := ParsePeriodQuery("", "", "", 0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodWeek, q.Selector)
	assert.Nil(t, q.Custom)

	q, err = ParsePeriodQuery("", "2024-01-01", "2024-01-31", 0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodCustom, q.Selector)
	require.NotNil(t, q.Custom)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), q.Custom.End)

	q, err = ParsePeriodQuery("month", "", "", 7, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 7, q.Days)
}

func TestParsePeriodQuery_Errors(t *testing.T) {
	_, err := ParsePeriodQuery("fortnight", "", "", 0, time.UTC)
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))

	_, err = ParsePeriodQuery("", "2024-01-01", "", 0, time.UTC)
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))

	_, err = ParsePeriodQuery("", "", "", -3, time.UTC)
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
}
