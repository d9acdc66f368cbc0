package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuditDate(t *testing.T) {
	d, err := ParseAuditDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	// 2026-03-01T22:00-05:00 is already March 2nd in UTC
	d, err = ParseAuditDate("2026-03-01T22:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseAuditDate("")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	_, err = ParseAuditDate("01/03/2026")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestUTCBoundaries_IgnoreLocalZone(t *testing.T) {
	lima := time.FixedZone("PET", -5*3600)
	// local evening of Feb 28 in Lima is March 1st in UTC
	local := time.Date(2026, 2, 28, 21, 30, 0, 0, lima)

	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999_000_000, time.UTC), EndOfUTCDay(local))
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), PrevUTCDay(local))
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 999_000_000, time.UTC), EndOfUTCDay(PrevUTCDay(local)))
	assert.Equal(t, "2026-03-01", FormatDate(local))
}

func TestStaleDays(t *testing.T) {
	requested := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, StaleDays(requested, time.Date(2026, 3, 5, 23, 10, 0, 0, time.UTC)))
	assert.Equal(t, 1, StaleDays(requested, time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 4, StaleDays(requested, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	// crossing a month boundary
	assert.Equal(t, 5, StaleDays(requested, time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)))
}
