package parse

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Midnight", raw: "00:00", expected: 0},
		{name: "Afternoon", raw: "14:00", expected: 840},
		{name: "Minutes", raw: "09:45", expected: 585},
		{name: "Surrounding spaces", raw: " 16:30 ", expected: 990},
		{name: "End of day", raw: "24:00", expected: MinutesPerDay},
		{name: "Last minute", raw: "23:59", expected: 1439},
		{name: "Single digit hour", raw: "9:45", expectErr: true},
		{name: "Hour out of range", raw: "25:00", expectErr: true},
		{name: "Minute out of range", raw: "10:60", expectErr: true},
		{name: "Seconds present", raw: "10:00:00", expectErr: true},
		{name: "Garbage", raw: "noon", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseClock(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "24:00", FormatClock(MinutesPerDay))

	for _, raw := range []string{"07:30", "14:00", "23:59"} {
		minutes, err := ParseClock(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, FormatClock(minutes))
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", got)

	_, err = ParseDate("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("14/03/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateTime(t *testing.T) {
	loc := time.FixedZone("campus", 8*3600)
	got, err := DateTime("2026-03-14", 16*60+30, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 16, 30, 0, 0, loc), got)

	got, err = DateTime("2026-03-14", MinutesPerDay, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestDateTime_DaylightSavingDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// clocks jump from 02:00 to 03:00 on 2026-03-08
	got, err := DateTime("2026-03-08", 14*60, loc)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, 0, got.Minute())
	assert.Equal(t, 8, got.Day())

	// and fall back on 2026-11-01
	got, err = DateTime("2026-11-01", 9*60+15, loc)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 15, got.Minute())
}
