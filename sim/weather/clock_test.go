package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_RunsForGivenDays(t *testing.T) {
	// GIVEN a clock starting mid-afternoon on 30 Dec 2019
	start := time.Date(2019, 12, 30, 15, 4, 5, 0, time.FixedZone("X", 3600))
	c, err := NewClock(start, 3)
	require.NoError(t, err)

	// WHEN running it to completion
	var days []string
	for c.Running() {
		days = append(days, c.Current().Format("2006-01-02"))
		c.Advance()
	}

	// THEN it visits each day once, starting at midnight UTC
	assert.Equal(t, []string{"2019-12-30", "2019-12-31", "2020-01-01"}, days)
	assert.Equal(t, time.Date(2019, 12, 30, 0, 0, 0, 0, time.UTC), c.Start())
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), c.End())
	assert.Equal(t, 3, c.Days())
}

func TestClock_DayAndReset(t *testing.T) {
	c, err := NewClock(time.Date(2020, 2, 27, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)

	c.Advance()
	c.Advance()
	c.Advance()
	assert.Equal(t, 3, c.Day())
	assert.Equal(t, time.March, c.Current().Month(), "2020 is a leap year")

	c.Reset()
	assert.Equal(t, 0, c.Day())
	assert.Equal(t, c.Start(), c.Current())
}

func TestNewClock_RejectsEmptyRange(t *testing.T) {
	_, err := NewClock(time.Now(), 0)
	assert.Error(t, err)
}
