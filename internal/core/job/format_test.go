package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSecondsElapsed(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{0, "00:00:00"},
		{100, "00:01:40"},
		{3661, "01:01:01"},
		{86400, "1 day 00:00:00"},
		{2*86400 + 5, "2 days 00:00:05"},
		{604800 + 86400 + 3600, "1 week 1 day 01:00:00"},
		{2*604800 + 3*86400 + 4*3600 + 5*60 + 6, "2 weeks 3 days 04:05:06"},
		{-1, "n/a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSecondsElapsed(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestAddCommas(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		100000:   "100,000",
		1234567:  "1,234,567",
		-1234:    "-1,234",
		-999:     "-999",
		10000000: "10,000,000",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, AddCommas(in), "n=%d", in)
	}
}

func TestFormatTileCounts(t *testing.T) {
	assert.Equal(t, "too many to count", FormatTileCounts(-1, 1000))
	assert.Equal(t, "too many to count", FormatTileCounts(10, -1))
	assert.Equal(t, "50.00% (500 of 1,000)", FormatTileCounts(500, 1000))
	assert.Equal(t, "0.00% (0 of 0)", FormatTileCounts(0, 0))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "n/a", FormatTime(-1, 10))
	assert.Equal(t, "n/a", FormatTime(10, -1))
	assert.Equal(t, "elapsed: 00:01:00 / to go: 01:00:00", FormatTime(60, 3600))
}

func TestFormatState(t *testing.T) {
	assert.Equal(t, "RUNNING", FormatState(StateRunning, 0))
	assert.Equal(t, "RUNNING (!)", FormatState(StateRunning, 3))
	assert.Equal(t, "DONE (!)", FormatState(StateDone, 1))
	assert.Equal(t, "DEAD (x)", FormatState(StateDead, 0))
	assert.Equal(t, "READY", FormatState(StateReady, 5))
}

func TestFormatJobTitle(t *testing.T) {
	j := NewJob()
	j.JobType = TypeSeed
	j.Reseed = true
	j.LayerName = "topp:states"
	j.GridSetID = "EPSG:4326"
	j.Format = "image/png"
	j.ZoomStart = 0
	j.ZoomStop = 8

	assert.Equal(t, "RESEED topp:states (EPSG:4326, image/png, z0-8)", FormatJobTitle(j))

	bare := NewJob()
	bare.JobType = TypeTruncate
	bare.LayerName = "roads"
	assert.Equal(t, "TRUNCATE roads", FormatJobTitle(bare))
}

func TestFormatRegionAndThroughput(t *testing.T) {
	assert.Equal(t, "-", FormatRegion(nil))
	assert.Equal(t, "-180.0000, -90.0000, 180.0000, 90.0000", FormatRegion(&BoundingBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}))

	assert.Equal(t, "2.5 tiles/s (max unlimited)", FormatThroughput(2.5, -1))
	assert.Equal(t, "0.0 tiles/s (max 100)", FormatThroughput(0, 100))
}

func TestFormatSchedule(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", FormatSchedule("", false, now))
	assert.Equal(t, "once", FormatSchedule("", true, now))
	assert.Equal(t, "0 3 * * * (next: 2024-01-02 03:00)", FormatSchedule("0 3 * * *", false, now))
	assert.Equal(t, "not a cron (invalid)", FormatSchedule("not a cron", false, now))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("61 * * * *"))
}

func TestRetention(t *testing.T) {
	tests := []struct {
		input    string
		expected Retention
	}{
		{"day", RetentionDay},
		{"WEEK", RetentionWeek},
		{"month", RetentionMonth},
		{"year", RetentionYear},
		{"never", RetentionNever},
		{"604800", RetentionWeek},
		{"3600", Retention(3600)},
	}
	for _, tt := range tests {
		r, err := ParseRetention(tt.input)
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, r, tt.input)
	}

	_, err := ParseRetention("fortnight")
	assert.ErrorIs(t, err, ErrInvalidRetention)
	_, err = ParseRetention("-5")
	assert.ErrorIs(t, err, ErrInvalidRetention)

	assert.Equal(t, "week", RetentionWeek.Label())
	assert.Equal(t, "never", RetentionNever.Label())
	assert.Equal(t, "3600 seconds", Retention(3600).Label())
	assert.True(t, RetentionMonth.IsPreset())
	assert.False(t, Retention(3600).IsPreset())
}
