package sysconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"06:00", 360, false},
		{"21:30", 1290, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"07:60", 0, true},
		{"-1:00", 0, true},
		{"six am", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.in, FormatClock(got), "round trip")
	}
}

func TestWithinDayWindow(t *testing.T) {
	cfg := Default() // 06:00 - 21:00

	assert.True(t, cfg.WithinDayWindow(9*60, 18*60))
	assert.True(t, cfg.WithinDayWindow(6*60, 21*60), "window bounds are inclusive")
	assert.False(t, cfg.WithinDayWindow(5*60+30, 18*60), "05:30 is before opening")
	assert.False(t, cfg.WithinDayWindow(9*60, 21*60+15), "21:15 is after closing")
}

func TestConfigValidate(t *testing.T) {
	valid := Default()
	require.NoError(t, valid.Validate())

	inverted := valid
	inverted.DayPassStartMinute, inverted.DayPassEndMinute = inverted.DayPassEndMinute, inverted.DayPassStartMinute
	require.Error(t, inverted.Validate())

	noTTL := valid
	noTTL.GuardianTokenTTL = 0
	require.Error(t, noTTL.Validate())

	badStart := valid
	badStart.DayPassStartMinute = -5
	require.Error(t, badStart.Validate())
}
