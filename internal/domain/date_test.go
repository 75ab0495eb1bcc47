package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDate_Normalizes(t *testing.T) {
	assert.Equal(t, NewDate(2024, time.March, 1), NewDate(2024, time.February, 30))
	assert.Equal(t, NewDate(2024, time.February, 29), NewDate(2024, time.March, 1).AddDays(-1))
	assert.Equal(t, "2025-01-01", NewDate(2024, time.December, 32).String())
}

func TestDate_DaysSince(t *testing.T) {
	start := NewDate(2024, time.February, 27)

	assert.Equal(t, 0, start.DaysSince(start))
	assert.Equal(t, 3, NewDate(2024, time.March, 1).DaysSince(start)) // leap year
	assert.Equal(t, -3, start.DaysSince(NewDate(2024, time.March, 1)))
}

func TestDate_Compare(t *testing.T) {
	a := NewDate(2024, time.January, 1)
	b := a.AddDays(1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.June, 15), d)

	_, err = ParseDate("15/06/2024")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.June, 15)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-15"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)

	var empty Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.True(t, empty.IsZero())
}

func TestDateRange(t *testing.T) {
	tests := []struct {
		name     string
		r        DateRange
		wantDays int
		wantErr  bool
	}{
		{
			name:     "single day",
			r:        DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 1)},
			wantDays: 1,
		},
		{
			name:     "month of January",
			r:        DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 31)},
			wantDays: 31,
		},
		{
			name:     "inverted range",
			r:        DateRange{Start: NewDate(2024, 1, 5), End: NewDate(2024, 1, 1)},
			wantDays: 0,
			wantErr:  true,
		},
		{
			name:    "unset bounds",
			r:       DateRange{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, tt.r.Validate())
			} else {
				assert.NoError(t, tt.r.Validate())
			}
			if tt.wantDays > 0 || !tt.r.Start.IsZero() {
				assert.Equal(t, tt.wantDays, tt.r.Days())
			}
		})
	}
}

func TestDateRange_Dates(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 2, 28), End: NewDate(2024, 3, 1)}

	var got []string
	for d := range r.Dates() {
		got = append(got, d.String())
	}

	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, got)
	assert.True(t, r.Contains(NewDate(2024, 2, 29)))
	assert.False(t, r.Contains(NewDate(2024, 3, 2)))
}
