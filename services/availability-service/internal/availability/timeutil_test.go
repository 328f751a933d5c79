package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinutesOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"9:30", 0, false},
		{"ab:cd", 0, false},
		{"0930", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := MinutesOfDay(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)
			assert.True(t, errors.Is(err, ErrInvalidTimeFormat), tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTimeString(t *testing.T) {
	assert.Equal(t, "00:00", TimeString(0))
	assert.Equal(t, "09:05", TimeString(545))
	assert.Equal(t, "23:59", TimeString(1439))
	assert.Equal(t, "00:00", TimeString(-30))

	for m := 0; m < minutesPerDay; m += 7 {
		back, err := MinutesOfDay(TimeString(m))
		require.NoError(t, err)
		require.Equal(t, m, back)
	}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(540, 600, 570, 630))
	assert.True(t, Overlaps(540, 600, 550, 560))
	assert.False(t, Overlaps(540, 600, 600, 660), "touching endpoints are not a conflict")
	assert.False(t, Overlaps(600, 660, 540, 600))
	assert.False(t, Overlaps(540, 560, 700, 720))

	for a := 0; a < 120; a += 10 {
		for b := a + 10; b <= 130; b += 10 {
			for c := 0; c < 120; c += 10 {
				for d := c + 10; d <= 130; d += 10 {
					require.Equal(t, Overlaps(a, b, c, d), Overlaps(c, d, a, b))
				}
			}
		}
	}
}

func TestOverlapMinutes(t *testing.T) {
	assert.Equal(t, 30, OverlapMinutes(540, 600, 570, 630))
	assert.Equal(t, 0, OverlapMinutes(540, 600, 600, 660))
	assert.Equal(t, 10, OverlapMinutes(540, 600, 550, 560))
}

func TestSubtractMinutesClampsAtZero(t *testing.T) {
	assert.Equal(t, 0, SubtractMinutes(5, 10))
	assert.Equal(t, 50, SubtractMinutes(60, 10))
	assert.Equal(t, 70, AddMinutes(60, 10))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", d.String())
	assert.Equal(t, 1, DayOfWeek(d))

	sunday, err := ParseDate("2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, 0, DayOfWeek(sunday))

	for _, bad := range []string{"2026-02-30", "2026-13-01", "26-10-19", "2026/10/19", "2026-10-1", ""} {
		_, err := ParseDate(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidInput), bad)
		assert.False(t, IsValidCalendarDate(bad), bad)
	}
	assert.True(t, IsValidCalendarDate("2028-02-29"))
}

func TestDateArithmetic(t *testing.T) {
	d, err := ParseDate("2026-12-31")
	require.NoError(t, err)
	next := d.AddDays(1)
	assert.Equal(t, "2027-01-01", next.String())
	assert.True(t, next.After(d))
	assert.True(t, d.Before(next))
	assert.False(t, d.After(d))
}
