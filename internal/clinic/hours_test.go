package clinic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hoursContext(t *testing.T) *Context {
	t.Helper()
	return &Context{
		ID:       "cardioprime",
		Timezone: "America/Sao_Paulo",
		WorkingHours: map[string]DayHours{
			"segunda": {Open: "08:00", Close: "18:00"},
			"terca":   {Open: "08:00", Close: "12:00"},
		},
	}
}

// localTime builds a clinic-local instant on a known Monday.
func localTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	// 2026-08-24 is a Monday.
	return time.Date(2026, time.August, 24, hour, min, 0, 0, loc)
}

func TestCheckOpenWithinHours(t *testing.T) {
	check := CheckOpen(hoursContext(t), localTime(t, 9, 0))
	assert.True(t, check.Within)
	assert.Empty(t, check.Reason)
}

func TestCheckOpenOutsideHours(t *testing.T) {
	check := CheckOpen(hoursContext(t), localTime(t, 19, 0))
	assert.False(t, check.Within)
	assert.Contains(t, check.Reason, "fora do horário de atendimento")
	assert.Contains(t, check.Reason, "segunda")
}

func TestCheckOpenInclusiveBoundaries(t *testing.T) {
	cc := hoursContext(t)
	assert.True(t, CheckOpen(cc, localTime(t, 8, 0)).Within, "opening minute is inclusive")
	assert.True(t, CheckOpen(cc, localTime(t, 18, 0)).Within, "closing minute is inclusive")
	assert.False(t, CheckOpen(cc, localTime(t, 7, 59)).Within)
	assert.False(t, CheckOpen(cc, localTime(t, 18, 1)).Within)
}

func TestCheckOpenMissingDayIsClosed(t *testing.T) {
	// 2026-08-23 is a Sunday; no hours configured.
	loc, _ := time.LoadLocation("America/Sao_Paulo")
	check := CheckOpen(hoursContext(t), time.Date(2026, time.August, 23, 10, 0, 0, 0, loc))
	assert.False(t, check.Within)
	assert.Contains(t, check.Reason, "domingo")
}

func TestCheckOpenUnparsableHoursIsClosed(t *testing.T) {
	cc := hoursContext(t)
	cc.WorkingHours["segunda"] = DayHours{Open: "8h", Close: "18:00"}
	check := CheckOpen(cc, localTime(t, 9, 0))
	assert.False(t, check.Within)
	assert.Contains(t, check.Reason, "inválido")
}

func TestCheckOpenUsesClinicLocalTime(t *testing.T) {
	// 20:00 UTC on Monday is 17:00 in São Paulo (UTC-3): still open.
	check := CheckOpen(hoursContext(t), time.Date(2026, time.August, 24, 20, 0, 0, 0, time.UTC))
	assert.True(t, check.Within)

	// 22:00 UTC is 19:00 local: closed.
	check = CheckOpen(hoursContext(t), time.Date(2026, time.August, 24, 22, 0, 0, 0, time.UTC))
	assert.False(t, check.Within)
}

func TestCheckOpenAcceptsAccentedWeekdayKeys(t *testing.T) {
	cc := &Context{
		Timezone:     "America/Sao_Paulo",
		WorkingHours: map[string]DayHours{"sábado": {Open: "09:00", Close: "13:00"}},
	}
	// 2026-08-22 is a Saturday.
	loc, _ := time.LoadLocation("America/Sao_Paulo")
	check := CheckOpen(cc, time.Date(2026, time.August, 22, 10, 0, 0, 0, loc))
	assert.True(t, check.Within)
}

func TestCheckOpenNilContext(t *testing.T) {
	check := CheckOpen(nil, time.Now())
	assert.False(t, check.Within)
	assert.NotEmpty(t, check.Reason)
}

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"08:00", 800, false},
		{"18:30", 1830, false},
		{"00:00", 0, false},
		{"23:59", 2359, false},
		{"24:00", 0, true},
		{"8h30", 0, true},
		{"", 0, true},
		{"aa:bb", 0, true},
	}
	for _, tt := range tests {
		got, err := parseHHMM(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
