package clinic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HoursCheck is the result of a business-hours evaluation.
type HoursCheck struct {
	Within bool
	Reason string
}

var weekdayKeys = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda",
	time.Tuesday:   "terca",
	time.Wednesday: "quarta",
	time.Thursday:  "quinta",
	time.Friday:    "sexta",
	time.Saturday:  "sabado",
}

// weekdayAliases maps accented spellings used in clinic documents to the
// canonical keys.
var weekdayAliases = map[string]string{
	"terça":   "terca",
	"sábado":  "sabado",
	"segunda-feira": "segunda",
	"terca-feira":   "terca",
	"terça-feira":   "terca",
	"quarta-feira":  "quarta",
	"quinta-feira":  "quinta",
	"sexta-feira":   "sexta",
}

// CheckOpen reports whether "now" falls inside the clinic working hours.
// Missing or unparsable hours resolve to closed with a diagnostic reason,
// never open. All comparisons use clinic-local time.
func CheckOpen(cc *Context, now time.Time) HoursCheck {
	if cc == nil {
		return HoursCheck{Within: false, Reason: "configuração da clínica ausente"}
	}

	local := now.In(cc.Location())
	dayKey := weekdayKeys[local.Weekday()]

	hours, ok := lookupDay(cc.WorkingHours, dayKey)
	if !ok {
		return HoursCheck{
			Within: false,
			Reason: fmt.Sprintf("sem horário configurado para %s", dayKey),
		}
	}

	open, err := parseHHMM(hours.Open)
	if err != nil {
		return HoursCheck{
			Within: false,
			Reason: fmt.Sprintf("horário de abertura inválido para %s: %q", dayKey, hours.Open),
		}
	}
	close, err := parseHHMM(hours.Close)
	if err != nil {
		return HoursCheck{
			Within: false,
			Reason: fmt.Sprintf("horário de fechamento inválido para %s: %q", dayKey, hours.Close),
		}
	}

	current := local.Hour()*100 + local.Minute()
	if current >= open && current <= close {
		return HoursCheck{Within: true}
	}
	return HoursCheck{
		Within: false,
		Reason: fmt.Sprintf("fora do horário de atendimento (%s: %s-%s)", dayKey, hours.Open, hours.Close),
	}
}

func lookupDay(hours map[string]DayHours, dayKey string) (DayHours, bool) {
	if len(hours) == 0 {
		return DayHours{}, false
	}
	if h, ok := hours[dayKey]; ok {
		return h, true
	}
	for alias, canonical := range weekdayAliases {
		if canonical != dayKey {
			continue
		}
		if h, ok := hours[alias]; ok {
			return h, true
		}
	}
	return DayHours{}, false
}

// parseHHMM converts "HH:MM" into the integer HHMM, e.g. "08:30" -> 830.
func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("clinic: malformed time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("clinic: malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("clinic: malformed minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clinic: time out of range %q", s)
	}
	return h*100 + m, nil
}
