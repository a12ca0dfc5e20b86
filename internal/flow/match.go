package flow

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atendeja/clinic-ai-platform/internal/calendar"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips accents so "Cardiológica" matches "cardiologica".
func fold(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// matchService resolves the patient's reply against the presented list,
// accepting a 1-based index or a fuzzy name match.
func matchService(text string, candidates []clinic.Service) (clinic.Service, bool) {
	reply := fold(text)
	if reply == "" {
		return clinic.Service{}, false
	}

	if idx, err := strconv.Atoi(reply); err == nil {
		if idx >= 1 && idx <= len(candidates) {
			return candidates[idx-1], true
		}
		return clinic.Service{}, false
	}

	for _, svc := range candidates {
		name := fold(svc.Name)
		if name == "" {
			continue
		}
		if strings.Contains(reply, name) || strings.Contains(name, reply) {
			return svc, true
		}
	}
	return clinic.Service{}, false
}

// matchSlot resolves the patient's reply against the presented slots,
// accepting a 1-based index, a date mention or a start-time mention.
func matchSlot(text string, candidates []calendar.Slot) (calendar.Slot, bool) {
	reply := fold(text)
	if reply == "" {
		return calendar.Slot{}, false
	}

	if idx, err := strconv.Atoi(reply); err == nil {
		if idx >= 1 && idx <= len(candidates) {
			return candidates[idx-1], true
		}
		return calendar.Slot{}, false
	}

	for _, slot := range candidates {
		if strings.Contains(reply, shortDate(slot.Date)) && strings.Contains(reply, slot.StartTime) {
			return slot, true
		}
	}
	for _, slot := range candidates {
		if strings.Contains(reply, shortDate(slot.Date)) || strings.Contains(reply, slot.StartTime) {
			return slot, true
		}
	}
	return calendar.Slot{}, false
}

// shortDate turns 2006-01-02 into the dd/mm form patients actually type.
func shortDate(isoDate string) string {
	parts := strings.Split(isoDate, "-")
	if len(parts) != 3 {
		return isoDate
	}
	return parts[2] + "/" + parts[1]
}

var affirmativeTokens = map[string]struct{}{
	"1": {}, "sim": {}, "s": {}, "confirmo": {}, "confirmar": {},
	"pode confirmar": {}, "isso": {}, "isso mesmo": {}, "ok": {},
	"claro": {}, "com certeza": {}, "pode ser": {}, "quero": {},
}

var negativeTokens = map[string]struct{}{
	"2": {}, "nao": {}, "n": {}, "cancelar": {}, "cancela": {},
	"nao quero": {}, "desistir": {}, "deixa pra la": {},
}

func isAffirmative(text string) bool {
	reply := fold(text)
	if _, ok := affirmativeTokens[reply]; ok {
		return true
	}
	return strings.HasPrefix(reply, "sim,") || strings.HasPrefix(reply, "sim ")
}

func isNegative(text string) bool {
	reply := fold(text)
	if _, ok := negativeTokens[reply]; ok {
		return true
	}
	return strings.HasPrefix(reply, "nao,") || strings.HasPrefix(reply, "nao ")
}
