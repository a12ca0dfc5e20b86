package memory

import (
	"regexp"
	"strings"
	"time"
)

// namePatterns is the ordered self-introduction list. The first match wins,
// so "sou o/a X" must be tried before the looser "eu sou X".
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)meu nome é\s+([\p{L}][\p{L}' ]*)`),
	regexp.MustCompile(`(?i)\bme chamo\s+([\p{L}][\p{L}' ]*)`),
	regexp.MustCompile(`(?i)\bsou [oa]\s+([\p{L}][\p{L}' ]*)`),
	regexp.MustCompile(`(?i)\beu sou\s+([\p{L}][\p{L}' ]*)`),
	regexp.MustCompile(`(?i)\bchamo-me\s+([\p{L}][\p{L}' ]*)`),
}

// rejectedNameTokens are interrogative and greeting words that signal the
// capture is not actually a name.
var rejectedNameTokens = map[string]struct{}{
	"qual": {}, "quem": {}, "como": {}, "quando": {}, "onde": {}, "porque": {},
	"oi": {}, "olá": {}, "ola": {}, "bom": {}, "boa": {}, "dia": {}, "tarde": {},
	"noite": {}, "tudo": {}, "bem": {},
}

// nameStopWords cut a greedy capture short: "meu nome é Lucas e quero
// marcar" must yield just "Lucas".
var nameStopWords = map[string]struct{}{
	"e": {}, "mas": {}, "quero": {}, "queria": {}, "preciso": {}, "gostaria": {},
}

var greetingPattern = regexp.MustCompile(`(?i)\b(oi+|ol[áa]|opa|e a[íi]|bom dia|boa tarde|boa noite)\b`)

// ExtractName pulls a self-introduced name out of free text. Returns ""
// when no pattern matches or the capture looks like something else.
func ExtractName(text string) string {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		var kept []string
		for _, word := range strings.Fields(m[1]) {
			if _, stop := nameStopWords[strings.ToLower(word)]; stop {
				break
			}
			if _, bad := rejectedNameTokens[strings.ToLower(word)]; bad {
				return ""
			}
			kept = append(kept, word)
		}

		name := strings.Join(kept, " ")
		if name == "" || len(name) > 50 {
			return ""
		}
		return name
	}
	return ""
}

// IsGreeting reports whether text opens with a Portuguese greeting.
func IsGreeting(text string) bool {
	return greetingPattern.MatchString(text)
}

// IsRepeatedGreeting is true when the current text greets and some prior
// patient turn in the rolling window also greeted.
func IsRepeatedGreeting(text string, m *Memory) bool {
	if m == nil || !IsGreeting(text) {
		return false
	}
	for _, turn := range m.RecentHistory {
		if turn.Role == "user" && IsGreeting(turn.Text) {
			return true
		}
	}
	return false
}

// IsFirstConversationOfDay is true when the record has never been touched or
// the last interaction fell on an earlier calendar day in clinic-local time.
func IsFirstConversationOfDay(m *Memory, now time.Time, loc *time.Location) bool {
	if m == nil || m.LastInteractionAt.IsZero() {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	last := m.LastInteractionAt.In(loc)
	cur := now.In(loc)
	return last.Year() != cur.Year() || last.YearDay() != cur.YearDay()
}
