package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atendeja/clinic-ai-platform/internal/clinic"
	"github.com/atendeja/clinic-ai-platform/internal/memory"
)

// duplicateThreshold is the token-set Jaccard similarity above which two
// sentences count as near-duplicates.
const duplicateThreshold = 0.9

// stopWords are dropped before similarity comparison, accent-folded.
var stopWords = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "um": {}, "uma": {}, "uns": {}, "umas": {},
	"de": {}, "do": {}, "da": {}, "dos": {}, "das": {}, "no": {}, "na": {}, "nos": {}, "nas": {},
	"em": {}, "por": {}, "para": {}, "pra": {}, "com": {}, "sem": {}, "sob": {}, "sobre": {},
	"e": {}, "ou": {}, "mas": {}, "que": {}, "se": {}, "ao": {}, "aos": {},
	"eu": {}, "voce": {}, "ele": {}, "ela": {}, "eles": {}, "elas": {},
	"meu": {}, "minha": {}, "meus": {}, "minhas": {}, "seu": {}, "sua": {}, "seus": {}, "suas": {},
	"este": {}, "esta": {}, "isso": {}, "isto": {},
}

// openingPhrases is the boilerplate set an LLM tends to re-emit even though
// the composer already owns the greeting.
var openingPhrases = []string{
	"como posso ajudar",
	"como posso te ajudar",
	"em que posso ajudar",
	"em que posso te ajudar",
	"como posso ser util",
}

var pureGreetings = map[string]struct{}{
	"ola": {}, "oi": {}, "bom dia": {}, "boa tarde": {}, "boa noite": {}, "tudo bem": {},
}

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
	listLineRe = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s`)

	composerFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Composer turns raw model or flow output into the final reply: out-of-hours
// substitution, daily greeting, and near-duplicate sentence removal. Both
// passes are idempotent.
type Composer struct{}

// NewComposer creates the composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose applies the composition rules in order.
func (c *Composer) Compose(text string, cc *clinic.Context, mem *memory.Memory, firstOfDay, isOpen bool) string {
	if !isOpen {
		return cc.OutOfHoursMessage()
	}

	body := strings.TrimSpace(text)
	if !firstOfDay {
		return RemoveDuplicateContent(body)
	}

	greeting := c.Greeting(cc, mem)
	body = stripGreetingBoilerplate(body, cc, greeting)
	if body == "" {
		return greeting
	}
	return greeting + "\n\n" + RemoveDuplicateContent(body)
}

// Greeting builds the persona's daily opener, personalized when the
// patient's name is known.
func (c *Composer) Greeting(cc *clinic.Context, mem *memory.Memory) string {
	name := ""
	if mem != nil && mem.UserName != "" {
		name = strings.Fields(mem.UserName)[0]
	}

	if tpl := strings.TrimSpace(cc.Agent.InitialGreeting); tpl != "" {
		if name == "" {
			tpl = strings.ReplaceAll(tpl, ", {nome}", "")
			tpl = strings.ReplaceAll(tpl, "{nome}", "")
		} else {
			tpl = strings.ReplaceAll(tpl, "{nome}", name)
		}
		return strings.Join(strings.Fields(tpl), " ")
	}

	agent := cc.Agent.Name
	if agent == "" {
		agent = "Assistente"
	}
	if name != "" {
		return fmt.Sprintf("Olá, %s! Sou %s, assistente virtual da %s. Como posso ajudar?", name, agent, cc.Name)
	}
	return fmt.Sprintf("Olá! Sou %s, assistente virtual da %s. Como posso ajudar?", agent, cc.Name)
}

// stripGreetingBoilerplate removes a greeting the model (or a previous
// compose pass) already placed at the top of the text, so the composed
// greeting never appears twice.
func stripGreetingBoilerplate(body string, cc *clinic.Context, greeting string) string {
	// A previous compose pass leaves the exact greeting as a prefix.
	if rest, ok := strings.CutPrefix(body, greeting); ok {
		body = strings.TrimSpace(rest)
	}

	paragraphs := strings.SplitN(body, "\n\n", 2)
	head := paragraphs[0]
	if isListParagraph(head) {
		return body
	}

	sentences := splitSentences(head)
	idx := 0
	for idx < len(sentences) && isGreetingSentence(sentences[idx], cc, greeting) {
		idx++
	}
	if idx == 0 {
		return body
	}

	head = strings.TrimSpace(strings.Join(sentences[idx:], " "))
	if len(paragraphs) == 1 {
		return head
	}
	if head == "" {
		return strings.TrimSpace(paragraphs[1])
	}
	return head + "\n\n" + paragraphs[1]
}

func isGreetingSentence(sentence string, cc *clinic.Context, greeting string) bool {
	n := normalizeSentence(sentence)
	if n == "" {
		return false
	}
	if _, ok := pureGreetings[n]; ok {
		return true
	}
	if strings.Contains(n, "assistente virtual") {
		return true
	}
	for _, phrase := range openingPhrases {
		if strings.Contains(n, phrase) {
			return true
		}
	}
	if agent := normalizeSentence(cc.Agent.Name); agent != "" &&
		strings.Contains(n, agent) && strings.Contains(n, "sou") {
		return true
	}
	for _, gs := range splitSentences(greeting) {
		if n == normalizeSentence(gs) {
			return true
		}
	}
	return false
}

// RemoveDuplicateContent drops near-duplicate sentences, keeping the first
// occurrence. Numbered and bulleted paragraphs pass through untouched so
// flow menus are never reordered or collapsed.
func RemoveDuplicateContent(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	for i, p := range paragraphs {
		if isListParagraph(p) {
			continue
		}
		paragraphs[i] = dedupeSentences(p)
	}
	return strings.Join(paragraphs, "\n\n")
}

func isListParagraph(p string) bool {
	for _, line := range strings.Split(p, "\n") {
		if listLineRe.MatchString(line) {
			return true
		}
	}
	return false
}

func dedupeSentences(p string) string {
	sentences := splitSentences(p)
	if len(sentences) <= 1 {
		return strings.TrimSpace(p)
	}

	var (
		kept       []string
		keptNorms  []string
		keptTokens []map[string]struct{}
	)
	for _, s := range sentences {
		n := normalizeSentence(s)
		tokens := contentTokens(n)
		dup := false
		for j := range kept {
			if n == keptNorms[j] || jaccard(tokens, keptTokens[j]) > duplicateThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, s)
		keptNorms = append(keptNorms, n)
		keptTokens = append(keptTokens, tokens)
	}

	out := strings.Join(kept, " ")
	if out != "" && !strings.ContainsRune(".!?", rune(out[len(out)-1])) {
		out += "."
	}
	return out
}

func splitSentences(text string) []string {
	flat := strings.Join(strings.Fields(text), " ")
	raw := sentenceRe.FindAllString(flat, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeSentence lowercases, folds accents, strips punctuation and
// collapses whitespace.
func normalizeSentence(s string) string {
	folded, _, err := transform.String(composerFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func contentTokens(normalized string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
