package intent

import (
	"context"
	"regexp"
)

// fallbackConfidence is reported by the deterministic table, which cannot
// judge its own certainty.
const fallbackConfidence = 0.5

type keywordRule struct {
	re       *regexp.Regexp
	category Category
}

// keywordRules is evaluated in order; scheduling outranks greetings so a
// "Oi, quero marcar uma consulta" routes into the flow.
var keywordRules = []keywordRule{
	{regexp.MustCompile(`(?i)\b(remarcar|reagendar)\b`), CategoryReschedule},
	{regexp.MustCompile(`(?i)\b(cancelar|desmarcar)\b`), CategoryCancel},
	{regexp.MustCompile(`(?i)\bagendar\b`), CategoryScheduling},
	{regexp.MustCompile(`(?i)\b(realizar|fazer)\s+(um\s+)?agendamento`), CategoryScheduling},
	{regexp.MustCompile(`(?i)\bmarcar\s+(uma?\s+)?(consulta|exame|hor[áa]rio|retorno|avalia[çc][ãa]o)`), CategoryScheduling},
	{regexp.MustCompile(`(?i)hor[áa]rio.{0,25}(funcionamento|atendimento)|que horas.{0,15}(abre|fecha)|\b(abre|fecha)m?\b.{0,15}que horas`), CategoryHours},
	{regexp.MustCompile(`(?i)\b(pre[çc]o|valor|quanto custa|quanto é|custa quanto)\b`), CategoryPricing},
	{regexp.MustCompile(`(?i)\b(endere[çc]o|onde fica|localiza[çc][ãa]o|como chegar)\b`), CategoryLocation},
	{regexp.MustCompile(`(?i)\b(m[ée]dic[oa]s?|doutora?|dra?\.|profissiona(l|is)|especialistas?)\b`), CategoryProfessionals},
	{regexp.MustCompile(`(?i)\b(conv[êe]nios?|plano de sa[úu]de)\b`), CategoryInsurance},
	{regexp.MustCompile(`(?i)(voc[êe] é.{0,15}(rob[ôo]|bot|assistente|ia)\b|quem (é|e) voc[êe]|falo com uma? (pessoa|atendente|humano))`), CategoryAboutBot},
	{regexp.MustCompile(`(?i)\b(ajuda|socorro digital|como funciona|o que voc[êe] faz)\b`), CategoryHelp},
	{regexp.MustCompile(`(?i)\b(tchau|at[ée] (logo|mais|breve)|adeus|encerrar)\b`), CategoryGoodbye},
	{regexp.MustCompile(`(?i)\b(oi+|ol[áa]|opa|e a[íi]|bom dia|boa tarde|boa noite|tudo bem)\b`), CategoryGreeting},
}

// KeywordClassifier is the deterministic fallback table. It always succeeds.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the regex-table classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify labels text with the first matching rule, or CategoryOther.
// The returned error is always nil.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (Intent, error) {
	for _, rule := range keywordRules {
		if rule.re.MatchString(text) {
			return Intent{Category: rule.category, Confidence: fallbackConfidence}, nil
		}
	}
	return Intent{Category: CategoryOther, Confidence: fallbackConfidence}, nil
}
