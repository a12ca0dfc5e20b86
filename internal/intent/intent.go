// Package intent classifies inbound patient messages into routing categories.
package intent

import (
	"context"
	"regexp"
)

// Category labels the purpose of a patient message.
type Category string

const (
	CategoryGreeting      Category = "saudacao"
	CategoryScheduling    Category = "agendamento"
	CategoryReschedule    Category = "reagendamento"
	CategoryCancel        Category = "cancelamento"
	CategoryHours         Category = "horario_funcionamento"
	CategoryPricing       Category = "preco"
	CategoryLocation      Category = "localizacao"
	CategoryProfessionals Category = "profissionais"
	CategoryInsurance     Category = "convenio"
	CategoryAboutBot      Category = "sobre_assistente"
	CategoryHelp          Category = "ajuda"
	CategoryGoodbye       Category = "despedida"
	CategoryOther         Category = "outro"
)

// knownCategories guards strict parsing of model output.
var knownCategories = map[Category]struct{}{
	CategoryGreeting:      {},
	CategoryScheduling:    {},
	CategoryReschedule:    {},
	CategoryCancel:        {},
	CategoryHours:         {},
	CategoryPricing:       {},
	CategoryLocation:      {},
	CategoryProfessionals: {},
	CategoryInsurance:     {},
	CategoryAboutBot:      {},
	CategoryHelp:          {},
	CategoryGoodbye:       {},
	CategoryOther:         {},
}

// Intent is the classification of a single message. It is ephemeral:
// recomputed per message, never persisted as-is.
type Intent struct {
	Category   Category          `json:"category"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
}

// Classifier labels free text. Implementations may fail; wrap them with
// NewResilientClassifier to get the never-fails contract the orchestrator
// relies on.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// appointmentCategories is the fixed category set treated as scheduling
// intent.
var appointmentCategories = map[Category]struct{}{
	CategoryScheduling: {},
	CategoryReschedule: {},
	CategoryCancel:     {},
}

// schedulingParaphrases broadens detection beyond the literal verbs, so
// wordings like "gostaria de realizar um agendamento" still open the flow.
var schedulingParaphrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(realizar|fazer)\s+(um\s+)?agendamento`),
	regexp.MustCompile(`(?i)\bagendar\b`),
	regexp.MustCompile(`(?i)\bmarcar\s+(uma?\s+)?(consulta|exame|hor[áa]rio|retorno|avalia[çc][ãa]o)`),
	regexp.MustCompile(`(?i)\b(remarcar|reagendar|desmarcar)\b`),
	regexp.MustCompile(`(?i)\bcancelar\b.{0,30}\b(consulta|exame|agendamento|hor[áa]rio)`),
}

// IsAppointmentIntent reports whether the message should be routed to the
// appointment flow: either the classifier put it in the fixed category set,
// or the raw text matches a broadened scheduling paraphrase.
func IsAppointmentIntent(it Intent, text string) bool {
	if _, ok := appointmentCategories[it.Category]; ok {
		return true
	}
	for _, re := range schedulingParaphrases {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
