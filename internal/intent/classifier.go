package intent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atendeja/clinic-ai-platform/internal/llm"
	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

const classifierPrompt = `Classifique a mensagem do paciente de uma clínica em UMA categoria.

Categorias:
- saudacao: cumprimentos e abertura de conversa
- agendamento: quer marcar consulta, exame ou horário
- reagendamento: quer remarcar um horário existente
- cancelamento: quer cancelar um horário existente
- horario_funcionamento: pergunta sobre horário de atendimento
- preco: pergunta sobre preços e valores
- localizacao: pergunta sobre endereço ou como chegar
- profissionais: pergunta sobre médicos e especialistas
- convenio: pergunta sobre convênios e planos de saúde
- sobre_assistente: pergunta sobre o próprio assistente
- ajuda: pede ajuda para usar o atendimento
- despedida: encerrando a conversa
- outro: qualquer outra coisa

Responda APENAS no formato CATEGORIA|confianca, por exemplo: agendamento|0.93

Mensagem: %s`

// LLMClassifier asks the model for a constrained CATEGORIA|confianca label
// and parses it strictly. Any deviation is an error so the caller can fall
// back.
type LLMClassifier struct {
	client llm.Client
}

// NewLLMClassifier creates the model-backed classifier.
func NewLLMClassifier(client llm.Client) *LLMClassifier {
	if client == nil {
		panic("intent: llm client cannot be nil")
	}
	return &LLMClassifier{client: client}
}

// Classify performs one completion call and parses the label.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{Category: CategoryOther, Confidence: 1}, nil
	}

	resp, err := c.client.Complete(ctx, llm.Request{
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: fmt.Sprintf(classifierPrompt, text)}},
		MaxTokens:   20,
		Temperature: 0,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("intent: classification call failed: %w", err)
	}

	return parseLabel(resp.Text)
}

// parseLabel accepts exactly "categoria|confianca" with a known category and
// a confidence in [0,1]. Models occasionally wrap the answer in extra lines,
// so only the first non-empty line is considered.
func parseLabel(raw string) (Intent, error) {
	line := ""
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	parts := strings.Split(line, "|")
	if len(parts) != 2 {
		return Intent{}, fmt.Errorf("intent: malformed label %q", raw)
	}

	category := Category(strings.ToLower(strings.TrimSpace(parts[0])))
	if _, ok := knownCategories[category]; !ok {
		return Intent{}, fmt.Errorf("intent: unknown category %q", parts[0])
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || confidence < 0 || confidence > 1 {
		return Intent{}, fmt.Errorf("intent: invalid confidence %q", parts[1])
	}

	return Intent{Category: category, Confidence: confidence}, nil
}

// ResilientClassifier tries the model first and falls back to the keyword
// table on any failure. Classify never returns a non-nil error, which is the
// contract the orchestrator depends on.
type ResilientClassifier struct {
	primary  Classifier
	fallback Classifier
	timeout  time.Duration
	logger   *logging.Logger
	// onFallback is invoked when the primary fails, for metrics.
	onFallback func()
}

// ResilientOption configures the decorator.
type ResilientOption func(*ResilientClassifier)

// WithFallbackHook registers a callback fired whenever the keyword table is
// used instead of the model.
func WithFallbackHook(fn func()) ResilientOption {
	return func(c *ResilientClassifier) {
		c.onFallback = fn
	}
}

// NewResilientClassifier wires the model classifier with a deterministic
// fallback. A nil primary means keyword-only classification.
func NewResilientClassifier(primary Classifier, timeout time.Duration, logger *logging.Logger, opts ...ResilientOption) *ResilientClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	c := &ResilientClassifier{
		primary:  primary,
		fallback: NewKeywordClassifier(),
		timeout:  timeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify always returns a usable Intent and a nil error.
func (c *ResilientClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	if c.primary != nil {
		classifyCtx, cancel := context.WithTimeout(ctx, c.timeout)
		it, err := c.primary.Classify(classifyCtx, text)
		cancel()
		if err == nil {
			return it, nil
		}
		c.logger.Warn("intent classification fell back to keyword table", "error", err)
		if c.onFallback != nil {
			c.onFallback()
		}
	}
	return c.fallback.Classify(ctx, text)
}
