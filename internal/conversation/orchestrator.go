package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/atendeja/clinic-ai-platform/internal/bookinglog"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
	"github.com/atendeja/clinic-ai-platform/internal/flow"
	"github.com/atendeja/clinic-ai-platform/internal/intent"
	"github.com/atendeja/clinic-ai-platform/internal/llm"
	"github.com/atendeja/clinic-ai-platform/internal/memory"
	"github.com/atendeja/clinic-ai-platform/internal/observability/metrics"
	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

const defaultFlowTTL = 45 * time.Minute

// emergencyPattern catches symptoms that must never enter the booking flow
// or a model reply.
var emergencyPattern = regexp.MustCompile(`(?i)\b(emerg[êe]ncia|urgente|urg[êe]ncia|dor no peito|infarto|avc|derrame|falta de ar|desmai\w*|sangramento intenso)\b`)

// ClinicResolver loads the normalized clinic context.
type ClinicResolver interface {
	Resolve(ctx context.Context, clinicID string) (*clinic.Context, error)
}

// MemoryStore loads and persists per-phone conversation records.
type MemoryStore interface {
	Load(ctx context.Context, phoneNumber string) (*memory.Memory, error)
	Save(ctx context.Context, m *memory.Memory) error
}

// BookingRecorder persists the booking audit trail. Best-effort: audit
// failures never fail the patient-facing turn.
type BookingRecorder interface {
	Record(ctx context.Context, e bookinglog.Entry) error
}

// EscalationNotifier alerts clinic staff when the assistant gives up.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, cc *clinic.Context, phoneNumber, lastMessage string) error
}

// Orchestrator runs the full pipeline for one inbound message. Events for
// the same phone number are serialized by a sharded lock; distinct numbers
// proceed in parallel.
type Orchestrator struct {
	clinics     ClinicResolver
	memories    MemoryStore
	classifier  intent.Classifier
	flows       *flow.Machine
	llm         llm.Client
	composer    *Composer
	locks       *memory.KeyedMutex
	logger      *logging.Logger
	metrics     *metrics.ConversationMetrics
	bookings    BookingRecorder
	escalations EscalationNotifier
	flowTTL     time.Duration
	now         func() time.Time
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.ConversationMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithBookingRecorder attaches the booking audit trail.
func WithBookingRecorder(r BookingRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.bookings = r }
}

// WithEscalationNotifier attaches staff email alerts.
func WithEscalationNotifier(n EscalationNotifier) OrchestratorOption {
	return func(o *Orchestrator) { o.escalations = n }
}

// WithFlowTTL overrides how long an idle flow survives before it is treated
// as abandoned.
func WithFlowTTL(ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.flowTTL = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires the pipeline. A nil llm client is allowed: general
// questions then get a deterministic fallback answer.
func NewOrchestrator(
	clinics ClinicResolver,
	memories MemoryStore,
	classifier intent.Classifier,
	flows *flow.Machine,
	llmClient llm.Client,
	logger *logging.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	if clinics == nil {
		panic("conversation: clinic resolver cannot be nil")
	}
	if memories == nil {
		panic("conversation: memory store cannot be nil")
	}
	if classifier == nil {
		panic("conversation: classifier cannot be nil")
	}
	if flows == nil {
		panic("conversation: flow machine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		clinics:    clinics,
		memories:   memories,
		classifier: classifier,
		flows:      flows,
		llm:        llmClient,
		composer:   NewComposer(),
		locks:      memory.NewKeyedMutex(),
		logger:     logger,
		flowTTL:    defaultFlowTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var _ Service = (*Orchestrator)(nil)

// Process handles one inbound message end to end. It always produces a
// non-empty reply; only a malformed event returns an error.
func (o *Orchestrator) Process(ctx context.Context, in Inbound) (Outbound, error) {
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		return Outbound{}, errors.New("conversation: inbound event missing phone number")
	}
	if strings.TrimSpace(in.ClinicID) == "" {
		return Outbound{}, errors.New("conversation: inbound event missing clinic id")
	}

	unlock := o.locks.Lock(phone)
	defer unlock()

	now := in.Timestamp
	if now.IsZero() {
		now = o.now()
	}

	cc, err := o.clinics.Resolve(ctx, in.ClinicID)
	if err != nil {
		if !errors.Is(err, clinic.ErrNotFound) {
			o.logger.Error("clinic resolution failed", "clinic_id", in.ClinicID, "error", err)
		}
		o.metrics.ObserveMessage("outro", "clinic_error")
		return Outbound{
			Text: "Desculpe, não consegui acessar as informações da clínica agora. Tente novamente em alguns minutos.",
			Meta: Meta{Intent: string(intent.CategoryOther)},
		}, nil
	}

	mem, err := o.memories.Load(ctx, phone)
	if err != nil {
		// Degrade to a fresh record rather than dropping the message.
		o.logger.Error("memory load failed", "phone", phone, "error", err)
		mem = memory.New(phone)
	}

	firstOfDay := memory.IsFirstConversationOfDay(mem, now, cc.Location())

	if check := clinic.CheckOpen(cc, now); !check.Within {
		o.logger.Info("message outside business hours", "clinic_id", cc.ID, "reason", check.Reason)
		text := o.composer.Compose("", cc, mem, false, false)
		o.finishTurn(ctx, mem, in.Text, text, now)
		o.metrics.ObserveMessage("fora_do_horario", "ok")
		return Outbound{Text: text, Meta: Meta{Intent: "fora_do_horario", FirstOfDay: firstOfDay}}, nil
	}

	if name := memory.ExtractName(in.Text); name != "" {
		mem.SetName(name, now)
	}

	if guidance := o.emergencyGuidance(cc, in.Text); guidance != "" {
		text := o.composer.Compose(guidance, cc, mem, false, true)
		o.finishTurn(ctx, mem, in.Text, text, now)
		o.metrics.ObserveMessage("emergencia", "ok")
		return Outbound{Text: text, Meta: Meta{Intent: "emergencia", FirstOfDay: firstOfDay}}, nil
	}

	it, _ := o.classifier.Classify(ctx, in.Text)
	mem.LastIntent = string(it.Category)
	mem.AddTopic(string(it.Category))

	reply, flowStep := o.route(ctx, in, it, cc, mem, now)

	composed := o.composer.Compose(reply, cc, mem, firstOfDay, true)
	if strings.TrimSpace(composed) == "" {
		composed = "Desculpe, não entendi. Pode reformular, por favor?"
	}

	o.finishTurn(ctx, mem, in.Text, composed, now)
	o.metrics.ObserveMessage(string(it.Category), "ok")

	return Outbound{
		Text: composed,
		Meta: Meta{Intent: string(it.Category), FlowStep: flowStep, FirstOfDay: firstOfDay},
	}, nil
}

// route decides between the booking flow and general Q&A, and applies the
// flow outcome to the memory record.
func (o *Orchestrator) route(ctx context.Context, in Inbound, it intent.Intent, cc *clinic.Context, mem *memory.Memory, now time.Time) (reply, flowStep string) {
	if mem.Flow != nil && (mem.Flow.Terminal() || mem.Flow.Expired(now, o.flowTTL)) {
		mem.Flow = nil
	}
	patient := flow.Patient{Name: mem.UserName, Phone: mem.PhoneNumber}

	var outcome flow.Outcome
	switch {
	case mem.Flow != nil:
		from := string(mem.Flow.Step)
		outcome = o.flows.Advance(ctx, mem.Flow, in.Text, cc, patient, now)
		o.observeTransition(from, outcome)
	case intent.IsAppointmentIntent(it, in.Text):
		if it.Category == intent.CategoryCancel || it.Category == intent.CategoryReschedule {
			// There is no flow to change; existing bookings are handled by
			// the clinic staff directly.
			return o.contactInstruction(cc, it.Category), ""
		}
		outcome = o.flows.Start(cc, now)
		o.observeTransition(string(flow.StepInitial), outcome)
	default:
		return o.answerQuestion(ctx, cc, mem, in.Text), ""
	}

	if outcome.State != nil {
		flowStep = string(outcome.State.Step)
	}

	if outcome.Completed {
		o.recordBooking(ctx, in, cc, mem, outcome)
	}
	if outcome.Escalated {
		o.escalate(ctx, cc, mem.PhoneNumber, in.Text)
	}

	if outcome.State.Terminal() {
		mem.Flow = nil
	} else {
		mem.Flow = outcome.State
	}
	return outcome.Reply, flowStep
}

// answerQuestion is the general Q&A path: persona system prompt plus the
// recent history window. Model failures get a deterministic fallback.
func (o *Orchestrator) answerQuestion(ctx context.Context, cc *clinic.Context, mem *memory.Memory, text string) string {
	if o.llm == nil {
		return o.fallbackAnswer(cc)
	}

	messages := make([]llm.ChatMessage, 0, len(mem.RecentHistory)+1)
	history := mem.RecentHistory
	if len(history) > 6 {
		history = history[len(history)-6:]
	}
	for _, turn := range history {
		role := llm.ChatRoleUser
		if turn.Role == "assistant" {
			role = llm.ChatRoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.ChatRoleUser, Content: text})

	start := time.Now()
	resp, err := o.llm.Complete(ctx, llm.Request{
		System:      []string{BuildSystemPrompt(cc)},
		Messages:    messages,
		MaxTokens:   400,
		Temperature: 0.4,
	})
	o.metrics.ObserveLLMLatency(time.Since(start).Seconds())
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			o.logger.Warn("llm answer failed", "clinic_id", cc.ID, "error", err)
		}
		return o.fallbackAnswer(cc)
	}
	return resp.Text
}

func (o *Orchestrator) fallbackAnswer(cc *clinic.Context) string {
	msg := "Desculpe, não consegui processar sua mensagem agora. Pode tentar de novo em instantes?"
	if cc.Phone != "" {
		msg += fmt.Sprintf(" Se for urgente, ligue para %s.", cc.Phone)
	}
	return msg
}

func (o *Orchestrator) contactInstruction(cc *clinic.Context, category intent.Category) string {
	action := "cancelar"
	if category == intent.CategoryReschedule {
		action = "remarcar"
	}
	msg := fmt.Sprintf("Para %s um horário já agendado, fale diretamente com a nossa equipe", action)
	if cc.Phone != "" {
		return fmt.Sprintf("%s pelo telefone %s.", msg, cc.Phone)
	}
	return msg + "."
}

func (o *Orchestrator) emergencyGuidance(cc *clinic.Context, text string) string {
	if !emergencyPattern.MatchString(text) {
		return ""
	}
	if len(cc.Restrictions.EmergencyGuidance) > 0 {
		return strings.Join(cc.Restrictions.EmergencyGuidance, " ")
	}
	return "Se você está passando por uma emergência médica, ligue imediatamente para o SAMU (192) ou procure o pronto-socorro mais próximo."
}

func (o *Orchestrator) recordBooking(ctx context.Context, in Inbound, cc *clinic.Context, mem *memory.Memory, outcome flow.Outcome) {
	if o.bookings == nil || outcome.State == nil || outcome.State.SelectedService == nil || outcome.State.SelectedSlot == nil {
		return
	}
	entry := bookinglog.Entry{
		ClinicID:    cc.ID,
		PhoneNumber: mem.PhoneNumber,
		PatientName: mem.UserName,
		ServiceName: outcome.State.SelectedService.Name,
		SlotDate:    outcome.State.SelectedSlot.Date,
		SlotTime:    outcome.State.SelectedSlot.StartTime,
		BookingID:   outcome.BookingID,
		Status:      "confirmed",
	}
	if err := o.bookings.Record(ctx, entry); err != nil {
		o.logger.Error("booking audit failed", "clinic_id", cc.ID, "booking_id", outcome.BookingID, "error", err)
	}
}

func (o *Orchestrator) escalate(ctx context.Context, cc *clinic.Context, phone, lastMessage string) {
	if o.escalations == nil || !cc.Behavior.EscalatesToHuman {
		return
	}
	if err := o.escalations.NotifyEscalation(ctx, cc, phone, lastMessage); err != nil {
		o.logger.Error("escalation notification failed", "clinic_id", cc.ID, "error", err)
	}
}

func (o *Orchestrator) observeTransition(from string, outcome flow.Outcome) {
	to := "cleared"
	if outcome.State != nil {
		to = string(outcome.State.Step)
	}
	o.metrics.ObserveFlowTransition(from, to)
}

// finishTurn applies the per-turn bookkeeping and persists the record. A
// failed save is logged but never blocks the reply.
func (o *Orchestrator) finishTurn(ctx context.Context, mem *memory.Memory, inText, outText string, now time.Time) {
	if mem.FirstInteractionAt.IsZero() {
		mem.FirstInteractionAt = now
	}
	mem.InteractionCount++
	mem.LastInteractionAt = now
	mem.AppendTurn("user", inText, now)
	mem.AppendTurn("assistant", outText, now)

	if err := o.memories.Save(ctx, mem); err != nil {
		o.logger.Error("memory save failed", "phone", mem.PhoneNumber, "error", err)
	}
}
