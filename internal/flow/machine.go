package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atendeja/clinic-ai-platform/internal/calendar"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

const (
	defaultSlotCount      = 5
	defaultWindowDays     = 14
	defaultBookingRetries = 2
)

// Patient identifies who the booking is for.
type Patient struct {
	Name  string
	Phone string
}

// Outcome is the result of one flow turn. A nil State means the flow is
// closed: either it never opened, it reached a terminal step, or it was
// abandoned to a human.
type Outcome struct {
	Reply     string
	State     *State
	Escalated bool
	Completed bool
	BookingID string
}

// Machine drives booking conversations. Transitions are pure except the two
// calendar calls: slot lookup when a service is chosen and booking creation
// on confirmation.
type Machine struct {
	calendar       calendar.Client
	slotCount      int
	windowDays     int
	bookingRetries int
	logger         *logging.Logger
}

// Option configures the machine.
type Option func(*Machine)

// WithSlotCount caps how many openings are offered per service.
func WithSlotCount(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.slotCount = n
		}
	}
}

// WithWindowDays sets how far ahead slot lookups search.
func WithWindowDays(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.windowDays = n
		}
	}
}

// WithBookingRetries sets how many extra booking attempts follow a provider
// failure before the flow gives up for this turn.
func WithBookingRetries(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.bookingRetries = n
		}
	}
}

// NewMachine creates the flow machine.
func NewMachine(cal calendar.Client, logger *logging.Logger, opts ...Option) *Machine {
	if cal == nil {
		panic("flow: calendar client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Machine{
		calendar:       cal,
		slotCount:      defaultSlotCount,
		windowDays:     defaultWindowDays,
		bookingRetries: defaultBookingRetries,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a new flow by enumerating the clinic's services. A clinic with
// no catalog gets a direct-contact instruction and no flow is opened.
func (m *Machine) Start(cc *clinic.Context, now time.Time) Outcome {
	services := dedupeServices(cc.Services)
	if len(services) == 0 {
		return Outcome{Reply: contactFallback(cc, "Para agendar, entre em contato diretamente com a clínica")}
	}

	return Outcome{
		Reply: renderServiceList(services),
		State: &State{
			Step:              StepServiceSelection,
			ClinicID:          cc.ID,
			CandidateServices: services,
			StartedAt:         now,
			UpdatedAt:         now,
		},
	}
}

// Advance processes one patient reply against the active flow.
func (m *Machine) Advance(ctx context.Context, st *State, text string, cc *clinic.Context, p Patient, now time.Time) Outcome {
	if st == nil || st.Terminal() {
		return m.Start(cc, now)
	}
	st.UpdatedAt = now

	switch st.Step {
	case StepServiceSelection:
		return m.advanceServiceSelection(ctx, st, text, cc, now)
	case StepDateTimeSelection:
		return m.advanceDateTimeSelection(st, text, cc, p)
	case StepConfirmation:
		return m.advanceConfirmation(ctx, st, text, cc, p)
	default:
		return m.Start(cc, now)
	}
}

func (m *Machine) advanceServiceSelection(ctx context.Context, st *State, text string, cc *clinic.Context, now time.Time) Outcome {
	svc, ok := matchService(text, st.CandidateServices)
	if !ok {
		return m.reprompt(st, cc, "Não encontrei esse atendimento na lista.\n\n"+renderServiceList(st.CandidateServices))
	}

	slots, err := m.calendar.AvailableSlots(ctx, st.ClinicID, svc.Name, calendar.Window{
		From: now.In(cc.Location()),
		Days: m.windowDays,
	})
	if err != nil {
		m.logger.Error("slot lookup failed", "clinic_id", st.ClinicID, "service", svc.Name, "error", err)
		// Stay where we are so the patient can simply try again.
		return Outcome{
			Reply: "Desculpe, não consegui consultar a agenda agora. Pode tentar novamente em instantes?",
			State: st,
		}
	}
	if len(slots) == 0 {
		return Outcome{
			Reply: contactFallback(cc, fmt.Sprintf("No momento não há horários disponíveis para %s", svc.Name)),
			State: &State{Step: StepCancelled, ClinicID: st.ClinicID, StartedAt: st.StartedAt, UpdatedAt: st.UpdatedAt},
		}
	}
	if len(slots) > m.slotCount {
		slots = slots[:m.slotCount]
	}

	st.SelectedService = &svc
	st.CandidateSlots = slots
	st.AttemptCount = 0
	st.Step = StepDateTimeSelection
	return Outcome{Reply: renderSlotList(svc.Name, slots, cc.Location()), State: st}
}

func (m *Machine) advanceDateTimeSelection(st *State, text string, cc *clinic.Context, p Patient) Outcome {
	slot, ok := matchSlot(text, st.CandidateSlots)
	if !ok {
		return m.reprompt(st, cc, "Não reconheci esse horário.\n\n"+renderSlotList(st.SelectedService.Name, st.CandidateSlots, cc.Location()))
	}

	st.SelectedSlot = &slot
	st.AttemptCount = 0
	st.Step = StepConfirmation
	return Outcome{Reply: renderConfirmation(*st.SelectedService, slot, cc.Location(), p.Name), State: st}
}

func (m *Machine) advanceConfirmation(ctx context.Context, st *State, text string, cc *clinic.Context, p Patient) Outcome {
	switch {
	case isAffirmative(text):
		return m.book(ctx, st, cc, p)
	case isNegative(text):
		return Outcome{
			Reply: "Sem problemas, agendamento cancelado. Se mudar de ideia é só me chamar.",
			State: &State{Step: StepCancelled, ClinicID: st.ClinicID, StartedAt: st.StartedAt, UpdatedAt: st.UpdatedAt},
		}
	default:
		return m.reprompt(st, cc, "Desculpe, não entendi. Responda \"sim\" para confirmar o agendamento ou \"não\" para cancelar.")
	}
}

// book is the second I/O point. Provider failures are retried a bounded
// number of times; if all attempts fail the flow stays in confirmation so a
// later "sim" can try again.
func (m *Machine) book(ctx context.Context, st *State, cc *clinic.Context, p Patient) Outcome {
	req := calendar.BookingRequest{
		ClinicID:     st.ClinicID,
		ServiceName:  st.SelectedService.Name,
		Slot:         *st.SelectedSlot,
		PatientName:  p.Name,
		PatientPhone: p.Phone,
	}

	var (
		res *calendar.BookingResult
		err error
	)
	for attempt := 0; attempt <= m.bookingRetries; attempt++ {
		res, err = m.calendar.Book(ctx, req)
		if err == nil {
			break
		}
		m.logger.Warn("booking attempt failed", "clinic_id", st.ClinicID, "attempt", attempt+1, "error", err)
	}
	if err != nil {
		return Outcome{
			Reply: contactFallback(cc, "Desculpe, não consegui confirmar seu agendamento agora. Você pode tentar novamente em instantes"),
			State: st,
		}
	}

	st.Step = StepCompleted
	reply := fmt.Sprintf("Prontinho! Seu agendamento de %s está confirmado para %s às %s.",
		st.SelectedService.Name, slotDateLabel(*st.SelectedSlot, cc.Location()), st.SelectedSlot.StartTime)
	if p.Name != "" {
		reply += fmt.Sprintf(" Até lá, %s!", firstName(p.Name))
	}
	return Outcome{Reply: reply, State: st, Completed: true, BookingID: res.BookingID}
}

// reprompt re-asks the current question, escalating to a human once the
// clinic's attempt budget is spent.
func (m *Machine) reprompt(st *State, cc *clinic.Context, message string) Outcome {
	st.AttemptCount++
	if st.AttemptCount >= cc.Behavior.MaxAttempts {
		return Outcome{
			Reply:     contactFallback(cc, "Estou com dificuldade para entender sua escolha, então vou pedir ajuda da nossa equipe"),
			Escalated: true,
		}
	}
	return Outcome{Reply: message, State: st}
}

// contactFallback appends the clinic phone to a user-facing message when the
// bot cannot carry the booking forward on its own.
func contactFallback(cc *clinic.Context, message string) string {
	if cc.Phone != "" {
		return fmt.Sprintf("%s. Se preferir, ligue para %s.", message, cc.Phone)
	}
	return message + "."
}

func dedupeServices(services []clinic.Service) []clinic.Service {
	seen := make(map[string]struct{}, len(services))
	out := make([]clinic.Service, 0, len(services))
	for _, svc := range services {
		key := fold(svc.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, svc)
	}
	return out
}

func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full
	}
	return parts[0]
}
