package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeja/clinic-ai-platform/internal/calendar"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
)

type fakeCalendar struct {
	slots    []calendar.Slot
	slotsErr error

	bookErrs []error // consumed per call, nil means success
	bookReqs []calendar.BookingRequest
}

func (f *fakeCalendar) AvailableSlots(ctx context.Context, clinicID, serviceName string, w calendar.Window) ([]calendar.Slot, error) {
	if f.slotsErr != nil {
		return nil, f.slotsErr
	}
	return f.slots, nil
}

func (f *fakeCalendar) Book(ctx context.Context, req calendar.BookingRequest) (*calendar.BookingResult, error) {
	f.bookReqs = append(f.bookReqs, req)
	if len(f.bookErrs) > 0 {
		err := f.bookErrs[0]
		f.bookErrs = f.bookErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &calendar.BookingResult{BookingID: "bk_42", Status: "confirmed"}, nil
}

func testClinic() *clinic.Context {
	return &clinic.Context{
		ID:    "cardio-prime",
		Phone: "(11) 3456-7890",
		Services: []clinic.Service{
			{Name: "Consulta Cardiológica", Type: "consulta", DurationMin: 30},
			{Name: "Eletrocardiograma", Type: "exame", DurationMin: 20},
			{Name: "consulta cardiológica", Type: "consulta", DurationMin: 30}, // duplicate
		},
		Behavior: clinic.Behavior{MaxAttempts: 3},
		Timezone: "America/Sao_Paulo",
	}
}

func testSlots() []calendar.Slot {
	return []calendar.Slot{
		{Date: "2026-09-02", StartTime: "09:00", EndTime: "09:30", DurationMin: 30},
		{Date: "2026-09-02", StartTime: "14:30", EndTime: "15:00", DurationMin: 30},
		{Date: "2026-09-03", StartTime: "10:00", EndTime: "10:30", DurationMin: 30},
	}
}

func TestStartPresentsDedupedServiceList(t *testing.T) {
	m := NewMachine(&fakeCalendar{}, nil)
	out := m.Start(testClinic(), time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepServiceSelection, out.State.Step)
	assert.Len(t, out.State.CandidateServices, 2)
	assert.Contains(t, out.Reply, "1. Consulta Cardiológica")
	assert.Contains(t, out.Reply, "2. Eletrocardiograma")
}

func TestStartWithoutServicesDoesNotOpenFlow(t *testing.T) {
	cc := testClinic()
	cc.Services = nil

	m := NewMachine(&fakeCalendar{}, nil)
	out := m.Start(cc, time.Now())

	assert.Nil(t, out.State)
	assert.Contains(t, out.Reply, "entre em contato")
	assert.Contains(t, out.Reply, cc.Phone)
}

func TestFullBookingRoundTrip(t *testing.T) {
	cal := &fakeCalendar{slots: testSlots()}
	m := NewMachine(cal, nil)
	cc := testClinic()
	patient := Patient{Name: "Maria Clara", Phone: "+5511999990000"}
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	out := m.Start(cc, now)
	require.Equal(t, StepServiceSelection, out.State.Step)

	out = m.Advance(context.Background(), out.State, "1", cc, patient, now)
	require.Equal(t, StepDateTimeSelection, out.State.Step)
	assert.Equal(t, "Consulta Cardiológica", out.State.SelectedService.Name)
	assert.Contains(t, out.Reply, "02/09 (quarta) às 09:00")

	out = m.Advance(context.Background(), out.State, "2", cc, patient, now)
	require.Equal(t, StepConfirmation, out.State.Step)
	assert.Equal(t, "14:30", out.State.SelectedSlot.StartTime)
	assert.Contains(t, out.Reply, "Paciente: Maria Clara")

	out = m.Advance(context.Background(), out.State, "sim", cc, patient, now)
	assert.Equal(t, StepCompleted, out.State.Step)
	assert.True(t, out.Completed)
	assert.Equal(t, "bk_42", out.BookingID)
	assert.Contains(t, out.Reply, "confirmado")

	require.Len(t, cal.bookReqs, 1)
	assert.Equal(t, "Maria Clara", cal.bookReqs[0].PatientName)
	assert.Equal(t, "+5511999990000", cal.bookReqs[0].PatientPhone)
}

func TestServiceSelectionByFuzzyName(t *testing.T) {
	m := NewMachine(&fakeCalendar{slots: testSlots()}, nil)
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "quero o eletrocardiograma", cc, Patient{}, time.Now())

	require.Equal(t, StepDateTimeSelection, out.State.Step)
	assert.Equal(t, "Eletrocardiograma", out.State.SelectedService.Name)
}

func TestInvalidSelectionRepromptsWithoutAdvancing(t *testing.T) {
	m := NewMachine(&fakeCalendar{slots: testSlots()}, nil)
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "raio-x", cc, Patient{}, time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepServiceSelection, out.State.Step)
	assert.Equal(t, 1, out.State.AttemptCount)
	assert.Contains(t, out.Reply, "Não encontrei")
}

func TestEscalatesAfterAttemptBudget(t *testing.T) {
	m := NewMachine(&fakeCalendar{slots: testSlots()}, nil)
	cc := testClinic()

	out := m.Start(cc, time.Now())
	st := out.State
	for i := 0; i < 2; i++ {
		out = m.Advance(context.Background(), st, "raio-x", cc, Patient{}, time.Now())
		require.NotNil(t, out.State, "attempt %d should reprompt", i+1)
		st = out.State
	}

	out = m.Advance(context.Background(), st, "raio-x", cc, Patient{}, time.Now())
	assert.Nil(t, out.State)
	assert.True(t, out.Escalated)
	assert.Contains(t, out.Reply, cc.Phone)
}

func TestSlotLookupFailureKeepsState(t *testing.T) {
	m := NewMachine(&fakeCalendar{slotsErr: errors.New("backend down")}, nil)
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepServiceSelection, out.State.Step)
	assert.Contains(t, out.Reply, "tentar novamente")
}

func TestNoSlotsCancelsWithContactFallback(t *testing.T) {
	m := NewMachine(&fakeCalendar{}, nil)
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepCancelled, out.State.Step)
	assert.True(t, out.State.Terminal())
	assert.Contains(t, out.Reply, "não há horários disponíveis")
	assert.Contains(t, out.Reply, cc.Phone)
}

func TestBookingRetriesThenSucceeds(t *testing.T) {
	cal := &fakeCalendar{
		slots:    testSlots(),
		bookErrs: []error{errors.New("timeout"), nil},
	}
	m := NewMachine(cal, nil, WithBookingRetries(2))
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())
	out = m.Advance(context.Background(), out.State, "confirmo", cc, Patient{}, time.Now())

	assert.Equal(t, StepCompleted, out.State.Step)
	assert.True(t, out.Completed)
	assert.Len(t, cal.bookReqs, 2)
}

func TestBookingFailureStaysInConfirmation(t *testing.T) {
	cal := &fakeCalendar{
		slots:    testSlots(),
		bookErrs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	m := NewMachine(cal, nil, WithBookingRetries(2))
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())
	out = m.Advance(context.Background(), out.State, "sim", cc, Patient{}, time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepConfirmation, out.State.Step)
	assert.False(t, out.Completed)
	assert.Contains(t, out.Reply, cc.Phone)
	assert.Len(t, cal.bookReqs, 3)
}

func TestNegativeConfirmationCancels(t *testing.T) {
	m := NewMachine(&fakeCalendar{slots: testSlots()}, nil)
	cc := testClinic()

	out := m.Start(cc, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())
	out = m.Advance(context.Background(), out.State, "1", cc, Patient{}, time.Now())
	out = m.Advance(context.Background(), out.State, "não", cc, Patient{}, time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepCancelled, out.State.Step)
	assert.Contains(t, out.Reply, "cancelado")
}

func TestAdvanceOnTerminalStateStartsFresh(t *testing.T) {
	m := NewMachine(&fakeCalendar{slots: testSlots()}, nil)
	cc := testClinic()

	stale := &State{Step: StepCompleted, ClinicID: cc.ID}
	out := m.Advance(context.Background(), stale, "quero marcar", cc, Patient{}, time.Now())

	require.NotNil(t, out.State)
	assert.Equal(t, StepServiceSelection, out.State.Step)
	assert.Empty(t, out.State.SelectedService)
}

func TestSlotMatchByDateAndTime(t *testing.T) {
	slots := testSlots()

	slot, ok := matchSlot("pode ser dia 03/09", slots)
	require.True(t, ok)
	assert.Equal(t, "2026-09-03", slot.Date)

	slot, ok = matchSlot("prefiro às 14:30", slots)
	require.True(t, ok)
	assert.Equal(t, "14:30", slot.StartTime)

	_, ok = matchSlot("semana que vem", slots)
	assert.False(t, ok)
}

func TestStateExpired(t *testing.T) {
	now := time.Now()
	st := &State{Step: StepServiceSelection, UpdatedAt: now.Add(-50 * time.Minute)}

	assert.True(t, st.Expired(now, 45*time.Minute))
	assert.False(t, st.Expired(now, time.Hour))
	assert.False(t, st.Expired(now, 0))

	var nilState *State
	assert.True(t, nilState.Expired(now, time.Minute))
}
