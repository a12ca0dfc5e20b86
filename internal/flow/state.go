// Package flow implements the multi-turn appointment booking state machine.
package flow

import (
	"time"

	"github.com/atendeja/clinic-ai-platform/internal/calendar"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
)

// Step identifies where a booking conversation currently is.
type Step string

const (
	StepInitial           Step = "initial"
	StepServiceSelection  Step = "service_selection"
	StepDateTimeSelection Step = "date_time_selection"
	StepConfirmation      Step = "confirmation"
	StepCompleted         Step = "completed"
	StepCancelled         Step = "cancelled"
)

// State is the persisted snapshot of one booking flow. It is owned 1:1 by a
// conversation memory record and serialized with it.
type State struct {
	Step              Step             `json:"step"`
	ClinicID          string           `json:"clinicId"`
	CandidateServices []clinic.Service `json:"candidateServices,omitempty"`
	SelectedService   *clinic.Service  `json:"selectedService,omitempty"`
	CandidateSlots    []calendar.Slot  `json:"candidateSlots,omitempty"`
	SelectedSlot      *calendar.Slot   `json:"selectedSlot,omitempty"`
	AttemptCount      int              `json:"attemptCount"`
	StartedAt         time.Time        `json:"startedAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Terminal reports whether the flow reached an end state. Terminal flows are
// cleared by the caller so a later appointment intent starts fresh.
func (s *State) Terminal() bool {
	if s == nil {
		return true
	}
	return s.Step == StepCompleted || s.Step == StepCancelled
}

// Expired reports whether the flow has been idle longer than ttl. Expired
// flows are treated as abandoned and never resumed.
func (s *State) Expired(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return true
	}
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}
