// Package clinic resolves raw clinic configuration documents into the
// normalized context consumed by prompts and the booking flow.
package clinic

import (
	"strings"
	"time"
)

// Service is a bookable item from the clinic catalog (consultation or exam).
type Service struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "consulta" or "exame"
	DurationMin int      `json:"duration_min"`
	Price       string   `json:"price,omitempty"`
	Insurance   []string `json:"insurance,omitempty"`
}

// Professional is a clinician listed in the clinic configuration.
type Professional struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	License   string `json:"license,omitempty"`
}

// InsurancePlan is an accepted insurance with its co-pay, if any.
type InsurancePlan struct {
	Name  string `json:"name"`
	CoPay string `json:"co_pay,omitempty"`
}

// DayHours holds the opening window for one weekday in "HH:MM" format.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Persona configures the assistant identity for a clinic.
type Persona struct {
	Name              string `json:"name"`
	Personality       string `json:"personality,omitempty"`
	Tone              string `json:"tone,omitempty"`
	Formality         string `json:"formality,omitempty"`
	InitialGreeting   string `json:"initial_greeting,omitempty"`
	Farewell          string `json:"farewell,omitempty"`
	OutOfHoursMessage string `json:"out_of_hours_message,omitempty"`
}

// Behavior holds the behavioral flags for the assistant.
type Behavior struct {
	Proactive        bool `json:"proactive"`
	SuggestsServices bool `json:"suggests_services"`
	EscalatesToHuman bool `json:"escalates_to_human"`
	MaxAttempts      int  `json:"max_attempts"`
}

// Restrictions lists what the assistant must never do.
type Restrictions struct {
	CannotDiagnose    bool     `json:"cannot_diagnose"`
	CannotPrescribe   bool     `json:"cannot_prescribe"`
	EmergencyGuidance []string `json:"emergency_guidance,omitempty"`
}

// Context is the flattened, fully-defaulted view of a clinic configuration.
// It is an immutable snapshot: the orchestrator loads a fresh one per message
// and never mutates it.
type Context struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Address          string              `json:"address,omitempty"`
	Phone            string              `json:"phone,omitempty"`
	Services         []Service           `json:"services,omitempty"`
	Professionals    []Professional      `json:"professionals,omitempty"`
	Specialties      []string            `json:"specialties,omitempty"`
	WorkingHours     map[string]DayHours `json:"working_hours,omitempty"` // key: "segunda".."domingo"
	PaymentMethods   []string            `json:"payment_methods,omitempty"`
	Insurance        []InsurancePlan     `json:"insurance,omitempty"`
	DepartmentEmails map[string]string   `json:"department_emails,omitempty"`
	BookingPolicies  []string            `json:"booking_policies,omitempty"`
	ServicePolicies  []string            `json:"service_policies,omitempty"`
	Partnerships     []string            `json:"partnerships,omitempty"`
	Timezone         string              `json:"timezone,omitempty"`
	Agent            Persona             `json:"agent"`
	Behavior         Behavior            `json:"behavior"`
	Restrictions     Restrictions        `json:"restrictions"`
}

// Location returns the clinic's *time.Location, falling back to UTC when the
// timezone is missing or invalid.
func (c *Context) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SchedulingEmail returns the address escalations should go to: the
// "agendamento" department when configured, otherwise any department address.
func (c *Context) SchedulingEmail() string {
	if c == nil || len(c.DepartmentEmails) == 0 {
		return ""
	}
	for _, key := range []string{"agendamento", "atendimento", "contato"} {
		if email := strings.TrimSpace(c.DepartmentEmails[key]); email != "" {
			return email
		}
	}
	for _, email := range c.DepartmentEmails {
		if email = strings.TrimSpace(email); email != "" {
			return email
		}
	}
	return ""
}

// OutOfHoursMessage returns the persona out-of-hours template, or a neutral
// default when the clinic did not configure one.
func (c *Context) OutOfHoursMessage() string {
	if c != nil && strings.TrimSpace(c.Agent.OutOfHoursMessage) != "" {
		return c.Agent.OutOfHoursMessage
	}
	return "No momento estamos fora do nosso horário de atendimento. Deixe sua mensagem e retornaremos assim que possível."
}
