// Package conversation orchestrates one inbound chat message end to end:
// memory, clinic context, business hours, intent, booking flow and response
// composition.
package conversation

import (
	"context"
	"time"
)

// Inbound is one chat event delivered by the transport.
type Inbound struct {
	PhoneNumber string    `json:"phoneNumber"`
	Text        string    `json:"text"`
	ClinicID    string    `json:"clinicId"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// Meta describes how the response was produced.
type Meta struct {
	Intent     string `json:"intent"`
	FlowStep   string `json:"flowStep,omitempty"`
	FirstOfDay bool   `json:"isFirstOfDay"`
}

// Outbound is the composed reply. Text is never empty.
type Outbound struct {
	Text string `json:"responseText"`
	Meta Meta   `json:"metadata"`
}

// Service processes inbound chat events.
type Service interface {
	Process(ctx context.Context, in Inbound) (Outbound, error)
}
