// Package memory holds the per-phone-number conversation record: profile,
// counters, recent history and the active booking flow.
package memory

import (
	"time"

	"github.com/atendeja/clinic-ai-platform/internal/flow"
)

// maxHistoryTurns bounds RecentHistory so records stay small in Redis.
const maxHistoryTurns = 12

// Turn is one message in the rolling conversation window.
type Turn struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Memory is the persisted record for one phone number. Created on first
// contact and mutated on every turn; never hard-deleted.
type Memory struct {
	PhoneNumber        string      `json:"phoneNumber"`
	UserName           string      `json:"userName,omitempty"`
	NameExtractedAt    *time.Time  `json:"nameExtractedAt,omitempty"`
	FirstInteractionAt time.Time   `json:"firstInteractionAt"`
	LastInteractionAt  time.Time   `json:"lastInteractionAt"`
	InteractionCount   int         `json:"interactionCount"`
	LastIntent         string      `json:"lastIntent,omitempty"`
	Flow               *flow.State `json:"flowState,omitempty"`
	RecentHistory      []Turn      `json:"recentHistory,omitempty"`
	Topics             []string    `json:"topics,omitempty"`
}

// New creates an empty record for a phone number.
func New(phoneNumber string) *Memory {
	return &Memory{PhoneNumber: phoneNumber}
}

// AppendTurn pushes a turn into the bounded history window, evicting the
// oldest entries.
func (m *Memory) AppendTurn(role, text string, at time.Time) {
	m.RecentHistory = append(m.RecentHistory, Turn{Role: role, Text: text, At: at})
	if len(m.RecentHistory) > maxHistoryTurns {
		m.RecentHistory = m.RecentHistory[len(m.RecentHistory)-maxHistoryTurns:]
	}
}

// AddTopic records a discussed topic with set semantics.
func (m *Memory) AddTopic(topic string) {
	if topic == "" {
		return
	}
	for _, t := range m.Topics {
		if t == topic {
			return
		}
	}
	m.Topics = append(m.Topics, topic)
}

// SetName records an extracted name once. Later extractions refresh the
// timestamp only when the name actually changed.
func (m *Memory) SetName(name string, at time.Time) {
	if name == "" || name == m.UserName {
		return
	}
	m.UserName = name
	m.NameExtractedAt = &at
}
