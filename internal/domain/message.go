package domain

import (
	"fmt"
	"strings"
	"time"
)

// Medium represents the communication channel a message uses.
type Medium string

const (
	MediumSMS   Medium = "sms"
	MediumEmail Medium = "email"
	MediumPush  Medium = "push"
)

func (m Medium) String() string { return string(m) }

func (m Medium) IsValid() bool {
	switch m {
	case MediumSMS, MediumEmail, MediumPush:
		return true
	}
	return false
}

func ParseMediumFromString(s string) (Medium, error) {
	m := Medium(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid medium %q", ErrValidation, s)
	}
	return m, nil
}

// Direction represents the message flow relative to this system.
// Only outbound messages are dispatched by the queue.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

func (d Direction) String() string { return string(d) }

func (d Direction) IsValid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound:
		return true
	}
	return false
}

// Message is the core domain entity: one unit of outbound communication
// bound to a provider credential set.
type Message struct {
	ID             int64
	CorrelationID  string
	Provider       string
	CredentialsID  string
	Medium         Medium
	Direction      Direction
	Body           string
	SendOptions    map[string]string
	SentAt         *time.Time
	Error          *string
	Retries        int
	CustomerKey    *string
	ConversationID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Pending reports whether the message still awaits delivery.
func (m *Message) Pending() bool {
	return m != nil && m.SentAt == nil
}

func (m *Message) Validate() error {
	if m.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrValidation)
	}
	if m.CredentialsID == "" {
		return fmt.Errorf("%w: credentials id is required", ErrValidation)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if m.CorrelationID == "" {
		return fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	if !m.Medium.IsValid() {
		return fmt.Errorf("%w: invalid medium %q", ErrValidation, m.Medium)
	}
	if !m.Direction.IsValid() {
		return fmt.Errorf("%w: invalid direction %q", ErrValidation, m.Direction)
	}
	if m.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrValidation)
	}
	return nil
}
