package provider

import (
	"context"

	"github.com/kursadbilgin/message-courier/internal/domain"
)

// Provider is the outbound delivery capability contract. One implementation
// exists per named integration and carries a fixed medium tag. Instances are
// bound to a single credential bag at construction and share no mutable
// state.
type Provider interface {
	// Medium is the fixed channel tag this provider delivers on.
	Medium() domain.Medium

	// ValidateCredentials is a pure schema check over a raw credential
	// options bag. It never touches the transport client.
	ValidateCredentials(options map[string]string) error

	// ValidateSendOptions checks a raw send-options bag against the
	// provider's medium-specific schema.
	ValidateSendOptions(options map[string]string) error

	// Send delivers body using validated send options. Transport failures
	// come back as *DeliveryError.
	Send(ctx context.Context, body string, options map[string]string) error

	// ConversationKey derives a deterministic grouping key from send
	// options, used to correlate a thread of messages.
	ConversationKey(options map[string]string) (string, error)
}

// Constructor builds a configured provider instance from a credential
// options bag. It fails fast when credentials are malformed or the
// underlying transport client cannot be set up. A nil bag is accepted by
// providers that require no secrets.
type Constructor func(credentials map[string]string) (Provider, error)
