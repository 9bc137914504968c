package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-courier/internal/domain"
	"github.com/kursadbilgin/message-courier/internal/observability"
	"github.com/kursadbilgin/message-courier/internal/provider"
	"github.com/kursadbilgin/message-courier/internal/repository"
	"github.com/mailgun/raymond/v2"
	"go.uber.org/zap"
)

// ProviderRegistry is the slice of the registry the message flow needs.
type ProviderRegistry interface {
	GetProvider(ctx context.Context, name, clientID string) (provider.Provider, error)
}

// Enqueuer hands freshly created message ids to the dispatch queue.
type Enqueuer interface {
	Enqueue(messageID int64) error
}

// CreateMessageInput carries a validated ingress request. Exactly one of
// Body and TemplateID must be set.
type CreateMessageInput struct {
	Provider          string
	CredentialsKey    string
	CorrelationID     string
	CustomerKey       string
	Body              string
	TemplateID        string
	TemplateVariables map[string]string
	SendOptions       map[string]string
}

type MessageService struct {
	messages    repository.MessageRepository
	credentials repository.CredentialRepository
	templates   repository.TemplateRepository
	registry    ProviderRegistry
	queue       Enqueuer
	logger      *zap.Logger
}

func NewMessageService(
	messages repository.MessageRepository,
	credentials repository.CredentialRepository,
	templates repository.TemplateRepository,
	registry ProviderRegistry,
	queue Enqueuer,
	logger *zap.Logger,
) (*MessageService, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MessageService{
		messages:    messages,
		credentials: credentials,
		templates:   templates,
		registry:    registry,
		queue:       queue,
		logger:      logger,
	}, nil
}

// Create validates the request against the resolved provider, renders the
// body, persists the message as pending, and enqueues it for dispatch.
func (s *MessageService) Create(ctx context.Context, input CreateMessageInput) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(input.Provider) == "" {
		return nil, fmt.Errorf("%w: provider is required", domain.ErrValidation)
	}
	if (input.Body == "") == (input.TemplateID == "") {
		return nil, fmt.Errorf("%w: exactly one of body and templateId is required", domain.ErrValidation)
	}

	cred, err := s.resolveCredential(ctx, input.Provider, input.CredentialsKey)
	if err != nil {
		return nil, err
	}

	prov, err := s.registry.GetProvider(ctx, input.Provider, cred.Key)
	if err != nil {
		return nil, err
	}

	if err := prov.ValidateSendOptions(input.SendOptions); err != nil {
		return nil, err
	}

	body := input.Body
	if input.TemplateID != "" {
		body, err = s.renderTemplate(ctx, input.TemplateID, input.TemplateVariables)
		if err != nil {
			return nil, err
		}
	}

	conversationKey, err := prov.ConversationKey(input.SendOptions)
	if err != nil {
		return nil, err
	}

	correlationID := strings.TrimSpace(input.CorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	msg := &domain.Message{
		CorrelationID:  correlationID,
		Provider:       input.Provider,
		CredentialsID:  cred.ID,
		Medium:         prov.Medium(),
		Direction:      domain.DirectionOutbound,
		Body:           body,
		SendOptions:    input.SendOptions,
		ConversationID: &conversationKey,
	}
	if key := strings.TrimSpace(input.CustomerKey); key != "" {
		msg.CustomerKey = &key
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	logger := observability.ContextLogger(s.logger, ctx)
	logger.Info("message created",
		zap.Int64("messageId", msg.ID),
		zap.String("correlationId", msg.CorrelationID),
		zap.String("medium", msg.Medium.String()),
	)

	if err := s.queue.Enqueue(msg.ID); err != nil {
		// The row is persisted; recovery picks it up on the next start.
		logger.Error("failed to enqueue message",
			zap.Int64("messageId", msg.ID),
			zap.Error(err),
		)
		return nil, err
	}

	return msg, nil
}

func (s *MessageService) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	return s.messages.GetByID(ctx, id)
}

// ListPending returns every undelivered message in creation-time order.
func (s *MessageService) ListPending(ctx context.Context) ([]domain.Message, error) {
	return s.messages.FindPendingOrderedByCreation(ctx)
}

func (s *MessageService) resolveCredential(ctx context.Context, providerName, credentialsKey string) (*domain.Credential, error) {
	var (
		cred *domain.Credential
		err  error
	)

	if credentialsKey != "" {
		cred, err = s.credentials.FindByKey(ctx, providerName, credentialsKey)
	} else {
		cred, err = s.credentials.FindDefault(ctx, providerName)
	}

	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: provider %s key %q", domain.ErrCredentialsNotFound, providerName, credentialsKey)
	}
	if err != nil {
		return nil, err
	}

	return cred, nil
}

func (s *MessageService) renderTemplate(ctx context.Context, templateID string, variables map[string]string) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("%w: template rendering is not configured", domain.ErrValidation)
	}

	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: template %s", domain.ErrNotFound, templateID)
		}
		return "", err
	}

	vars := make(map[string]any, len(variables))
	for key, value := range variables {
		vars[key] = value
	}

	rendered, err := raymond.Render(tpl.Content, vars)
	if err != nil {
		return "", fmt.Errorf("%w: template render failed: %v", domain.ErrValidation, err)
	}

	return rendered, nil
}
