package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
	"github.com/kursadbilgin/message-courier/internal/observability"
	"github.com/kursadbilgin/message-courier/internal/service"
)

type MessageService interface {
	Create(ctx context.Context, input service.CreateMessageInput) (*domain.Message, error)
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	ListPending(ctx context.Context) ([]domain.Message, error)
}

type MessageHandler struct {
	service MessageService
}

func NewMessageHandler(service MessageService) (*MessageHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("message service is required")
	}
	return &MessageHandler{service: service}, nil
}

func RegisterMessageRoutes(router fiber.Router, service MessageService) error {
	h, err := NewMessageHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages", h.CreateMessage)
	v1.Get("/messages/:id", h.GetMessage)
	v1.Get("/messages", h.ListMessages)

	return nil
}

type createMessageRequest struct {
	Provider          string            `json:"provider"`
	CredentialsKey    string            `json:"credentialsKey,omitempty"`
	CustomerKey       string            `json:"customerKey,omitempty"`
	Body              string            `json:"body,omitempty"`
	TemplateID        string            `json:"templateId,omitempty"`
	TemplateVariables map[string]string `json:"templateVariables,omitempty"`
	SendOptions       map[string]string `json:"sendOptions"`
}

type messageResponse struct {
	ID             int64             `json:"id"`
	CorrelationID  string            `json:"correlationId"`
	Provider       string            `json:"provider"`
	CredentialsID  string            `json:"credentialsId"`
	Medium         string            `json:"medium"`
	Direction      string            `json:"direction"`
	Body           string            `json:"body"`
	SendOptions    map[string]string `json:"sendOptions"`
	SentAt         *time.Time        `json:"sentAt,omitempty"`
	Error          *string           `json:"error,omitempty"`
	Retries        int               `json:"retries"`
	CustomerKey    *string           `json:"customerKey,omitempty"`
	ConversationID *string           `json:"conversationId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type listMessagesResponse struct {
	Data []messageResponse `json:"data"`
}

func (h *MessageHandler) CreateMessage(c *fiber.Ctx) error {
	var req createMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	correlationID := requestCorrelationID(c)
	ctx := observability.WithCorrelationID(c.Context(), correlationID)

	created, err := h.service.Create(ctx, service.CreateMessageInput{
		Provider:          req.Provider,
		CredentialsKey:    req.CredentialsKey,
		CorrelationID:     correlationID,
		CustomerKey:       req.CustomerKey,
		Body:              req.Body,
		TemplateID:        req.TemplateID,
		TemplateVariables: req.TemplateVariables,
		SendOptions:       req.SendOptions,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toMessageResponse(created))
}

func (h *MessageHandler) GetMessage(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}

	msg, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(msg))
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	// Only the pending view is exposed for now.
	messages, err := h.service.ListPending(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data: toMessageResponses(messages),
	})
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	responses := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		m := msg
		responses = append(responses, toMessageResponse(&m))
	}
	return responses
}

func toMessageResponse(m *domain.Message) messageResponse {
	if m == nil {
		return messageResponse{}
	}

	return messageResponse{
		ID:             m.ID,
		CorrelationID:  m.CorrelationID,
		Provider:       m.Provider,
		CredentialsID:  m.CredentialsID,
		Medium:         m.Medium.String(),
		Direction:      m.Direction.String(),
		Body:           m.Body,
		SendOptions:    m.SendOptions,
		SentAt:         m.SentAt,
		Error:          m.Error,
		Retries:        m.Retries,
		CustomerKey:    m.CustomerKey,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCredentialsNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotRegistered):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQueueAborted):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
