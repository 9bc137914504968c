package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-courier/internal/provider"
)

type ProviderRegistry interface {
	RegisteredProviders() []string
	SaveCredentials(ctx context.Context, name, clientID string, options map[string]string) (*provider.SaveCredentialsResult, error)
	ListCredentials(ctx context.Context, name string) ([]provider.CredentialView, error)
}

type ProviderHandler struct {
	registry ProviderRegistry
}

func NewProviderHandler(registry ProviderRegistry) (*ProviderHandler, error) {
	if registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	return &ProviderHandler{registry: registry}, nil
}

func RegisterProviderRoutes(router fiber.Router, registry ProviderRegistry) error {
	h, err := NewProviderHandler(registry)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/providers", h.ListProviders)
	v1.Put("/providers/:provider/credentials/:clientId", h.SaveCredentials)
	v1.Get("/credentials", h.ListCredentials)

	return nil
}

type saveCredentialsRequest struct {
	Options map[string]string `json:"options"`
}

type saveCredentialsResponse struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

type credentialViewResponse struct {
	ID        string            `json:"id"`
	Provider  string            `json:"provider"`
	Key       string            `json:"key"`
	Options   map[string]string `json:"options"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (h *ProviderHandler) ListProviders(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"providers": h.registry.RegisteredProviders(),
	})
}

func (h *ProviderHandler) SaveCredentials(c *fiber.Ctx) error {
	providerName := strings.TrimSpace(c.Params("provider"))
	clientID := strings.TrimSpace(c.Params("clientId"))

	var req saveCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.registry.SaveCredentials(c.Context(), providerName, clientID, req.Options)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusCreated
	if result.Updated {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(saveCredentialsResponse{
		ID:      result.ID,
		Updated: result.Updated,
	})
}

func (h *ProviderHandler) ListCredentials(c *fiber.Ctx) error {
	providerName := strings.TrimSpace(c.Query("provider"))

	views, err := h.registry.ListCredentials(c.Context(), providerName)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]credentialViewResponse, 0, len(views))
	for _, view := range views {
		responses = append(responses, credentialViewResponse{
			ID:        view.ID,
			Provider:  view.Provider,
			Key:       view.Key,
			Options:   view.Options,
			CreatedAt: view.CreatedAt,
			UpdatedAt: view.UpdatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": responses,
	})
}
