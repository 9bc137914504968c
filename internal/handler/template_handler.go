package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
	"github.com/kursadbilgin/message-courier/internal/repository"
)

type TemplateHandler struct {
	templates repository.TemplateRepository
}

func NewTemplateHandler(templates repository.TemplateRepository) (*TemplateHandler, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	return &TemplateHandler{templates: templates}, nil
}

func RegisterTemplateRoutes(router fiber.Router, templates repository.TemplateRepository) error {
	h, err := NewTemplateHandler(templates)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/templates", h.CreateTemplate)
	v1.Get("/templates", h.ListTemplates)
	v1.Get("/templates/:id", h.GetTemplate)
	v1.Put("/templates/:id", h.UpdateTemplate)
	v1.Delete("/templates/:id", h.DeleteTemplate)

	return nil
}

type templateRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Engine  string `json:"engine,omitempty"`
}

type templateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tpl := &domain.Template{
		Name:    req.Name,
		Content: req.Content,
		Engine:  req.Engine,
	}
	if err := tpl.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.templates.Create(c.Context(), tpl); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTemplateResponse(tpl))
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.templates.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]templateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, toTemplateResponse(&templates[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": responses,
	})
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	tpl, err := h.templates.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(tpl))
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tpl := &domain.Template{
		ID:      id,
		Name:    req.Name,
		Content: req.Content,
		Engine:  req.Engine,
	}
	if tpl.Engine == "" {
		tpl.Engine = domain.DefaultTemplateEngine
	}
	if err := tpl.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.templates.Update(c.Context(), tpl); err != nil {
		return toHTTPError(err)
	}

	updated, err := h.templates.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(updated))
}

func (h *TemplateHandler) DeleteTemplate(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	if err := h.templates.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toTemplateResponse(t *domain.Template) templateResponse {
	if t == nil {
		return templateResponse{}
	}

	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Content:   t.Content,
		Engine:    t.Engine,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
