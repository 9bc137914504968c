package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
	"github.com/kursadbilgin/message-courier/internal/provider"
	"github.com/kursadbilgin/message-courier/internal/transport"
	"go.uber.org/zap"
)

type stubRegistry struct {
	registeredProvidersFn func() []string
	saveCredentialsFn     func(ctx context.Context, name, clientID string, options map[string]string) (*provider.SaveCredentialsResult, error)
	listCredentialsFn     func(ctx context.Context, name string) ([]provider.CredentialView, error)
}

func (s *stubRegistry) RegisteredProviders() []string {
	return s.registeredProvidersFn()
}

func (s *stubRegistry) SaveCredentials(ctx context.Context, name, clientID string, options map[string]string) (*provider.SaveCredentialsResult, error) {
	return s.saveCredentialsFn(ctx, name, clientID, options)
}

func (s *stubRegistry) ListCredentials(ctx context.Context, name string) ([]provider.CredentialView, error) {
	return s.listCredentialsFn(ctx, name)
}

func newProviderTestApp(t *testing.T, registry ProviderRegistry) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterProviderRoutes(app, registry); err != nil {
		t.Fatalf("RegisterProviderRoutes() error = %v", err)
	}

	return app
}

func TestListProvidersEndpoint(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		registeredProvidersFn: func() []string {
			return []string{"fcm", "sendgrid", "twilio"}
		},
	}

	app := newProviderTestApp(t, registry)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/providers", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var listed struct {
		Providers []string `json:"providers"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(listed.Providers) != 3 || listed.Providers[2] != "twilio" {
		t.Fatalf("providers = %v, want [fcm sendgrid twilio]", listed.Providers)
	}
}

func TestSaveCredentialsEndpoint(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		saveCredentialsFn: func(ctx context.Context, name, clientID string, options map[string]string) (*provider.SaveCredentialsResult, error) {
			if name != "twilio" || clientID != "acct1" {
				t.Fatalf("SaveCredentials(%q, %q), want (twilio, acct1)", name, clientID)
			}
			updated := options["authToken"] == "second"
			return &provider.SaveCredentialsResult{ID: "cred-1", Updated: updated}, nil
		},
	}

	app := newProviderTestApp(t, registry)

	resp, _ := performRequest(t, app, http.MethodPut, "/v1/providers/twilio/credentials/acct1",
		`{"options":{"accountSid":"AC1","authToken":"first"}}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("first save status = %d, want 201", resp.StatusCode)
	}

	resp, body := performRequest(t, app, http.MethodPut, "/v1/providers/twilio/credentials/acct1",
		`{"options":{"accountSid":"AC1","authToken":"second"}}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("second save status = %d, want 200", resp.StatusCode)
	}

	var saved saveCredentialsResponse
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if !saved.Updated || saved.ID != "cred-1" {
		t.Fatalf("saved = %+v, want updated cred-1", saved)
	}
}

func TestSaveCredentialsEndpointUnknownProvider(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		saveCredentialsFn: func(ctx context.Context, name, clientID string, options map[string]string) (*provider.SaveCredentialsResult, error) {
			return nil, domain.ErrNotRegistered
		},
	}

	app := newProviderTestApp(t, registry)

	resp, _ := performRequest(t, app, http.MethodPut, "/v1/providers/nope/credentials/acct1",
		`{"options":{"k":"v"}}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListCredentialsEndpointRedacted(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		listCredentialsFn: func(ctx context.Context, name string) ([]provider.CredentialView, error) {
			if name != "twilio" {
				t.Fatalf("provider filter = %q, want twilio", name)
			}
			return []provider.CredentialView{
				{
					ID:       "cred-1",
					Provider: "twilio",
					Key:      "acct1",
					Options:  map[string]string{"authToken": "******"},
				},
			}, nil
		},
	}

	app := newProviderTestApp(t, registry)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/credentials?provider=twilio", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var listed struct {
		Data []credentialViewResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(listed.Data) != 1 {
		t.Fatalf("len(data) = %d, want 1", len(listed.Data))
	}
	if listed.Data[0].Options["authToken"] != "******" {
		t.Fatalf("options = %v, want redacted authToken", listed.Data[0].Options)
	}
}
