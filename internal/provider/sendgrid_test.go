package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
)

func sendgridTestOptions() map[string]string {
	return map[string]string{
		"fromEmail": "noreply@example.com",
		"toEmail":   "user@example.com",
		"subject":   "Welcome",
	}
}

func TestNewSendgridRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewSendgrid(nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("NewSendgrid(nil) error = %v, want ErrValidation", err)
	}
	if _, err := NewSendgrid(map[string]string{"apiKey": " "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("NewSendgrid(blank) error = %v, want ErrValidation", err)
	}
}

func TestSendgridSendPostsMailPayload(t *testing.T) {
	t.Parallel()

	var gotPayload sendgridMailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Fatalf("path = %q, want /v3/mail/send", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Fatalf("payload unmarshal error = %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)

	p, err := NewSendgridWithClient(map[string]string{"apiKey": "SG.key"}, resty.New().SetBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewSendgridWithClient() error = %v", err)
	}

	if err := p.Send(context.Background(), "welcome aboard", sendgridTestOptions()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotPayload.From.Email != "noreply@example.com" {
		t.Fatalf("from = %q, want noreply@example.com", gotPayload.From.Email)
	}
	if gotPayload.Subject != "Welcome" {
		t.Fatalf("subject = %q, want Welcome", gotPayload.Subject)
	}
	if len(gotPayload.Content) != 1 || gotPayload.Content[0].Value != "welcome aboard" {
		t.Fatalf("content = %+v, want the message body", gotPayload.Content)
	}
}

func TestSendgridSendRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	p, err := NewSendgridWithClient(map[string]string{"apiKey": "SG.key"}, resty.New().SetBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewSendgridWithClient() error = %v", err)
	}

	err = p.Send(context.Background(), "hi", sendgridTestOptions())
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send() error = %v, want *DeliveryError", err)
	}
	if !deliveryErr.Transient {
		t.Fatal("429 not classified as transient")
	}
}

func TestSendgridValidateSendOptions(t *testing.T) {
	t.Parallel()

	p, err := NewSendgrid(map[string]string{"apiKey": "SG.key"})
	if err != nil {
		t.Fatalf("NewSendgrid() error = %v", err)
	}

	if err := p.ValidateSendOptions(sendgridTestOptions()); err != nil {
		t.Fatalf("ValidateSendOptions() error = %v", err)
	}

	missingSubject := map[string]string{
		"fromEmail": "noreply@example.com",
		"toEmail":   "user@example.com",
	}
	if err := p.ValidateSendOptions(missingSubject); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ValidateSendOptions() error = %v, want ErrValidation", err)
	}
}
