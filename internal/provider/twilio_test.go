package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
)

func twilioTestCredentials() map[string]string {
	return map[string]string{
		"accountSid": "AC123",
		"authToken":  "token",
	}
}

func twilioTestOptions() map[string]string {
	return map[string]string{
		"fromNumber": "+15550001111",
		"toNumber":   "+15552223333",
	}
}

func TestNewTwilioRequiresCredentials(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		credentials map[string]string
	}{
		{name: "nil bag", credentials: nil},
		{name: "missing account sid", credentials: map[string]string{"authToken": "token"}},
		{name: "missing auth token", credentials: map[string]string{"accountSid": "AC123"}},
		{name: "blank values", credentials: map[string]string{"accountSid": "  ", "authToken": "  "}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTwilio(tc.credentials)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("NewTwilio() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTwilioSendPostsFormToAccountPath(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm url.Values
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	t.Cleanup(server.Close)

	client := resty.New().SetBaseURL(server.URL).SetBasicAuth("AC123", "token")
	p, err := NewTwilioWithClient(twilioTestCredentials(), client)
	if err != nil {
		t.Fatalf("NewTwilioWithClient() error = %v", err)
	}

	if err := p.Send(context.Background(), "hello there", twilioTestOptions()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("path = %q, want the account messages endpoint", gotPath)
	}
	if gotForm.Get("Body") != "hello there" {
		t.Fatalf("form Body = %q, want hello there", gotForm.Get("Body"))
	}
	if gotForm.Get("From") != "+15550001111" || gotForm.Get("To") != "+15552223333" {
		t.Fatalf("form From/To = %q/%q", gotForm.Get("From"), gotForm.Get("To"))
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("authorization = %q, want basic auth", gotAuth)
	}
}

func TestTwilioSendTransientFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	p, err := NewTwilioWithClient(twilioTestCredentials(), resty.New().SetBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewTwilioWithClient() error = %v", err)
	}

	err = p.Send(context.Background(), "hello", twilioTestOptions())
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send() error = %v, want *DeliveryError", err)
	}
	if deliveryErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", deliveryErr.StatusCode)
	}
	if !deliveryErr.Transient {
		t.Fatal("503 not classified as transient")
	}
}

func TestTwilioSendPermanentFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid To number"}`))
	}))
	t.Cleanup(server.Close)

	p, err := NewTwilioWithClient(twilioTestCredentials(), resty.New().SetBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewTwilioWithClient() error = %v", err)
	}

	err = p.Send(context.Background(), "hello", twilioTestOptions())
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send() error = %v, want *DeliveryError", err)
	}
	if deliveryErr.Transient {
		t.Fatal("400 classified as transient")
	}
}

func TestTwilioValidateSendOptions(t *testing.T) {
	t.Parallel()

	p, err := NewTwilio(twilioTestCredentials())
	if err != nil {
		t.Fatalf("NewTwilio() error = %v", err)
	}

	if err := p.ValidateSendOptions(twilioTestOptions()); err != nil {
		t.Fatalf("ValidateSendOptions() error = %v", err)
	}
	if err := p.ValidateSendOptions(map[string]string{"toNumber": "+1555"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ValidateSendOptions() error = %v, want ErrValidation", err)
	}
}

func TestTwilioConversationKey(t *testing.T) {
	t.Parallel()

	p, err := NewTwilio(twilioTestCredentials())
	if err != nil {
		t.Fatalf("NewTwilio() error = %v", err)
	}

	key, err := p.ConversationKey(twilioTestOptions())
	if err != nil {
		t.Fatalf("ConversationKey() error = %v", err)
	}
	want := "outbound:+15552223333-inbound:+15550001111"
	if key != want {
		t.Fatalf("ConversationKey() = %q, want %q", key, want)
	}
}
