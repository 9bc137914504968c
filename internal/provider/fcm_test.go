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

func fcmTestOptions() map[string]string {
	return map[string]string{
		"deviceToken": "device-abc",
		"title":       "Alert",
	}
}

func TestNewFCMRequiresServerKey(t *testing.T) {
	t.Parallel()

	if _, err := NewFCM(nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("NewFCM(nil) error = %v, want ErrValidation", err)
	}
}

func TestFCMSendPostsNotification(t *testing.T) {
	t.Parallel()

	var gotPayload fcmSendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fcm/send" {
			t.Fatalf("path = %q, want /fcm/send", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Fatalf("payload unmarshal error = %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	p, err := NewFCMWithClient(map[string]string{"serverKey": "key"}, resty.New().SetBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewFCMWithClient() error = %v", err)
	}

	if err := p.Send(context.Background(), "server restarted", fcmTestOptions()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotPayload.To != "device-abc" {
		t.Fatalf("to = %q, want device-abc", gotPayload.To)
	}
	if gotPayload.Notification.Title != "Alert" || gotPayload.Notification.Body != "server restarted" {
		t.Fatalf("notification = %+v", gotPayload.Notification)
	}
}

func TestFCMConversationKey(t *testing.T) {
	t.Parallel()

	p, err := NewFCM(map[string]string{"serverKey": "key"})
	if err != nil {
		t.Fatalf("NewFCM() error = %v", err)
	}

	key, err := p.ConversationKey(fcmTestOptions())
	if err != nil {
		t.Fatalf("ConversationKey() error = %v", err)
	}
	if key != "device:device-abc" {
		t.Fatalf("ConversationKey() = %q, want device:device-abc", key)
	}
}
