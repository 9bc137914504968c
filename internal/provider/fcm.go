package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
)

const fcmBaseURL = "https://fcm.googleapis.com"

// FCMProvider delivers push notifications through the Firebase Cloud
// Messaging HTTP API.
type FCMProvider struct {
	client *resty.Client
}

func NewFCM(credentials map[string]string) (Provider, error) {
	serverKey, err := parseFCMCredentials(credentials)
	if err != nil {
		return nil, err
	}

	client := newTransportClient(fcmBaseURL)
	client.SetHeader("Authorization", "key="+serverKey)

	return &FCMProvider{client: client}, nil
}

func NewFCMWithClient(credentials map[string]string, client *resty.Client) (Provider, error) {
	if _, err := parseFCMCredentials(credentials); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	return &FCMProvider{client: client}, nil
}

func (p *FCMProvider) Medium() domain.Medium { return domain.MediumPush }

func (p *FCMProvider) ValidateCredentials(options map[string]string) error {
	_, err := parseFCMCredentials(options)
	return err
}

func (p *FCMProvider) ValidateSendOptions(options map[string]string) error {
	_, err := parseFCMSendOptions(options)
	return err
}

func (p *FCMProvider) ConversationKey(options map[string]string) (string, error) {
	opts, err := parseFCMSendOptions(options)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("device:%s", opts.DeviceToken), nil
}

type fcmSendRequest struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (p *FCMProvider) Send(ctx context.Context, body string, options map[string]string) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("provider is not initialized")
	}

	opts, err := parseFCMSendOptions(options)
	if err != nil {
		return err
	}

	reqBody := fcmSendRequest{
		To: opts.DeviceToken,
		Notification: fcmNotification{
			Title: opts.Title,
			Body:  body,
		},
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post("/fcm/send")
	if err != nil {
		return requestDeliveryError(err)
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &DeliveryError{
		StatusCode: statusCode,
		Message:    statusErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

type fcmSendOptions struct {
	DeviceToken string
	Title       string
}

func parseFCMCredentials(options map[string]string) (string, error) {
	serverKey := strings.TrimSpace(options["serverKey"])
	if serverKey == "" {
		return "", fmt.Errorf("%w: serverKey is required", domain.ErrValidation)
	}
	return serverKey, nil
}

func parseFCMSendOptions(options map[string]string) (*fcmSendOptions, error) {
	deviceToken := strings.TrimSpace(options["deviceToken"])
	title := strings.TrimSpace(options["title"])

	if deviceToken == "" {
		return nil, fmt.Errorf("%w: deviceToken is required", domain.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	return &fcmSendOptions{DeviceToken: deviceToken, Title: title}, nil
}
