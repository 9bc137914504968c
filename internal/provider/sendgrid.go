package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
)

const sendgridBaseURL = "https://api.sendgrid.com"

// SendgridProvider delivers email through the SendGrid v3 mail API.
type SendgridProvider struct {
	client *resty.Client
}

func NewSendgrid(credentials map[string]string) (Provider, error) {
	apiKey, err := parseSendgridCredentials(credentials)
	if err != nil {
		return nil, err
	}

	client := newTransportClient(sendgridBaseURL)
	client.SetAuthToken(apiKey)

	return &SendgridProvider{client: client}, nil
}

func NewSendgridWithClient(credentials map[string]string, client *resty.Client) (Provider, error) {
	if _, err := parseSendgridCredentials(credentials); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	return &SendgridProvider{client: client}, nil
}

func (p *SendgridProvider) Medium() domain.Medium { return domain.MediumEmail }

func (p *SendgridProvider) ValidateCredentials(options map[string]string) error {
	_, err := parseSendgridCredentials(options)
	return err
}

func (p *SendgridProvider) ValidateSendOptions(options map[string]string) error {
	_, err := parseSendgridSendOptions(options)
	return err
}

func (p *SendgridProvider) ConversationKey(options map[string]string) (string, error) {
	opts, err := parseSendgridSendOptions(options)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("outbound:%s-inbound:%s", opts.To, opts.From), nil
}

type sendgridMailRequest struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (p *SendgridProvider) Send(ctx context.Context, body string, options map[string]string) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("provider is not initialized")
	}

	opts, err := parseSendgridSendOptions(options)
	if err != nil {
		return err
	}

	reqBody := sendgridMailRequest{
		Personalizations: []sendgridPersonalization{
			{To: []sendgridAddress{{Email: opts.To}}},
		},
		From:    sendgridAddress{Email: opts.From},
		Subject: opts.Subject,
		Content: []sendgridContent{{Type: "text/plain", Value: body}},
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post("/v3/mail/send")
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

type sendgridSendOptions struct {
	From    string
	To      string
	Subject string
}

func parseSendgridCredentials(options map[string]string) (string, error) {
	apiKey := strings.TrimSpace(options["apiKey"])
	if apiKey == "" {
		return "", fmt.Errorf("%w: apiKey is required", domain.ErrValidation)
	}
	return apiKey, nil
}

func parseSendgridSendOptions(options map[string]string) (*sendgridSendOptions, error) {
	from := strings.TrimSpace(options["fromEmail"])
	to := strings.TrimSpace(options["toEmail"])
	subject := strings.TrimSpace(options["subject"])

	if from == "" {
		return nil, fmt.Errorf("%w: fromEmail is required", domain.ErrValidation)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: toEmail is required", domain.ErrValidation)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}

	return &sendgridSendOptions{From: from, To: to, Subject: subject}, nil
}
