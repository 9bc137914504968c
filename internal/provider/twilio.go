package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-courier/internal/domain"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioProvider delivers SMS through the Twilio Messages API.
type TwilioProvider struct {
	client     *resty.Client
	accountSID string
}

func NewTwilio(credentials map[string]string) (Provider, error) {
	accountSID, authToken, err := parseTwilioCredentials(credentials)
	if err != nil {
		return nil, err
	}

	client := newTransportClient(twilioBaseURL)
	client.SetBasicAuth(accountSID, authToken)

	return &TwilioProvider{
		client:     client,
		accountSID: accountSID,
	}, nil
}

// NewTwilioWithClient allows tests to substitute the transport client.
func NewTwilioWithClient(credentials map[string]string, client *resty.Client) (Provider, error) {
	accountSID, _, err := parseTwilioCredentials(credentials)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &TwilioProvider{
		client:     client,
		accountSID: accountSID,
	}, nil
}

func (p *TwilioProvider) Medium() domain.Medium { return domain.MediumSMS }

func (p *TwilioProvider) ValidateCredentials(options map[string]string) error {
	_, _, err := parseTwilioCredentials(options)
	return err
}

func (p *TwilioProvider) ValidateSendOptions(options map[string]string) error {
	_, err := parseTwilioSendOptions(options)
	return err
}

func (p *TwilioProvider) ConversationKey(options map[string]string) (string, error) {
	opts, err := parseTwilioSendOptions(options)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("outbound:%s-inbound:%s", opts.To, opts.From), nil
}

func (p *TwilioProvider) Send(ctx context.Context, body string, options map[string]string) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("provider is not initialized")
	}

	opts, err := parseTwilioSendOptions(options)
	if err != nil {
		return err
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": opts.From,
			"To":   opts.To,
			"Body": body,
		}).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", p.accountSID))
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

type twilioSendOptions struct {
	From string
	To   string
}

func parseTwilioCredentials(options map[string]string) (string, string, error) {
	accountSID := strings.TrimSpace(options["accountSid"])
	authToken := strings.TrimSpace(options["authToken"])

	if accountSID == "" {
		return "", "", fmt.Errorf("%w: accountSid is required", domain.ErrValidation)
	}
	if authToken == "" {
		return "", "", fmt.Errorf("%w: authToken is required", domain.ErrValidation)
	}

	return accountSID, authToken, nil
}

func parseTwilioSendOptions(options map[string]string) (*twilioSendOptions, error) {
	from := strings.TrimSpace(options["fromNumber"])
	to := strings.TrimSpace(options["toNumber"])

	if from == "" {
		return nil, fmt.Errorf("%w: fromNumber is required", domain.ErrValidation)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: toNumber is required", domain.ErrValidation)
	}

	return &twilioSendOptions{From: from, To: to}, nil
}
