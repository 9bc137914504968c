package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTransportTimeout = 10 * time.Second

func newTransportClient(baseURL string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(defaultTransportTimeout)
	client.SetRetryCount(0)
	return client
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func statusErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func requestDeliveryError(err error) *DeliveryError {
	return &DeliveryError{
		Message:   "provider request failed",
		Transient: !errors.Is(err, context.Canceled),
		Cause:     err,
	}
}
