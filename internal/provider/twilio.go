package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTwilioBaseURL = "https://api.twilio.com"
	defaultSendTimeout   = 10 * time.Second
)

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TwilioProvider sends SMS through the Twilio Messages REST API.
type TwilioProvider struct {
	client     *resty.Client
	accountSID string
	fromNumber string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// BaseURL overrides the Twilio API endpoint; used by tests.
	BaseURL string
}

func NewTwilioProvider(cfg TwilioConfig) (*TwilioProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewTwilioProviderWithClient(cfg, client)
}

func NewTwilioProviderWithClient(cfg TwilioConfig, client *resty.Client) (*TwilioProvider, error) {
	accountSID := strings.TrimSpace(cfg.AccountSID)
	if accountSID == "" {
		return nil, fmt.Errorf("twilio account sid is required")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, fmt.Errorf("twilio auth token is required")
	}
	fromNumber := strings.TrimSpace(cfg.FromNumber)
	if fromNumber == "" {
		return nil, fmt.Errorf("twilio from number is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid twilio base url: %w", err)
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)
	client.SetBaseURL(baseURL)
	client.SetBasicAuth(accountSID, strings.TrimSpace(cfg.AuthToken))

	return &TwilioProvider{
		client:     client,
		accountSID: accountSID,
		fromNumber: fromNumber,
	}, nil
}

func (p *TwilioProvider) Send(ctx context.Context, to string, body string) (*SendReceipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("destination number is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("message body is required")
	}

	var parsed twilioMessageResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": p.fromNumber,
			"Body": body,
		}).
		SetResult(&parsed).
		SetError(&parsed).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", p.accountSID))
	if err != nil {
		return nil, &ProviderError{
			Message: "provider request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &ProviderError{Message: "provider returned empty response"}
	}

	if response.IsError() {
		msg := strings.TrimSpace(parsed.Message)
		if msg == "" {
			msg = fmt.Sprintf("unexpected provider status %d", response.StatusCode())
		}
		return nil, &ProviderError{
			StatusCode: response.StatusCode(),
			Message:    msg,
		}
	}

	return &SendReceipt{
		SID:        parsed.SID,
		Status:     parsed.Status,
		StatusCode: response.StatusCode(),
	}, nil
}
