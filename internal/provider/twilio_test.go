package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTwilioProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotPath = r.URL.Path

		user, pass, ok := r.BasicAuth()
		if !ok || user != "ACtest" || pass != "secret" {
			t.Errorf("basic auth = %q/%q, want ACtest/secret", user, pass)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	p, err := NewTwilioProvider(TwilioConfig{
		AccountSID: "ACtest",
		AuthToken:  "secret",
		FromNumber: "+15550000000",
		BaseURL:    server.URL,
	})
	if err != nil {
		t.Fatalf("NewTwilioProvider() error = %v", err)
	}

	receipt, err := p.Send(context.Background(), "+15551230001", "hello")
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/ACtest/Messages.json" {
		t.Fatalf("path = %q, want the messages endpoint", gotPath)
	}
	if gotForm["To"] != "+15551230001" {
		t.Fatalf("To = %q, want +15551230001", gotForm["To"])
	}
	if gotForm["From"] != "+15550000000" {
		t.Fatalf("From = %q, want +15550000000", gotForm["From"])
	}
	if gotForm["Body"] != "hello" {
		t.Fatalf("Body = %q, want hello", gotForm["Body"])
	}

	if receipt.SID != "SM123" {
		t.Fatalf("SID = %q, want SM123", receipt.SID)
	}
	if receipt.Status != "queued" {
		t.Fatalf("Status = %q, want queued", receipt.Status)
	}
	if receipt.StatusCode != http.StatusCreated {
		t.Fatalf("StatusCode = %d, want 201", receipt.StatusCode)
	}
}

func TestTwilioProviderSendAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer server.Close()

	p, err := NewTwilioProvider(TwilioConfig{
		AccountSID: "ACtest",
		AuthToken:  "secret",
		FromNumber: "+15550000000",
		BaseURL:    server.URL,
	})
	if err != nil {
		t.Fatalf("NewTwilioProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), "+0", "hello")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", provErr.StatusCode)
	}
	if provErr.Message != "Invalid 'To' Phone Number" {
		t.Fatalf("Message = %q, want the Twilio error text", provErr.Message)
	}
}

func TestTwilioProviderSendRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	p, err := NewTwilioProvider(TwilioConfig{
		AccountSID: "ACtest",
		AuthToken:  "secret",
		FromNumber: "+15550000000",
	})
	if err != nil {
		t.Fatalf("NewTwilioProvider() error = %v", err)
	}

	if _, err := p.Send(context.Background(), "", "hello"); err == nil {
		t.Fatal("Send() should reject an empty destination")
	}
	if _, err := p.Send(context.Background(), "+15551230001", ""); err == nil {
		t.Fatal("Send() should reject an empty body")
	}
}

func TestNewTwilioProviderValidatesConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  TwilioConfig
	}{
		{name: "missing account sid", cfg: TwilioConfig{AuthToken: "x", FromNumber: "+1"}},
		{name: "missing auth token", cfg: TwilioConfig{AccountSID: "AC", FromNumber: "+1"}},
		{name: "missing from number", cfg: TwilioConfig{AccountSID: "AC", AuthToken: "x"}},
		{name: "bad base url", cfg: TwilioConfig{AccountSID: "AC", AuthToken: "x", FromNumber: "+1", BaseURL: "::"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewTwilioProvider(tc.cfg); err == nil {
				t.Fatal("NewTwilioProvider() should fail")
			}
		})
	}
}
