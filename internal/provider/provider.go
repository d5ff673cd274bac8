package provider

import "context"

// Provider is the outbound SMS delivery port. Implementations never retry;
// all retry policy lives in the delivery worker.
type Provider interface {
	Send(ctx context.Context, to string, body string) (*SendReceipt, error)
}

// SendReceipt stores provider call metadata for audit and persistence.
type SendReceipt struct {
	SID        string
	Status     string
	StatusCode int
}
