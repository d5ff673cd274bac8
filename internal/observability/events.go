package observability

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// DeliveryOutcome labels what the worker did with one due job.
type DeliveryOutcome string

const (
	OutcomeSent    DeliveryOutcome = "sent"
	OutcomeRetried DeliveryOutcome = "retried"
	OutcomeFailed  DeliveryOutcome = "failed"
	OutcomeSkipped DeliveryOutcome = "skipped"
	OutcomeLost    DeliveryOutcome = "lost_race"
)

// DeliveryEvent is the structured record the delivery worker emits per job.
// The worker holds no telemetry dependency itself; whoever wires it decides
// where events go.
type DeliveryEvent struct {
	JobID      string
	VisitID    string
	Kind       string
	Outcome    DeliveryOutcome
	RetryCount int
	Reason     string
	Elapsed    time.Duration
}

// EventSink receives delivery events. Emit must be safe for concurrent use;
// the worker calls it from multiple goroutines within a tick.
type EventSink interface {
	Emit(event DeliveryEvent)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(event DeliveryEvent)

func (f SinkFunc) Emit(event DeliveryEvent) { f(event) }

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(DeliveryEvent) {}

// NewLoggingSink emits each delivery event as a structured log line and, when
// metrics is non-nil, feeds the reminder counters.
func NewLoggingSink(logger *zap.Logger, metrics *Metrics) EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}

	return SinkFunc(func(event DeliveryEvent) {
		fields := []zap.Field{
			zap.String("jobId", event.JobID),
			zap.String("visitId", event.VisitID),
			zap.String("kind", event.Kind),
			zap.String("outcome", string(event.Outcome)),
			zap.Int("retryCount", event.RetryCount),
		}
		if event.Reason != "" {
			fields = append(fields, zap.String("reason", event.Reason))
		}
		if event.Elapsed > 0 {
			fields = append(fields, zap.Duration("elapsed", event.Elapsed))
		}

		switch event.Outcome {
		case OutcomeFailed:
			logger.Error("reminder delivery failed", fields...)
		case OutcomeRetried:
			logger.Warn("reminder delivery will retry", fields...)
		default:
			logger.Info("reminder processed", fields...)
		}

		if metrics == nil {
			return
		}
		kind := strings.ToLower(event.Kind)
		switch event.Outcome {
		case OutcomeSent:
			metrics.IncReminderSent(kind)
		case OutcomeFailed:
			metrics.IncReminderFailed(kind, "retry_exhausted")
		case OutcomeRetried:
			metrics.IncRetryScheduled(kind)
		case OutcomeSkipped:
			metrics.IncReminderSkipped(kind)
		}
		if event.Elapsed > 0 && event.Outcome != OutcomeSkipped {
			metrics.ObserveSendDuration(kind, event.Elapsed)
		}
	})
}
