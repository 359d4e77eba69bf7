// Package telemetry wraps Sentry tracing and error reporting.
package telemetry

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/getsentry/sentry-go"
)

const serviceName = "taskpriority"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a flush function.
// An empty DSN leaves Sentry disabled and returns a no-op.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			return sampleRate(ctx.Span, cfg.TracesSampleRate)
		}),
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// sampleRate drops health checks and keeps child spans with their parent.
func sampleRate(span *sentry.Span, rate float64) float64 {
	if span.Name == "GET /health" {
		return 0
	}
	var noParent sentry.SpanID
	if span.ParentSpanID != noParent {
		if span.Sampled.Bool() {
			return 1
		}
		return 0
	}
	return rate
}

// SpanAttributes are the tags and data recorded on service spans.
type SpanAttributes struct {
	OwnerID   string
	TaskID    string
	GroupID   string
	Operation string
	// Count is recorded as span data when positive (candidates, scores, task ids).
	Count int
}

// Span wraps sentry.Span so callers never deal with a nil span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError records err on the span. Expected outcomes such as a missing task or
// invalid input only set the status; everything else is reported to Sentry.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	status, report := classify(err)
	s.inner.Status = status
	if report {
		CaptureError(s.inner.Context(), err)
	}
}

func classify(err error) (sentry.SpanStatus, bool) {
	if errors.Is(err, context.Canceled) {
		return sentry.SpanStatusCanceled, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sentry.SpanStatusDeadlineExceeded, true
	}

	var groupErr *domain.GroupCreationError
	if errors.As(err, &groupErr) {
		err = groupErr.Err
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeNotFound:
			return sentry.SpanStatusNotFound, false
		case domain.ErrCodeValidation, domain.ErrCodeInvalidOperation:
			return sentry.SpanStatusInvalidArgument, false
		case domain.ErrCodeAlreadyExists:
			return sentry.SpanStatusAlreadyExists, false
		case domain.ErrCodeUnauthorized:
			return sentry.SpanStatusUnauthenticated, false
		}
	}

	var providerErr *domain.EmbeddingProviderError
	if errors.As(err, &providerErr) {
		return sentry.SpanStatusUnavailable, true
	}

	return sentry.SpanStatusInternalError, true
}

func setAttributes(span *sentry.Span, attrs SpanAttributes) {
	for tag, value := range map[string]string{
		"owner_id": attrs.OwnerID,
		"task_id":  attrs.TaskID,
		"group_id": attrs.GroupID,
	} {
		if value != "" {
			span.SetTag(tag, value)
		}
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
	if attrs.Count > 0 {
		span.SetData("count", attrs.Count)
	}
}

// StartSpan starts a child of the span in ctx, or a new transaction when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	setAttributes(span, attrs)
	return span.Context(), &Span{inner: span}
}

// StartTransaction starts a root span for work that does not come from a request,
// such as a queued job.
func StartTransaction(ctx context.Context, name string, op string) (context.Context, *Span) {
	options := []sentry.SpanOption{sentry.WithTransactionName(name)}
	if op != "" {
		options = append(options, sentry.WithOpName(op))
	}

	span := sentry.StartSpan(ctx, op, options...)
	return span.Context(), &Span{inner: span}
}

func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
}

func CaptureMessage(ctx context.Context, message string) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureMessage(message)
	} else {
		sentry.CaptureMessage(message)
	}
}

// AddBreadcrumb records a step that will be attached to the next reported event.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
	} else {
		sentry.AddBreadcrumb(breadcrumb)
	}
}
