// Package report logs unexpected failures and forwards them to Sentry when a DSN is configured.
// Expected outcomes, such as validation failures or API answers carrying a message for the
// user, are not reported.
package report

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"

	"github.com/getsentry/sentry-go"
)

// Reporter records unexpected errors.
type Reporter struct {
	log *logger.Logger
	hub *sentry.Hub
}

// New creates a Reporter. An empty dsn disables Sentry; errors are still logged.
func New(dsn string, l *logger.Logger) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{log: l}, nil
	}
	return NewWithOptions(sentry.ClientOptions{Dsn: dsn}, l)
}

// NewWithOptions creates a Reporter with explicit Sentry client options.
func NewWithOptions(opts sentry.ClientOptions, l *logger.Logger) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Reporter{log: l, hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Nop returns a Reporter that only logs.
func Nop(l *logger.Logger) *Reporter {
	return &Reporter{log: l}
}

// Capture logs err at error level with the failed operation and sends it to Sentry.
func (r *Reporter) Capture(op string, err error) {
	if r == nil || err == nil {
		return
	}
	r.log.Sugar().Errorf("%s: %v", op, err)
	if r.hub == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", op)
		r.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events to be delivered.
func (r *Reporter) Flush(timeout time.Duration) {
	if r == nil || r.hub == nil {
		return
	}
	r.hub.Flush(timeout)
}

// Messages shown for failures that carry no server message.
const (
	MsgLoginRequired = "You must be logged in to perform this action."
	MsgTimeout       = "The server took too long to answer."
)

// Failure tells the user why op failed. Validation errors and API answers are shown as they
// are; anything else, including server errors, is also captured as unexpected.
func (r *Reporter) Failure(n notify.Notifier, op string, err error, fallback string) {
	var (
		invalid *models.ValidationError
		apiErr  *api.APIError
	)
	switch {
	case errors.As(err, &invalid):
		n.Error(invalid.Message)
	case errors.Is(err, api.ErrNotLoggedIn):
		n.Error(MsgLoginRequired)
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusInternalServerError {
			r.Capture(op, err)
		}
		n.Error(api.FormatError(err, fallback))
	case errors.Is(err, context.DeadlineExceeded):
		r.log.Sugar().Warnf("%s: %v", op, err)
		n.Error(MsgTimeout)
	case errors.Is(err, context.Canceled):
		r.log.Sugar().Infof("%s: canceled", op)
	default:
		r.Capture(op, err)
		n.Error(fallback)
	}
}
