package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporter_Capture(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	l := &logger.Logger{Logger: zap.New(core)}

	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	r, err := NewWithOptions(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	}, l)
	require.NoError(t, err)

	r.Capture("fetch marketplace", errors.New("connection reset"))
	r.Flush(time.Second)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "fetch marketplace: connection reset", logs.All()[0].Message)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "fetch marketplace", events[0].Tags["operation"])
}

func TestReporter_WithoutDSN(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r, err := New("", &logger.Logger{Logger: zap.New(core)})
	require.NoError(t, err)

	r.Capture("download", errors.New("boom"))
	r.Capture("download", nil)
	r.Flush(time.Millisecond)
	assert.Equal(t, 1, logs.Len())

	var nilReporter *Reporter
	assert.NotPanics(t, func() { nilReporter.Capture("x", errors.New("y")) })
}

func TestReporter_Failure(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
		captured int
	}{
		{name: "validation", err: models.Invalid("Amount must be greater than zero."), expected: "Amount must be greater than zero."},
		{name: "not logged in", err: fmt.Errorf("wrapped: %w", api.ErrNotLoggedIn), expected: MsgLoginRequired},
		{name: "api message", err: &api.APIError{StatusCode: http.StatusBadRequest, Message: "Oferta inativa."}, expected: "Oferta inativa."},
		{name: "api without message", err: &api.APIError{StatusCode: http.StatusBadGateway}, expected: "Could not do it.", captured: 1},
		{name: "timeout", err: context.DeadlineExceeded, expected: MsgTimeout},
		{name: "network", err: errors.New("dial tcp: connection refused"), expected: "Could not do it.", captured: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			r := Nop(&logger.Logger{Logger: zap.New(core)})
			rec := &notify.Recorder{}

			r.Failure(rec, "op", tc.err, "Could not do it.")

			assert.Equal(t, notify.Message{Kind: notify.KindError, Text: tc.expected}, rec.Last())
			assert.Equal(t, tc.captured, logs.Len())
		})
	}

	rec := &notify.Recorder{}
	Nop(logger.Nop()).Failure(rec, "op", context.Canceled, "x")
	assert.Empty(t, rec.Messages())
}
