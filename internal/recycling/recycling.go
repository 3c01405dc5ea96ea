// Package recycling registers the user's recycled bottles and reads the dashboard derived from
// them. Coins, levels and achievements are computed by the server.
package recycling

import (
	"context"
	"errors"
	"strings"
	"sync"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/events"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"
	"reciclo/internal/pkg/report"
)

const (
	bottlesPath   = "/api/recycle/bottles/"
	dashboardPath = "/api/user/dashboard/"

	msgSubmitFailed = "Failed to register the recycling."
)

// Service submits bottle batches and loads the recycling dashboard.
type Service struct {
	client   *api.Client
	notifier notify.Notifier
	reporter *report.Reporter
	bus      events.Publisher
	log      *logger.Logger

	mu         sync.RWMutex
	submitting int
}

// NewService creates a recycling Service. bus and reporter may be nil.
func NewService(client *api.Client, notifier notify.Notifier, reporter *report.Reporter, bus events.Publisher, l *logger.Logger) *Service {
	if bus == nil {
		bus = events.Nop{}
	}
	if reporter == nil {
		reporter = report.Nop(l)
	}
	return &Service{client: client, notifier: notifier, reporter: reporter, bus: bus, log: l}
}

// IsSubmitting reports whether a submission is running.
func (s *Service) IsSubmitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting > 0
}

// Payload turns the form into the request body, resolving "Outro" to the custom fields.
func Payload(form models.RecyclingForm) models.RecyclingSubmission {
	p := models.RecyclingSubmission{
		Type:     form.BottleType,
		Volume:   form.Volume,
		Quantity: form.Quantity,
	}
	if form.BottleType == models.OtherOption {
		p.Type = form.CustomBottleType
	}
	if form.Volume == models.OtherOption {
		p.Volume = form.CustomVolume
	}
	p.Type = strings.TrimSpace(p.Type)
	p.Volume = strings.TrimSpace(p.Volume)
	return p
}

// Validate checks a submission before it is sent.
func Validate(p models.RecyclingSubmission) error {
	if p.Type == "" {
		return models.Invalid("Choose the bottle type.")
	}
	if p.Volume == "" {
		return models.Invalid("Choose the bottle volume.")
	}
	if p.Quantity <= 0 {
		return models.Invalid("The quantity must be at least 1.")
	}
	return nil
}

// Submit registers recycled bottles and returns the server's answer, which lists any achievements
// unlocked, or nil on failure.
func (s *Service) Submit(ctx context.Context, form models.RecyclingForm) *models.RecyclingResult {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return nil
	}
	payload := Payload(form)
	if err := Validate(payload); err != nil {
		s.notifier.Error(err.Error())
		return nil
	}

	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting--
		s.mu.Unlock()
	}()

	var res models.RecyclingResult
	if err := s.client.Post(ctx, bottlesPath, payload, &res); err != nil {
		s.failure(err)
		return nil
	}

	if res.Message != "" {
		s.notifier.Success(res.Message)
	} else {
		s.notifier.Success("Recycling registered!")
	}
	s.bus.Publish(events.RecyclingSubmitted)
	return &res
}

// failure shows the "message" field of the error answer when present.
func (s *Service) failure(err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if msg := api.StringField(apiErr.Body, "message"); msg != "" {
			s.notifier.Error(msg)
			return
		}
		if apiErr.StatusCode < 500 {
			s.log.Sugar().Errorf("Failed to register recycling: %s", err)
			s.notifier.Error(msgSubmitFailed)
			return
		}
	}
	s.reporter.Failure(s.notifier, "register recycling", err, msgSubmitFailed)
}

// Dashboard returns the user's coins, level, recycling history and achievements.
func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, bool) {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return nil, false
	}
	var d models.Dashboard
	if err := s.client.Get(ctx, dashboardPath, &d); err != nil {
		s.reporter.Failure(s.notifier, "fetch dashboard", err, "Failed to load the dashboard.")
		return nil, false
	}
	if d.RecyclingData == nil {
		d.RecyclingData = []models.MonthlyRecycling{}
	}
	if d.Achievements == nil {
		d.Achievements = []models.Achievement{}
	}
	return &d, true
}
