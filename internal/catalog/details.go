package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"
	"reciclo/internal/pkg/optimistic"
	"reciclo/internal/pkg/report"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Action names a user action on a single model.
type Action string

const (
	ActionLike       Action = "like"
	ActionSave       Action = "save"
	ActionVisibility Action = "visibility"
	ActionDownload   Action = "download"
)

// Messages shown by Details.
const (
	MsgModelNotFound   = "Model not found or failed to load."
	MsgLoginToAct      = "You must be logged in."
	MsgActionFailed    = "Failed to process the action."
	MsgModerateFailed  = "Failed to moderate the model."
	MsgModelHidden     = "Model hidden successfully!"
	MsgModelRestored   = "Model restored successfully!"
	MsgDownloadStarted = "Download started!"
	MsgDownloadFailed  = "Could not download the model."
	MsgDownloadNetwork = "Network error or server unavailable."
	MsgDownloadUnknown = "Unexpected server error."
)

// Details tracks one model and the viewer's actions on it. Like and save are optimistic: the
// local copy changes at once and is rolled back if the server refuses.
type Details struct {
	id       int64
	client   *api.Client
	notifier notify.Notifier
	reporter *report.Reporter
	log      *logger.Logger

	model  *optimistic.Store[models.Model3D]
	flight singleflight.Group

	mu      sync.RWMutex
	loaded  bool
	loading bool
	err     string
	actions map[Action]bool
}

func newDetails(id int64, client *api.Client, notifier notify.Notifier, reporter *report.Reporter, l *logger.Logger) *Details {
	return &Details{
		id:       id,
		client:   client,
		notifier: notifier,
		reporter: reporter,
		log:      l,
		model:    optimistic.New(models.Model3D{}),
		actions:  make(map[Action]bool),
	}
}

// ID returns the model id.
func (d *Details) ID() int64 { return d.id }

// Model returns the current local copy and whether it has been loaded.
func (d *Details) Model() (models.Model3D, bool) {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	return d.model.Get(), loaded
}

// Err returns the message of the last failed Fetch, or "".
func (d *Details) Err() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// IsLoading reports whether Fetch is running.
func (d *Details) IsLoading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// ActionLoading returns the in-flight state of every action.
func (d *Details) ActionLoading() map[Action]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := map[Action]bool{ActionLike: false, ActionSave: false, ActionVisibility: false, ActionDownload: false}
	for k, v := range d.actions {
		out[k] = v
	}
	return out
}

func (d *Details) setAction(a Action, v bool) {
	d.mu.Lock()
	d.actions[a] = v
	d.mu.Unlock()
}

func (d *Details) path(suffix string) string {
	return fmt.Sprintf("%s%d/%s", modelsPath, d.id, suffix)
}

// Fetch loads the model. A token is sent when available but not required.
func (d *Details) Fetch(ctx context.Context) bool {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	var opts []api.RequestOption
	if !d.client.HasToken() {
		opts = append(opts, api.Anonymous())
	}
	var m models.Model3D
	err := d.client.Get(ctx, d.path(""), &m, opts...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		if !api.IsNotFound(err) {
			d.reporter.Capture("fetch model", err)
		}
		d.err = MsgModelNotFound
		return false
	}
	if m.Images == nil {
		m.Images = []models.ModelImage{}
	}
	d.model.Set(m)
	d.loaded = true
	d.err = ""
	return true
}

// Like toggles the viewer's like.
func (d *Details) Like(ctx context.Context) bool { return d.HandleAction(ctx, ActionLike) }

// Save toggles the viewer's bookmark.
func (d *Details) Save(ctx context.Context) bool { return d.HandleAction(ctx, ActionSave) }

// HandleAction runs a like or save toggle. A call made while the same action is in flight
// joins it instead of toggling again.
func (d *Details) HandleAction(ctx context.Context, action Action) bool {
	if action != ActionLike && action != ActionSave {
		d.log.Warn("unsupported model action", zap.String("action", string(action)))
		return false
	}
	if !d.client.HasToken() {
		d.notifier.Error(MsgLoginToAct)
		return false
	}
	if _, loaded := d.Model(); !loaded && !d.Fetch(ctx) {
		d.notifier.Error(MsgModelNotFound)
		return false
	}

	ok, _, _ := d.flight.Do(string(action), func() (any, error) {
		return d.toggle(ctx, action), nil
	})
	return ok.(bool)
}

func (d *Details) toggle(ctx context.Context, action Action) bool {
	d.setAction(action, true)
	defer d.setAction(action, false)

	_, err := optimistic.MutateField(ctx, d.model, field(action), flip(action),
		func(ctx context.Context) (models.ToggleResult, error) {
			var res models.ToggleResult
			err := d.client.Post(ctx, d.path(string(action)+"/"), struct{}{}, &res)
			return res, err
		},
		reconcile(action),
	)
	if err != nil {
		d.reporter.Failure(d.notifier, string(action)+" model", err, MsgActionFailed)
		return false
	}
	return true
}

// field scopes a toggle to the attributes it changes, so a like and a save in flight at the
// same time roll back independently.
func field(action Action) optimistic.Field[models.Model3D] {
	return optimistic.Field[models.Model3D]{
		Key: string(action),
		Restore: func(cur, snap models.Model3D) models.Model3D {
			switch action {
			case ActionLike:
				cur.IsLiked, cur.Likes = snap.IsLiked, snap.Likes
			case ActionSave:
				cur.IsSaved = snap.IsSaved
			}
			return cur
		},
	}
}

func flip(action Action) func(models.Model3D) models.Model3D {
	return func(m models.Model3D) models.Model3D {
		switch action {
		case ActionLike:
			if m.IsLiked {
				m.Likes--
			} else {
				m.Likes++
			}
			m.IsLiked = !m.IsLiked
		case ActionSave:
			m.IsSaved = !m.IsSaved
		}
		return m
	}
}

// reconcile adopts the server's view of the toggled flag when the answer carries it.
func reconcile(action Action) func(models.Model3D, models.ToggleResult) models.Model3D {
	return func(m models.Model3D, res models.ToggleResult) models.Model3D {
		switch action {
		case ActionLike:
			if res.IsLiked != nil {
				m.IsLiked = *res.IsLiked
			}
			if res.Likes != nil {
				m.Likes = *res.Likes
			}
		case ActionSave:
			if res.IsSaved != nil {
				m.IsSaved = *res.IsSaved
			} else if res.Saved != nil {
				m.IsSaved = *res.Saved
			}
		}
		return m
	}
}

// SetVisibility hides or restores the model. Curators only; the local copy changes once the
// server confirms.
func (d *Details) SetVisibility(ctx context.Context, visible bool) bool {
	if !d.client.HasToken() {
		d.notifier.Error(MsgLoginToAct)
		return false
	}
	d.setAction(ActionVisibility, true)
	defer d.setAction(ActionVisibility, false)

	err := d.client.Post(ctx, d.path("set_visibility/"), models.VisibilityChange{IsVisible: visible}, nil)
	if err != nil {
		d.reporter.Failure(d.notifier, "set model visibility", err, MsgModerateFailed)
		return false
	}

	d.model.Update(func(m models.Model3D) models.Model3D {
		m.IsVisible = visible
		return m
	})
	if visible {
		d.notifier.Success(MsgModelRestored)
	} else {
		d.notifier.Success(MsgModelHidden)
	}
	return true
}

// FallbackFilename is the name used when the server does not suggest one.
func (d *Details) FallbackFilename() string {
	return fmt.Sprintf("modelo_%d.zip", d.id)
}

// Download streams the model archive into sink and returns where it was stored.
// Concurrent calls into the same sink share one transfer; a call with another sink gets its own.
func (d *Details) Download(ctx context.Context, sink Sink) (string, bool) {
	if !d.client.HasToken() {
		d.notifier.Error(MsgLoginToAct)
		return "", false
	}

	v, _, _ := d.flight.Do(downloadKey(sink), func() (any, error) {
		location, ok := d.download(ctx, sink)
		return downloadResult{location: location, ok: ok}, nil
	})
	res := v.(downloadResult)
	return res.location, res.ok
}

func downloadKey(sink Sink) string {
	return fmt.Sprintf("%s:%T:%p", ActionDownload, sink, sink)
}

type downloadResult struct {
	location string
	ok       bool
}

func (d *Details) download(ctx context.Context, sink Sink) (string, bool) {
	d.setAction(ActionDownload, true)
	defer d.setAction(ActionDownload, false)

	dl, err := d.client.Download(ctx, d.path("download/"), d.FallbackFilename())
	if err != nil {
		d.downloadFailure(err)
		return "", false
	}
	defer dl.Body.Close()

	location, err := sink.Save(ctx, dl.Filename, dl.Body, dl.Size, dl.ContentType)
	if err != nil {
		d.log.Sugar().Errorf("Failed to store download of model %d: %s", d.id, err)
		d.reporter.Capture("store download", err)
		d.notifier.Error(MsgDownloadFailed)
		return "", false
	}

	d.model.Update(func(m models.Model3D) models.Model3D {
		m.Downloads++
		return m
	})
	d.notifier.Success(MsgDownloadStarted)
	return location, true
}

// downloadFailure reports a failed download. Error bodies arrive as binary payloads that may hold
// JSON; a JSON body without an "error" field gets the generic message.
func (d *Details) downloadFailure(err error) {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrNotLoggedIn):
		d.notifier.Error(MsgLoginToAct)
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Message != "":
			d.notifier.Error(apiErr.Message)
		case json.Valid(apiErr.Body):
			d.notifier.Error(MsgDownloadFailed)
		default:
			d.reporter.Capture("download model", err)
			d.notifier.Error(MsgDownloadUnknown)
		}
	case errors.Is(err, context.Canceled):
		d.log.Info("download cancelled", zap.Int64("model", d.id))
	default:
		d.log.Sugar().Errorf("Failed to download model %d: %s", d.id, err)
		d.notifier.Error(MsgDownloadNetwork)
	}
}
