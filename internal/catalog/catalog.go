// Package catalog mirrors the shared 3D models: the browsable lists, the viewer's liked and saved
// collections, uploads and edits of owned models, comments, and the per-model details with
// optimistic like/save toggles and downloads.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"
	"reciclo/internal/pkg/optimistic"
	"reciclo/internal/pkg/report"
	"reciclo/internal/transform"
)

const (
	modelsPath      = "/api/models3d/"
	likedPath       = "/api/models3d/liked/"
	savedPath       = "/api/models3d/saved/"
	minePath        = "/api/models3d/my_models/"
	modelImagesPath = "/api/model-images/"
	modelFilesPath  = "/api/model-files/"
	commentsPath    = "/api/comments/"

	// MsgRemoveFailed is shown when a model cannot be taken out of the liked or saved list.
	MsgRemoveFailed = "Could not remove the model from your list."
)

// Service gives access to the model catalog.
type Service struct {
	client   *api.Client
	notifier notify.Notifier
	reporter *report.Reporter
	log      *logger.Logger

	liked *optimistic.Store[[]transform.ModelCard]
	saved *optimistic.Store[[]transform.ModelCard]

	mu         sync.Mutex
	comments   map[int64][]models.Comment
	submitting int
}

// NewService creates a catalog Service. reporter may be nil.
func NewService(client *api.Client, notifier notify.Notifier, reporter *report.Reporter, l *logger.Logger) *Service {
	if reporter == nil {
		reporter = report.Nop(l)
	}
	return &Service{
		client:   client,
		notifier: notifier,
		reporter: reporter,
		log:      l,
		liked:    optimistic.New([]transform.ModelCard{}),
		saved:    optimistic.New([]transform.ModelCard{}),
		comments: make(map[int64][]models.Comment),
	}
}

// Details returns a details tracker for one model. Call Fetch on it before reading the model.
func (s *Service) Details(id int64) *Details {
	return newDetails(id, s.client, s.notifier, s.reporter, s.log)
}

// IsSubmitting reports whether an upload or edit is running.
func (s *Service) IsSubmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting > 0
}

func (s *Service) submit() func() {
	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.submitting--
		s.mu.Unlock()
	}
}

func (s *Service) cards(ctx context.Context, path string, opts ...api.RequestOption) ([]transform.ModelCard, error) {
	raw, err := s.client.ListRaw(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return transform.TransformModelsData(raw, s.log), nil
}

// List returns the public catalog, filtered by search when not blank.
func (s *Service) List(ctx context.Context, search string) ([]transform.ModelCard, bool) {
	path := modelsPath
	if q := strings.TrimSpace(search); q != "" {
		path += "?search=" + url.QueryEscape(q)
	}
	var opts []api.RequestOption
	if !s.client.HasToken() {
		opts = append(opts, api.Anonymous())
	}

	cards, err := s.cards(ctx, path, opts...)
	if err != nil {
		s.reporter.Failure(s.notifier, "list models", err, "Failed to load models.")
		return []transform.ModelCard{}, false
	}
	return cards, true
}

// Liked refreshes and returns the models the viewer liked.
func (s *Service) Liked(ctx context.Context) ([]transform.ModelCard, bool) {
	return s.refresh(ctx, s.liked, likedPath, "You must be logged in to see your likes.", "Could not load your liked models.")
}

// Saved refreshes and returns the models the viewer saved.
func (s *Service) Saved(ctx context.Context) ([]transform.ModelCard, bool) {
	return s.refresh(ctx, s.saved, savedPath, "You must be logged in to see your saved models.", "Could not load your saved models.")
}

// Mine returns the viewer's own models.
func (s *Service) Mine(ctx context.Context) ([]transform.ModelCard, bool) {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return []transform.ModelCard{}, false
	}
	cards, err := s.cards(ctx, minePath)
	if err != nil {
		s.reporter.Failure(s.notifier, "list own models", err, "Could not load your models.")
		return []transform.ModelCard{}, false
	}
	return cards, true
}

func (s *Service) refresh(ctx context.Context, store *optimistic.Store[[]transform.ModelCard], path, loginMsg, failure string) ([]transform.ModelCard, bool) {
	if !s.client.HasToken() {
		s.notifier.Error(loginMsg)
		return []transform.ModelCard{}, false
	}
	cards, err := s.cards(ctx, path)
	if err != nil {
		s.reporter.Failure(s.notifier, "fetch "+path, err, failure)
		return store.Get(), false
	}
	store.Set(cards)
	return cards, true
}

// Unlike removes a model from the liked collection at once and tells the server. On failure the
// collection is refetched.
func (s *Service) Unlike(ctx context.Context, id int64) bool {
	return s.remove(ctx, s.liked, id, "like", likedPath)
}

// Unsave removes a model from the saved collection at once and tells the server. On failure the
// collection is refetched.
func (s *Service) Unsave(ctx context.Context, id int64) bool {
	return s.remove(ctx, s.saved, id, "save", savedPath)
}

func (s *Service) remove(ctx context.Context, store *optimistic.Store[[]transform.ModelCard], id int64, action, listPath string) bool {
	if !s.client.HasToken() {
		return false
	}

	_, err := optimistic.Mutate(ctx, store,
		func(cards []transform.ModelCard) []transform.ModelCard {
			kept := make([]transform.ModelCard, 0, len(cards))
			for _, c := range cards {
				if c.ID != id {
					kept = append(kept, c)
				}
			}
			return kept
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.client.Post(ctx, fmt.Sprintf("%s%d/%s/", modelsPath, id, action), struct{}{}, nil)
		},
		nil,
	)
	if err != nil {
		s.log.Sugar().Errorf("Failed to %s model %d: %s", "un"+action, id, err)
		s.notifier.Error(MsgRemoveFailed)
		if cards, err := s.cards(ctx, listPath); err == nil {
			store.Set(cards)
		}
		return false
	}
	return true
}

// ValidateNewModel checks an upload before it is sent.
func ValidateNewModel(m models.NewModel) error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Description) == "" || m.FilePath == "" {
		return models.Invalid("Fill in every field and attach at least one file.")
	}
	return nil
}

// Upload publishes a new model and returns the created record.
func (s *Service) Upload(ctx context.Context, m models.NewModel) (*models.Model3D, bool) {
	if !s.client.HasToken() {
		s.notifier.Error("You must be logged in to upload a model.")
		return nil, false
	}
	if err := ValidateNewModel(m); err != nil {
		s.notifier.Error(err.Error())
		return nil, false
	}
	done := s.submit()
	defer done()

	form := api.Form{
		Fields: map[string]string{"name": m.Name, "description": m.Description},
		Files:  []api.FormFile{{Field: "file", Path: m.FilePath}},
	}
	if m.ImagePath != "" {
		form.Files = append(form.Files, api.FormFile{Field: "image", Path: m.ImagePath})
	}

	var created models.Model3D
	if err := s.client.Upload(ctx, http.MethodPost, modelsPath, form, &created); err != nil {
		s.reporter.Failure(s.notifier, "upload model", err, "Failed to upload the model.")
		return nil, false
	}
	s.notifier.Success("Model uploaded successfully!")
	return &created, true
}

// Edit applies an edit of an owned model: marked images and files are deleted, new ones added,
// and the text fields patched last. The first failing step aborts the edit.
func (s *Service) Edit(ctx context.Context, id int64, edit models.ModelEdit) bool {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return false
	}
	done := s.submit()
	defer done()

	if err := s.edit(ctx, id, edit); err != nil {
		s.reporter.Failure(s.notifier, "edit model", err, "Failed to update the model.")
		return false
	}
	s.notifier.Success("Model updated successfully!")
	return true
}

func (s *Service) edit(ctx context.Context, id int64, edit models.ModelEdit) error {
	for _, imageID := range edit.DeleteImageIDs {
		if err := s.client.Delete(ctx, modelImagesPath+strconv.FormatInt(imageID, 10)+"/"); err != nil {
			return fmt.Errorf("delete image %d: %w", imageID, err)
		}
	}
	for _, fileID := range edit.DeleteFileIDs {
		if err := s.client.Delete(ctx, modelFilesPath+strconv.FormatInt(fileID, 10)+"/"); err != nil {
			return fmt.Errorf("delete file %d: %w", fileID, err)
		}
	}

	base := fmt.Sprintf("%s%d/", modelsPath, id)
	for _, p := range edit.AddImagePaths {
		form := api.Form{Files: []api.FormFile{{Field: "image", Path: p}}}
		if err := s.client.Upload(ctx, http.MethodPost, base+"add_image/", form, nil); err != nil {
			return fmt.Errorf("add image %s: %w", p, err)
		}
	}
	for _, p := range edit.AddFilePaths {
		form := api.Form{Files: []api.FormFile{{Field: "file", Path: p}}}
		if err := s.client.Upload(ctx, http.MethodPost, base+"add_file/", form, nil); err != nil {
			return fmt.Errorf("add file %s: %w", p, err)
		}
	}

	fields := map[string]string{}
	if edit.Name != "" {
		fields["name"] = edit.Name
	}
	if edit.Description != "" {
		fields["description"] = edit.Description
	}
	if len(fields) == 0 {
		return nil
	}
	return s.client.Patch(ctx, base, fields, nil)
}

// Delete removes an owned model.
func (s *Service) Delete(ctx context.Context, id int64) bool {
	if !s.client.HasToken() {
		s.notifier.Error(report.MsgLoginRequired)
		return false
	}
	done := s.submit()
	defer done()
	if err := s.client.Delete(ctx, fmt.Sprintf("%s%d/", modelsPath, id)); err != nil {
		s.reporter.Failure(s.notifier, "delete model", err, "Failed to delete the model.")
		return false
	}
	s.notifier.Success("Model deleted.")
	return true
}

// Comments loads the comments of a model, newest first as the server orders them.
func (s *Service) Comments(ctx context.Context, modelID int64) ([]models.Comment, bool) {
	var opts []api.RequestOption
	if !s.client.HasToken() {
		opts = append(opts, api.Anonymous())
	}
	list, err := api.List[models.Comment](ctx, s.client, commentsPath+"?model="+strconv.FormatInt(modelID, 10), opts...)
	if err != nil {
		s.reporter.Failure(s.notifier, "list comments", err, "Could not load the comments.")
		return s.cachedComments(modelID), false
	}

	s.mu.Lock()
	s.comments[modelID] = list
	s.mu.Unlock()
	return append([]models.Comment{}, list...), true
}

func (s *Service) cachedComments(modelID int64) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment{}, s.comments[modelID]...)
}

// AddComment posts a comment and puts it first in the local list of the model.
func (s *Service) AddComment(ctx context.Context, modelID int64, text string) (*models.Comment, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if !s.client.HasToken() {
		s.notifier.Info("You must be logged in to leave a comment.")
		return nil, false
	}

	var created models.Comment
	if err := s.client.Post(ctx, commentsPath, models.NewComment{Model: modelID, Text: text}, &created); err != nil {
		s.reporter.Failure(s.notifier, "add comment", err, "Could not send your comment.")
		return nil, false
	}

	s.mu.Lock()
	s.comments[modelID] = append([]models.Comment{created}, s.comments[modelID]...)
	s.mu.Unlock()
	return &created, true
}
