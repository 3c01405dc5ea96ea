package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	answers  map[string]http.HandlerFunc
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests = append(f.requests, key)
	answer, ok := f.answers[key]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
		return
	}
	answer(w, r)
}

func (f *fakeAPI) set(key string, answer http.HandlerFunc) {
	f.mu.Lock()
	f.answers[key] = answer
	f.mu.Unlock()
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == key {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func body(status int, payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}
}

const modelJSON = `{"id": 7, "name": "Vase", "likes": 3, "downloads": 1, "is_liked": false, "is_saved": false, "is_visible": true, "images": [], "files": [], "price": "0"}`

type fixture struct {
	svc    *Service
	fake   *fakeAPI
	rec    *notify.Recorder
	client *api.Client
}

func newFixture(t *testing.T, withToken bool) *fixture {
	t.Helper()
	f := &fixture{
		fake: &fakeAPI{answers: map[string]http.HandlerFunc{
			"GET /api/models3d/7/": body(http.StatusOK, modelJSON),
		}},
		rec: &notify.Recorder{},
	}
	ts := httptest.NewServer(f.fake)
	t.Cleanup(ts.Close)

	f.client = api.NewClient(ts.URL, logger.Nop())
	if withToken {
		f.client.SetToken("token")
	}
	f.svc = NewService(f.client, f.rec, nil, logger.Nop())
	return f
}

func (f *fixture) details(t *testing.T) *Details {
	t.Helper()
	d := f.svc.Details(7)
	require.True(t, d.Fetch(context.Background()))
	return d
}

func TestDetails_FetchAnonymous(t *testing.T) {
	f := newFixture(t, false)
	d := f.svc.Details(7)

	_, loaded := d.Model()
	assert.False(t, loaded)
	require.True(t, d.Fetch(context.Background()))

	m, loaded := d.Model()
	assert.True(t, loaded)
	assert.Equal(t, "Vase", m.Name)
	assert.Empty(t, d.Err())

	missing := f.svc.Details(99)
	assert.False(t, missing.Fetch(context.Background()))
	assert.Equal(t, MsgModelNotFound, missing.Err())
}

func TestDetails_LikeRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)
	f.fake.set("POST /api/models3d/7/like/", body(http.StatusInternalServerError, `<html>boom</html>`))

	assert.False(t, d.Like(context.Background()))

	m, _ := d.Model()
	assert.False(t, m.IsLiked)
	assert.Equal(t, 3, m.Likes)
	assert.Equal(t, notify.KindError, f.rec.Last().Kind)
	assert.Equal(t, MsgActionFailed, f.rec.Last().Text)
	assert.False(t, d.ActionLoading()[ActionLike])
}

func TestDetails_LikeReconcilesWithServer(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)
	f.fake.set("POST /api/models3d/7/like/", body(http.StatusOK, `{"likes": 42, "is_liked": true}`))
	f.fake.set("POST /api/models3d/7/save/", body(http.StatusOK, `{"saved": true}`))

	require.True(t, d.Like(context.Background()))
	require.True(t, d.Save(context.Background()))

	m, _ := d.Model()
	assert.True(t, m.IsLiked)
	assert.Equal(t, 42, m.Likes)
	assert.True(t, m.IsSaved)
}

func TestDetails_LikeWithoutAnswerKeepsOptimisticValue(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)
	f.fake.set("POST /api/models3d/7/like/", body(http.StatusOK, `{}`))

	require.True(t, d.Like(context.Background()))
	m, _ := d.Model()
	assert.True(t, m.IsLiked)
	assert.Equal(t, 4, m.Likes)
}

func TestDetails_FailedLikeRollsBackWhileSaveSucceeds(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.fake.set("POST /api/models3d/7/like/", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	})
	f.fake.set("POST /api/models3d/7/save/", body(http.StatusOK, `{"saved": true}`))

	liked := make(chan bool)
	go func() { liked <- d.Like(context.Background()) }()
	<-entered
	require.True(t, d.Save(context.Background()))
	close(release)

	assert.False(t, <-liked)
	m, _ := d.Model()
	assert.False(t, m.IsLiked)
	assert.Equal(t, 3, m.Likes)
	assert.True(t, m.IsSaved)
}

func TestDetails_ConcurrentLikesCoalesce(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.fake.set("POST /api/models3d/7/like/", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(entered) })
		<-release
		w.Write([]byte(`{}`))
	})

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = d.Like(context.Background())
	}()
	<-entered
	assert.True(t, d.ActionLoading()[ActionLike])

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = d.Like(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	assert.Equal(t, 1, f.fake.count("POST /api/models3d/7/like/"))
	m, _ := d.Model()
	assert.True(t, m.IsLiked)
	assert.Equal(t, 4, m.Likes)
}

func TestDetails_LikeRequiresLogin(t *testing.T) {
	f := newFixture(t, false)
	d := f.details(t)

	assert.False(t, d.Like(context.Background()))
	assert.Equal(t, MsgLoginToAct, f.rec.Last().Text)
	assert.Zero(t, f.fake.count("POST /api/models3d/7/like/"))
}

func TestDetails_SetVisibility(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)
	f.fake.set("POST /api/models3d/7/set_visibility/", body(http.StatusOK, `{"is_visible": false}`))

	require.True(t, d.SetVisibility(context.Background(), false))
	m, _ := d.Model()
	assert.False(t, m.IsVisible)
	assert.Equal(t, MsgModelHidden, f.rec.Last().Text)

	f.fake.set("POST /api/models3d/7/set_visibility/", body(http.StatusForbidden, `{"detail": "You do not have permission to perform this action."}`))
	assert.False(t, d.SetVisibility(context.Background(), true))
	m, _ = d.Model()
	assert.False(t, m.IsVisible)
	assert.Equal(t, "You do not have permission to perform this action.", f.rec.Last().Text)
}

func TestDetails_DownloadToDirectory(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)
	dir := t.TempDir()

	f.fake.set("GET /api/models3d/7/download/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="vase.zip"`)
		w.Write([]byte("PK-archive"))
	})
	location, ok := d.Download(context.Background(), NewDirSink(dir))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "vase.zip"), location)
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "PK-archive", string(data))

	m, _ := d.Model()
	assert.Equal(t, 2, m.Downloads)
	assert.Equal(t, MsgDownloadStarted, f.rec.Last().Text)
	assert.False(t, d.ActionLoading()[ActionDownload])

	f.fake.set("GET /api/models3d/7/download/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PK"))
	})
	location, ok = d.Download(context.Background(), NewDirSink(dir))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "modelo_7.zip"), location)
}

func TestDetails_ConcurrentDownloadsIntoDifferentSinks(t *testing.T) {
	f := newFixture(t, true)
	d := f.details(t)

	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	f.fake.set("GET /api/models3d/7/download/", func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-release
		w.Header().Set("Content-Disposition", `attachment; filename="vase.zip"`)
		w.Write([]byte("PK"))
	})

	dirs := []string{t.TempDir(), t.TempDir()}
	locations := make([]string, 2)
	var wg sync.WaitGroup
	for i, dir := range dirs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locations[i], _ = d.Download(context.Background(), NewDirSink(dir))
		}()
		<-arrived
	}
	close(release)
	wg.Wait()

	assert.Equal(t, filepath.Join(dirs[0], "vase.zip"), locations[0])
	assert.Equal(t, filepath.Join(dirs[1], "vase.zip"), locations[1])
	assert.Equal(t, 2, f.fake.count("GET /api/models3d/7/download/"))
}

func TestDetails_DownloadErrors(t *testing.T) {
	testCases := []struct {
		name     string
		answer   http.HandlerFunc
		expected string
	}{
		{
			name:     "json error field",
			answer:   body(http.StatusForbidden, `{"error": "This model has no files."}`),
			expected: "This model has no files.",
		},
		{
			name:     "json without error field",
			answer:   body(http.StatusBadRequest, `{"detail": "nope"}`),
			expected: MsgDownloadFailed,
		},
		{
			name: "binary body",
			answer: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte{0xff, 0x00, 0x13})
			},
			expected: MsgDownloadUnknown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, true)
			d := f.details(t)
			dir := t.TempDir()
			f.fake.set("GET /api/models3d/7/download/", tc.answer)

			_, ok := d.Download(context.Background(), NewDirSink(dir))
			assert.False(t, ok)
			assert.Equal(t, tc.expected, f.rec.Last().Text)

			m, _ := d.Model()
			assert.Equal(t, 1, m.Downloads)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestDetails_DownloadNetworkError(t *testing.T) {
	rec := &notify.Recorder{}
	client := api.NewClient("http://127.0.0.1:1", logger.Nop(), api.WithTimeout(time.Second))
	client.SetToken("token")
	d := NewService(client, rec, nil, logger.Nop()).Details(7)

	_, ok := d.Download(context.Background(), NewDirSink(t.TempDir()))
	assert.False(t, ok)
	assert.Equal(t, MsgDownloadNetwork, rec.Last().Text)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDirSink_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)

	_, err := sink.Save(context.Background(), "vase.zip", io.MultiReader(strings.NewReader("PK"), failingReader{}), -1, "")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = sink.Save(context.Background(), "..", strings.NewReader("PK"), 2, "")
	assert.ErrorIs(t, err, ErrBadFilename)

	location, err := sink.Save(context.Background(), "../../etc/vase.zip", strings.NewReader("PK"), 2, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vase.zip"), location)
}

func TestList_TransformsCards(t *testing.T) {
	f := newFixture(t, false)
	f.fake.set("GET /api/models3d/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vase", r.URL.Query().Get("search"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"results": [{"id": 1, "name": "Vase", "user": null, "images": []}]}`))
	})

	cards, ok := f.svc.List(context.Background(), " vase ")
	require.True(t, ok)
	require.Len(t, cards, 1)
	assert.Equal(t, "Utilizador", cards[0].UserName)
	assert.Equal(t, "/placeholder.png", cards[0].Image)
}

func TestUnlike_RemovesAndRefetchesOnFailure(t *testing.T) {
	f := newFixture(t, true)
	f.fake.set("GET /api/models3d/liked/", body(http.StatusOK, `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]`))

	cards, ok := f.svc.Liked(context.Background())
	require.True(t, ok)
	require.Len(t, cards, 2)

	f.fake.set("POST /api/models3d/1/like/", body(http.StatusOK, `{"likes": 0, "is_liked": false}`))
	require.True(t, f.svc.Unlike(context.Background(), 1))
	remaining := f.svc.liked.Get()
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].ID)

	f.fake.set("GET /api/models3d/liked/", body(http.StatusOK, `[{"id": 2, "name": "b"}]`))
	f.fake.set("POST /api/models3d/2/like/", body(http.StatusInternalServerError, ``))
	assert.False(t, f.svc.Unlike(context.Background(), 2))
	assert.Len(t, f.svc.liked.Get(), 1)
	assert.Equal(t, 2, f.fake.count("GET /api/models3d/liked/"))
	assert.Equal(t, notify.KindError, f.rec.Last().Kind)
	assert.Equal(t, MsgRemoveFailed, f.rec.Last().Text)
}

func TestDelete_MarksSubmitting(t *testing.T) {
	f := newFixture(t, true)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.fake.set("DELETE /api/models3d/7/", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusNoContent)
	})

	result := make(chan bool)
	go func() { result <- f.svc.Delete(context.Background(), 7) }()
	<-entered
	assert.True(t, f.svc.IsSubmitting())
	close(release)

	assert.True(t, <-result)
	assert.False(t, f.svc.IsSubmitting())
	assert.Equal(t, "Model deleted.", f.rec.Last().Text)
}

func TestLiked_RequiresLogin(t *testing.T) {
	f := newFixture(t, false)

	cards, ok := f.svc.Liked(context.Background())
	assert.False(t, ok)
	assert.NotNil(t, cards)
	assert.Equal(t, "You must be logged in to see your likes.", f.rec.Last().Text)
	assert.Zero(t, f.fake.count("GET /api/models3d/liked/"))
}

func TestUpload(t *testing.T) {
	f := newFixture(t, true)

	_, ok := f.svc.Upload(context.Background(), models.NewModel{Name: "Vase"})
	assert.False(t, ok)
	assert.Equal(t, "Fill in every field and attach at least one file.", f.rec.Last().Text)
	assert.Empty(t, f.fake.Requests())

	stl := filepath.Join(t.TempDir(), "vase.stl")
	require.NoError(t, os.WriteFile(stl, []byte("solid vase"), 0o600))
	f.fake.set("POST /api/models3d/", func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Vase", r.FormValue("name"))
		assert.Equal(t, "A vase", r.FormValue("description"))
		_, _, err := r.FormFile("image")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		body(http.StatusCreated, `{"id": 11, "name": "Vase"}`)(w, r)
	})

	created, ok := f.svc.Upload(context.Background(), models.NewModel{Name: "Vase", Description: "A vase", FilePath: stl})
	require.True(t, ok)
	assert.Equal(t, int64(11), created.ID)
	assert.False(t, f.svc.IsSubmitting())
}

func TestEdit_RunsStepsInOrder(t *testing.T) {
	f := newFixture(t, true)
	img := filepath.Join(t.TempDir(), "front.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))

	f.fake.set("DELETE /api/model-images/3/", body(http.StatusNoContent, ``))
	f.fake.set("DELETE /api/model-files/4/", body(http.StatusNoContent, ``))
	f.fake.set("POST /api/models3d/7/add_image/", body(http.StatusCreated, `{"id": 5}`))
	f.fake.set("PATCH /api/models3d/7/", body(http.StatusOK, modelJSON))

	ok := f.svc.Edit(context.Background(), 7, models.ModelEdit{
		Name:           "Vase v2",
		DeleteImageIDs: []int64{3},
		DeleteFileIDs:  []int64{4},
		AddImagePaths:  []string{img},
	})
	require.True(t, ok)
	assert.Equal(t, []string{
		"DELETE /api/model-images/3/",
		"DELETE /api/model-files/4/",
		"POST /api/models3d/7/add_image/",
		"PATCH /api/models3d/7/",
	}, f.fake.Requests())
	assert.Equal(t, "Model updated successfully!", f.rec.Last().Text)
}

func TestEdit_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, true)
	f.fake.set("DELETE /api/model-images/3/", body(http.StatusNotFound, `{"detail": "Not found."}`))

	assert.False(t, f.svc.Edit(context.Background(), 7, models.ModelEdit{Name: "x", DeleteImageIDs: []int64{3}}))
	assert.Zero(t, f.fake.count("PATCH /api/models3d/7/"))
	assert.Equal(t, "Not found.", f.rec.Last().Text)
}

func TestComments(t *testing.T) {
	f := newFixture(t, true)
	f.fake.set("GET /api/comments/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("model"))
		w.Write([]byte(`[{"id": 1, "user": "ana", "text": "Nice"}]`))
	})
	f.fake.set("POST /api/comments/", body(http.StatusCreated, `{"id": 2, "user": "rui", "text": "Printed it!"}`))

	list, ok := f.svc.Comments(context.Background(), 7)
	require.True(t, ok)
	require.Len(t, list, 1)

	_, ok = f.svc.AddComment(context.Background(), 7, "   ")
	assert.False(t, ok)
	assert.Zero(t, f.fake.count("POST /api/comments/"))

	created, ok := f.svc.AddComment(context.Background(), 7, " Printed it! ")
	require.True(t, ok)
	assert.Equal(t, int64(2), created.ID)

	cached := f.svc.cachedComments(7)
	require.Len(t, cached, 2)
	assert.Equal(t, int64(2), cached[0].ID)
	assert.Equal(t, int64(1), cached[1].ID)
}
