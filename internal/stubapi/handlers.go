package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"reciclo/internal/models"
	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const (
	requestTimeout = 10 * time.Second
	maxUploadSize  = 32 << 20
)

// handlers aggregates dependencies needed by HTTP handlers.
type handlers struct {
	backend *Backend
	store   Store
	log     *logger.Logger
}

// newHandlers binds the HTTP handlers to backend and its store.
func newHandlers(backend *Backend, l *logger.Logger) *handlers {
	return &handlers{backend: backend, store: backend.store, log: l}
}

// viewer returns the authenticated user, or 0 for anonymous requests.
func viewer(req *http.Request) int64 {
	id, _ := auth.UserIDFromContext(req.Context())
	return id
}

// idParam parses the {id} route parameter. Malformed ids read as ErrNotFound.
func idParam(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

// decodeJSON decodes the request body into v; malformed JSON is a non-field validation error.
func decodeJSON(req *http.Request, v any) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fieldError(nonFieldErrors, err.Error())
	}
	return nil
}

// formValues reads string fields from a JSON or multipart body.
func formValues(req *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := req.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, fieldError(nonFieldErrors, err.Error())
		}
		out := make(map[string]string, len(req.MultipartForm.Value))
		for k, v := range req.MultipartForm.Value {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out, nil
	}

	out := map[string]string{}
	if req.ContentLength == 0 {
		return out, nil
	}
	if err := decodeJSON(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// formFile returns the name and content of an uploaded file, or "" when the field is absent.
func formFile(req *http.Request, field string) (string, []byte, error) {
	if req.MultipartForm == nil {
		if err := req.ParseMultipartForm(maxUploadSize); err != nil {
			return "", nil, fieldError(field, "The submitted data was not a file.")
		}
	}
	f, header, err := req.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(header.Filename), data, nil
}

func (h *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var creds models.Credentials
	if err := decodeJSON(req, &creds); err != nil {
		h.writeError(res, err)
		return
	}
	token, err := h.backend.Login(ctx, creds)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, models.LoginResponse{Key: token})
}

func (h *handlers) registrationHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var reg models.Registration
	if err := decodeJSON(req, &reg); err != nil {
		h.writeError(res, err)
		return
	}
	token, err := h.backend.Register(ctx, reg)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, models.LoginResponse{Key: token})
}

func (h *handlers) userHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	user, err := h.backend.CurrentUser(ctx, viewer(req))
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, user)
}

func (h *handlers) updateUserHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	fields, err := formValues(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	var imageName string
	if req.MultipartForm != nil {
		if imageName, _, err = formFile(req, "profile_image"); err != nil {
			h.writeError(res, err)
			return
		}
	}
	user, err := h.backend.UpdateProfile(ctx, viewer(req), fields["username"], fields["email"], imageName)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, user)
}

func (h *handlers) dashboardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	dashboard, err := h.backend.Dashboard(ctx, viewer(req))
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, dashboard)
}

// recycleHandler answers validation failures with {"message": ...}, the shape the recycling
// form reads.
func (h *handlers) recycleHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var sub models.RecyclingSubmission
	if err := decodeJSON(req, &sub); err != nil {
		h.writeError(res, err)
		return
	}
	result, err := h.backend.Recycle(ctx, viewer(req), sub)
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		writeJSON(res, http.StatusBadRequest, map[string]string{"message": fieldErr.Message})
		return
	}
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, result)
}

func (h *handlers) listModels(list ModelList) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
		defer cancel()

		found, err := h.store.Models(ctx, viewer(req), ModelFilter{List: list, Search: req.URL.Query().Get("search")})
		if err != nil {
			h.writeError(res, err)
			return
		}
		writeJSON(res, http.StatusOK, paginated(found))
	}
}

type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// paginated wraps a list in the paginated envelope, which the client must unwrap.
func paginated[T any](items []T) page[T] {
	return page[T]{Count: len(items), Results: items}
}

func (h *handlers) modelHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	m, err := h.store.Model(ctx, viewer(req), id)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, m)
}

func (h *handlers) createModelHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	fields, err := formValues(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	fileName, fileData, err := formFile(req, "file")
	if err != nil {
		h.writeError(res, err)
		return
	}
	imageName, _, err := formFile(req, "image")
	if err != nil {
		h.writeError(res, err)
		return
	}
	price := decimal.Zero
	if v := fields["price"]; v != "" {
		if price, err = decimal.NewFromString(v); err != nil {
			h.writeError(res, fieldError("price", "A valid number is required."))
			return
		}
	}

	m, err := h.backend.CreateModel(ctx, viewer(req), NewModelRecord{
		Name:        fields["name"],
		Description: fields["description"],
		Price:       price,
		FileName:    fileName,
		FileData:    fileData,
		ImageName:   imageName,
	})
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, m)
}

func (h *handlers) updateModelHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	fields, err := formValues(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	m, err := h.store.UpdateModel(ctx, viewer(req), id, fields["name"], fields["description"])
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, m)
}

func (h *handlers) deleteModelHandler(res http.ResponseWriter, req *http.Request) {
	h.withID(res, req, func(ctx context.Context, id int64) error {
		return h.store.DeleteModel(ctx, viewer(req), id)
	})
}

func (h *handlers) addImageHandler(res http.ResponseWriter, req *http.Request) {
	h.addAttachment(res, req, "image", func(ctx context.Context, id int64, name string, _ []byte) (any, error) {
		return h.store.AddModelImage(ctx, viewer(req), id, name)
	})
}

func (h *handlers) addFileHandler(res http.ResponseWriter, req *http.Request) {
	h.addAttachment(res, req, "file", func(ctx context.Context, id int64, name string, data []byte) (any, error) {
		return h.store.AddModelFile(ctx, viewer(req), id, name, data)
	})
}

func (h *handlers) addAttachment(res http.ResponseWriter, req *http.Request, field string, add func(context.Context, int64, string, []byte) (any, error)) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	name, data, err := formFile(req, field)
	if err != nil {
		h.writeError(res, err)
		return
	}
	if name == "" {
		h.writeError(res, fieldError(field, "No file was submitted."))
		return
	}
	created, err := add(ctx, id, name, data)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, created)
}

func (h *handlers) deleteImageHandler(res http.ResponseWriter, req *http.Request) {
	h.withID(res, req, func(ctx context.Context, id int64) error {
		return h.store.DeleteModelImage(ctx, viewer(req), id)
	})
}

func (h *handlers) deleteFileHandler(res http.ResponseWriter, req *http.Request) {
	h.withID(res, req, func(ctx context.Context, id int64) error {
		return h.store.DeleteModelFile(ctx, viewer(req), id)
	})
}

// withID runs a bodiless action on the {id} of the route and answers 204.
func (h *handlers) withID(res http.ResponseWriter, req *http.Request, action func(context.Context, int64) error) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	if err := action(ctx, id); err != nil {
		h.writeError(res, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (h *handlers) likeHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	liked, likes, err := h.store.ToggleLike(ctx, viewer(req), id)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, models.ToggleResult{Likes: &likes, IsLiked: &liked})
}

func (h *handlers) saveHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	saved, err := h.store.ToggleSave(ctx, viewer(req), id)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, models.ToggleResult{IsSaved: &saved})
}

func (h *handlers) visibilityHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	var change models.VisibilityChange
	if err := decodeJSON(req, &change); err != nil {
		h.writeError(res, err)
		return
	}
	if err := h.store.SetVisibility(ctx, viewer(req), id, change.IsVisible); err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, change)
}

// downloadHandler streams a zip archive. Errors are sent as application/octet-stream bodies
// holding JSON, like the real server's file responses.
func (h *handlers) downloadHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	name, data, err := h.backend.Archive(ctx, viewer(req), id)
	if err != nil {
		status := http.StatusInternalServerError
		msg := err.Error()
		switch {
		case errors.Is(err, ErrNotFound):
			status, msg = http.StatusNotFound, "Model not found."
		case errors.Is(err, ErrNoFiles):
			status, msg = http.StatusNotFound, "This model has no files to download."
		}
		res.Header().Set("Content-Type", "application/octet-stream")
		res.WriteHeader(status)
		json.NewEncoder(res).Encode(models.ErrorResponse{Error: msg})
		return
	}

	res.Header().Set("Content-Type", "application/zip")
	res.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	res.Header().Set("Content-Length", strconv.Itoa(len(data)))
	res.WriteHeader(http.StatusOK)
	res.Write(data)
}

func (h *handlers) commentsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	modelID, err := strconv.ParseInt(req.URL.Query().Get("model"), 10, 64)
	if err != nil {
		h.writeError(res, fieldError("model", "A valid integer is required."))
		return
	}
	comments, err := h.store.Comments(ctx, modelID)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, comments)
}

func (h *handlers) addCommentHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var c models.NewComment
	if err := decodeJSON(req, &c); err != nil {
		h.writeError(res, err)
		return
	}
	if c.Text == "" {
		h.writeError(res, fieldError("text", "This field may not be blank."))
		return
	}
	created, err := h.store.AddComment(ctx, viewer(req), c.Model, c.Text)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, created)
}

func (h *handlers) usersHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	users, err := h.backend.SearchUsers(ctx, viewer(req), req.URL.Query().Get("search"))
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, users)
}

func (h *handlers) offersHandler(mine bool) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
		defer cancel()

		offers, err := h.store.Offers(ctx, viewer(req), mine)
		if err != nil {
			h.writeError(res, err)
			return
		}
		if mine {
			writeJSON(res, http.StatusOK, offers)
			return
		}
		writeJSON(res, http.StatusOK, paginated(offers))
	}
}

func (h *handlers) createOfferHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var o models.NewOffer
	if err := decodeJSON(req, &o); err != nil {
		h.writeError(res, err)
		return
	}
	created, err := h.backend.CreateOffer(ctx, viewer(req), o)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, created)
}

func (h *handlers) purchaseOfferHandler(res http.ResponseWriter, req *http.Request) {
	h.withIDMessage(res, req, "Purchase completed.", func(ctx context.Context, id int64) error {
		return h.store.PurchaseOffer(ctx, viewer(req), id)
	})
}

func (h *handlers) cancelOfferHandler(res http.ResponseWriter, req *http.Request) {
	h.withIDMessage(res, req, "Offer cancelled.", func(ctx context.Context, id int64) error {
		return h.store.CancelOffer(ctx, viewer(req), id)
	})
}

// withIDMessage runs an action on the {id} of the route and answers {"message": msg}.
func (h *handlers) withIDMessage(res http.ResponseWriter, req *http.Request, msg string, action func(context.Context, int64) error) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	id, err := idParam(req)
	if err != nil {
		h.writeError(res, err)
		return
	}
	if err := action(ctx, id); err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, map[string]string{"message": msg})
}

func (h *handlers) exchangesHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	exchanges, err := h.store.Exchanges(ctx, viewer(req))
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, exchanges)
}

func (h *handlers) createExchangeHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var r models.NewExchangeRequest
	if err := decodeJSON(req, &r); err != nil {
		h.writeError(res, err)
		return
	}
	created, err := h.backend.CreateExchange(ctx, viewer(req), r)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, created)
}

func (h *handlers) respondExchangeHandler(res http.ResponseWriter, req *http.Request) {
	var answer models.ExchangeResponse
	if err := decodeJSON(req, &answer); err != nil {
		h.writeError(res, err)
		return
	}
	msg := "Exchange rejected."
	if answer.Accept {
		msg = "Exchange accepted."
	}
	h.withIDMessage(res, req, msg, func(ctx context.Context, id int64) error {
		return h.store.RespondExchange(ctx, viewer(req), id, answer.Accept)
	})
}

func (h *handlers) cancelExchangeHandler(res http.ResponseWriter, req *http.Request) {
	h.withID(res, req, func(ctx context.Context, id int64) error {
		return h.store.CancelExchange(ctx, viewer(req), id)
	})
}

func (h *handlers) transactionsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	txs, err := h.store.Transactions(ctx, viewer(req))
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, paginated(txs))
}

// writeError translates an error into the body shapes of the real API: field errors as
// {"field": ["message"]}, permission and lookup failures as {"detail": ...}, business rule
// violations as {"error": ...}.
func (h *handlers) writeError(res http.ResponseWriter, err error) {
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		writeJSON(res, http.StatusBadRequest, map[string][]string{fieldErr.Field: {fieldErr.Message}})
	case errors.Is(err, ErrNotFound):
		writeJSON(res, http.StatusNotFound, map[string]string{"detail": "Not found."})
	case errors.Is(err, ErrForbidden):
		writeJSON(res, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
	case errors.Is(err, ErrInsufficientFunds):
		writeErrorResponse(res, "Insufficient balance.", http.StatusBadRequest)
	case errors.Is(err, ErrNotPending):
		writeErrorResponse(res, "This request is no longer open.", http.StatusBadRequest)
	case errors.Is(err, ErrSelfTrade):
		writeErrorResponse(res, "You cannot trade with yourself.", http.StatusBadRequest)
	case errors.Is(err, ErrConflict):
		writeErrorResponse(res, "Already exists.", http.StatusBadRequest)
	default:
		h.log.Sugar().Errorf("Failed to serve request: %s", err)
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a JSON-formatted error response to the HTTP response writer.
func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	writeJSON(res, statusCode, models.ErrorResponse{Error: errorInfo})
}

func writeJSON(res http.ResponseWriter, statusCode int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(v)
}
