package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/shortcode"
)

// retryAfterSeconds is advertised to clients on errors that are expected to clear up.
const retryAfterSeconds = "1"

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error)
	GetURL(ctx context.Context, shortCode string) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	DeactivateURL(ctx context.Context, shortCode string) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type urlHandler struct {
	useCase  urlUseCase
	validate *validator.Validate
	baseURL  string
	now      func() time.Time
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate, baseURL string) *urlHandler {
	return &urlHandler{
		useCase:  useCase,
		validate: validate,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// isRetryable reports whether err comes from a transient server-side condition
// rather than from the request itself.
func isRetryable(err error) bool {
	return errors.Is(err, shortcode.ErrAttemptsExhausted) ||
		errors.Is(err, shortcode.ErrGenerationFailed) ||
		errors.Is(err, entity.ErrShortCodeExists) ||
		errors.Is(err, entity.ErrStoreUnavailable)
}

func (h *urlHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
	case isRetryable(err):
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		w.Header().Set("Retry-After", retryAfterSeconds)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, serviceUnavailableResponse)
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
	}
}

// decodeURLRequest reads and validates the request body. On failure the error response
// has already been written and false is returned.
func (h *urlHandler) decodeURLRequest(w http.ResponseWriter, r *http.Request) (urlRequest, bool) {
	var req urlRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return req, false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return req, false
	}

	req.URL = strings.TrimSpace(req.URL)

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err, "url"))
		return req, false
	}

	return req, true
}

// validateShortCode rejects requests whose shortCode path parameter is missing or malformed
// before they reach the use case.
func (h *urlHandler) validateShortCode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if err := h.validate.Var(shortCode, "required,"+tagShortCode); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, validationErrorResponse(err, "short_code"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLRequest(w, r)
	if !ok {
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.URL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toURLResponse(url, h.baseURL))
}

func (h *urlHandler) getURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.GetURL(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLResponse(url, h.baseURL))
}

func (h *urlHandler) modifyURL(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLRequest(w, r)
	if !ok {
		return
	}

	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.ModifyURL(r.Context(), shortCode, req.URL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLResponse(url, h.baseURL))
}

func (h *urlHandler) deactivateURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if err := h.useCase.DeactivateURL(r.Context(), shortCode); err != nil {
		h.renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.GetURL(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLStatsResponse(url, h.baseURL, h.now()))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

type healthHandler struct {
	db        pinger
	startedAt time.Time
}

func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startedAt).Seconds(),
	}

	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			resp.Status = "unavailable"
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, resp)
			return
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}
