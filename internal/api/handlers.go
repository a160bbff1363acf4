package api

import (
	"errors"
	"log/slog"
	"net/http"

	"home_compare/internal/lib/logger/sl"
	minio "home_compare/internal/lib/minio/core"
	"home_compare/internal/services/address"
	"home_compare/internal/services/extraction"
	"home_compare/internal/services/preferences"
	"home_compare/internal/services/property"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler — обработчики REST API.
type Handler struct {
	log         *slog.Logger
	properties  PropertyService
	addresses   AddressService
	preferences PreferenceService
	extraction  ExtractionService
}

func NewHandler(
	log *slog.Logger,
	properties PropertyService,
	addresses AddressService,
	preferences PreferenceService,
	extraction ExtractionService,
) *Handler {
	return &Handler{
		log:         log,
		properties:  properties,
		addresses:   addresses,
		preferences: preferences,
		extraction:  extraction,
	}
}

// currentUser достаёт пользователя, установленный Authenticator.Middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id format"))
		return uuid.Nil, false
	}
	return id, true
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, property.ErrPropertyNotFound),
		errors.Is(err, address.ErrAddressNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, property.ErrInvalidProperty),
		errors.Is(err, address.ErrInvalidLabel),
		errors.Is(err, address.ErrInvalidAddress),
		errors.Is(err, preferences.ErrInvalidProfileType),
		errors.Is(err, extraction.ErrInvalidURL),
		errors.Is(err, extraction.ErrForbiddenHost):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, property.ErrFeatureRequiresSubscription):
		writeJSON(w, http.StatusForbidden, errorBody("feature requires an active subscription"))
	case errors.Is(err, extraction.ErrNoListingData):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("no listing data found on page"))
	case errors.Is(err, extraction.ErrFetchFailed):
		writeJSON(w, http.StatusBadGateway, errorBody("failed to fetch listing page"))
	case errors.Is(err, property.ErrAIUnavailable),
		errors.Is(err, minio.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("service unavailable"))
	default:
		h.log.Error(msg,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// badRequest отвечает 400 на некорректное тело запроса.
func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
