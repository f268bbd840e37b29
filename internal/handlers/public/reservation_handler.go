package public

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/egov-portal/reserve-service/internal/auth"
	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ReservationService операции бронирования, используемые обработчиком
type ReservationService interface {
	Create(ctx context.Context, principal models.Principal, req models.CreateReservationRequest) (*models.Reservation, error)
	Get(ctx context.Context, reservationID string) (*models.ReservationDetail, error)
	List(ctx context.Context, filter models.ReservationFilter) (*models.ReservationListResponse, error)
	Update(ctx context.Context, principal models.Principal, reservationID string, req models.UpdateReservationRequest) (*models.Reservation, error)
	Cancel(ctx context.Context, principal models.Principal, reservationID, reason string) error
	Approve(ctx context.Context, principal models.Principal, reservationID string) error
	RemainingInventory(ctx context.Context, itemID int64, start, end time.Time) (*models.InventoryAvailability, error)
}

// ReservationHandler обрабатывает запросы к эндпоинтам бронирования
type ReservationHandler struct {
	reservations ReservationService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReservationHandler создает новый экземпляр ReservationHandler
func NewReservationHandler(reservations ReservationService, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		validator:    validator.New(),
		logger:       logger,
	}
}

// Routes регистрирует маршруты бронирования
func (h *ReservationHandler) Routes(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Put("/{id}/cancel", h.Cancel)
		r.Put("/{id}/approve", h.Approve)
	})
	r.Get("/items/{itemId}/inventories", h.Inventories)
}

// List обрабатывает GET /reservations
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.ReservationFilter{Keyword: query.Get("keyword")}

	if v := query.Get("locationId"); v != "" {
		locationID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid locationId")
			return
		}
		filter.LocationID = &locationID
	}
	if v := query.Get("categoryId"); v != "" {
		category := models.Category(v)
		filter.CategoryID = &category
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid limit")
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid offset")
		return
	}

	response, err := h.reservations.List(r.Context(), filter)
	if err != nil {
		h.handleError(w, err, "Failed to list reservations")
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// Get обрабатывает GET /reservations/{id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.reservations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, "Failed to get reservation")
		return
	}

	h.writeJSON(w, http.StatusOK, detail)
}

// Create обрабатывает POST /reservations
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var request models.CreateReservationRequest
	if !h.decode(w, r, &request) {
		return
	}

	reservation, err := h.reservations.Create(r.Context(), principal, request)
	if err != nil {
		h.handleError(w, err, "Failed to create reservation")
		return
	}

	h.writeJSON(w, http.StatusCreated, reservation)
}

// Update обрабатывает PUT /reservations/{id}
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var request models.UpdateReservationRequest
	if !h.decode(w, r, &request) {
		return
	}

	reservation, err := h.reservations.Update(r.Context(), principal, chi.URLParam(r, "id"), request)
	if err != nil {
		h.handleError(w, err, "Failed to update reservation")
		return
	}

	h.writeJSON(w, http.StatusOK, reservation)
}

// Cancel обрабатывает PUT /reservations/{id}/cancel
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var request models.CancelReservationRequest
	if !h.decode(w, r, &request) {
		return
	}

	if err := h.reservations.Cancel(r.Context(), principal, chi.URLParam(r, "id"), request.Reason); err != nil {
		h.handleError(w, err, "Failed to cancel reservation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Approve обрабатывает PUT /reservations/{id}/approve
func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.reservations.Approve(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err, "Failed to approve reservation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Inventories обрабатывает GET /items/{itemId}/inventories?startDate&endDate
func (h *ReservationHandler) Inventories(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid item ID")
		return
	}

	start, err := dateParam(r.URL.Query().Get("startDate"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid startDate")
		return
	}
	end, err := dateParam(r.URL.Query().Get("endDate"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid endDate")
		return
	}

	availability, err := h.reservations.RemainingInventory(r.Context(), itemID, start, end)
	if err != nil {
		h.handleError(w, err, "Failed to get remaining inventory")
		return
	}

	h.writeJSON(w, http.StatusOK, availability)
}

func (h *ReservationHandler) principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, models.ErrorCodeMissingUserID, "User ID not found in context")
		return models.Principal{}, false
	}
	return principal, true
}

// decode разбирает и валидирует тело запроса
func (h *ReservationHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		details := map[string]interface{}{}
		if errors.As(err, &fieldErrors) {
			fields := make([]models.ValidationFieldError, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				fields = append(fields, models.ValidationFieldError{Field: fe.Field(), Error: fe.Tag()})
			}
			details["fields"] = fields
		}
		h.writeErrorDetails(w, http.StatusBadRequest, models.ErrorCodeValidation, "Request validation failed", details)
		return false
	}

	return true
}

// handleError переводит доменную ошибку в HTTP статус
func (h *ReservationHandler) handleError(w http.ResponseWriter, err error, message string) {
	re, ok := models.AsReservationError(err)
	if !ok {
		h.logger.Error(message, zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, models.ErrorCodeInternalError, message)
		return
	}

	var details map[string]interface{}
	if re.Remaining != nil {
		details = map[string]interface{}{"remaining": *re.Remaining}
	}

	status := StatusForError(re)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err), zap.String("code", re.Code))
	}
	h.writeErrorDetails(w, status, re.Code, re.Error(), details)
}

// StatusForError возвращает HTTP статус для доменной ошибки
func StatusForError(re *models.ReservationError) int {
	switch re.Kind {
	case models.KindValidation:
		switch re.Code {
		case models.CodeDateUnavailable, models.CodeStockInsufficient,
			models.CodeCapacityInsufficient, models.CodeReservationClosed:
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case models.KindAuthorization:
		return http.StatusForbidden
	case models.KindState:
		return http.StatusConflict
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindRemote:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// dateParam принимает дату в формате 2006-01-02 или RFC3339
func dateParam(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// writeJSON отправляет JSON ответ
func (h *ReservationHandler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError отправляет ошибку в JSON формате
func (h *ReservationHandler) writeError(w http.ResponseWriter, statusCode int, errorCode string, message string) {
	h.writeErrorDetails(w, statusCode, errorCode, message, nil)
}

func (h *ReservationHandler) writeErrorDetails(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]interface{}) {
	h.writeJSON(w, statusCode, models.ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}
