package models

import "time"

// CreateReservationRequest представляет запрос POST /reservations
type CreateReservationRequest struct {
	ItemID           int64     `json:"reserve_item_id" validate:"required,gt=0"`
	LocationID       int64     `json:"location_id" validate:"omitempty,gte=0"`
	Quantity         int       `json:"reserve_qty" validate:"required,min=1"`
	Purpose          string    `json:"reserve_purpose_content" validate:"max=4000"`
	AttachmentCode   string    `json:"attachment_code,omitempty" validate:"max=255"`
	StartDate        time.Time `json:"reserve_start_date" validate:"required"`
	EndDate          time.Time `json:"reserve_end_date" validate:"required,gtefield=StartDate"`
	RequesterContact string    `json:"user_contact_no,omitempty" validate:"max=50"`
	RequesterEmail   string    `json:"user_email,omitempty" validate:"omitempty,email"`
}

// UpdateReservationRequest представляет запрос PUT /reservations/{id}
type UpdateReservationRequest struct {
	Quantity         int       `json:"reserve_qty" validate:"required,min=1"`
	Purpose          string    `json:"reserve_purpose_content" validate:"max=4000"`
	AttachmentCode   string    `json:"attachment_code,omitempty" validate:"max=255"`
	StartDate        time.Time `json:"reserve_start_date" validate:"required"`
	EndDate          time.Time `json:"reserve_end_date" validate:"required,gtefield=StartDate"`
	RequesterContact string    `json:"user_contact_no,omitempty" validate:"max=50"`
	RequesterEmail   string    `json:"user_email,omitempty" validate:"omitempty,email"`
}

// CancelReservationRequest представляет запрос PUT /reservations/{id}/cancel
type CancelReservationRequest struct {
	Reason string `json:"reasonCancelContent" validate:"required,max=4000"`
}

// ReservationListResponse представляет ответ GET /reservations
type ReservationListResponse struct {
	Items      []Reservation  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginationInfo представляет информацию о пагинации
type PaginationInfo struct {
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
}

// ErrorResponse представляет стандартный ответ с ошибкой
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationFieldError представляет ошибку валидации поля
type ValidationFieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Constants для ошибок транспортного уровня
const (
	ErrorCodeValidation     = "validation_error"
	ErrorCodeMissingToken   = "missing_token"
	ErrorCodeInvalidToken   = "invalid_token_format"
	ErrorCodeTokenSignature = "invalid_token_signature"
	ErrorCodeTokenRevoked   = "token_revoked"
	ErrorCodeMissingUserID  = "missing_user_id"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeBadRequest     = "bad_request"
	ErrorCodeInternalError  = "internal_error"
)
