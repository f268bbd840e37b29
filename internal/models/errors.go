package models

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует доменные ошибки для транспортного уровня
type ErrorKind string

// Constants для видов доменных ошибок
const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindState         ErrorKind = "state"
	KindNotFound      ErrorKind = "not_found"
	KindRemote        ErrorKind = "remote"
)

// Constants для кодов доменных ошибок
const (
	CodeStartTooEarly         = "reserve_start_too_early"
	CodeEndTooLate            = "reserve_end_too_late"
	CodePeriodTooLong         = "reserve_period_too_long"
	CodeDateUnavailable       = "reserve_date_unavailable"
	CodeStockInsufficient     = "reserve_stock_insufficient"
	CodeReservationClosed     = "reserve_closed"
	CodeCapacityInsufficient  = "reserve_capacity_insufficient"
	CodeNotOwner              = "reserve_not_owner"
	CodeAdminRequired         = "reserve_admin_required"
	CodeAlreadyCompleted      = "reserve_already_completed"
	CodeAlreadyCancelled      = "reserve_already_cancelled"
	CodeNotRequestStatus      = "reserve_not_request_status"
	CodeStatusChanged         = "reserve_status_changed"
	CodeReservationNotFound   = "reserve_not_found"
	CodeItemNotFound          = "reserve_item_not_found"
	CodeInventoryUpdateFailed = "inventory_update_failed"
	CodeItemLookupFailed      = "item_lookup_failed"
	CodeCategoryMismatch      = "reserve_category_mismatch"
	CodeInvalidPeriod         = "reserve_invalid_period"
)

// ReservationError доменная ошибка конвейера бронирования
type ReservationError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Remaining *int
}

func (e *ReservationError) Error() string {
	if e.Remaining != nil {
		return fmt.Sprintf("%s (remaining: %d)", e.Message, *e.Remaining)
	}
	return e.Message
}

// Is сравнивает доменные ошибки по коду
func (e *ReservationError) Is(target error) bool {
	var t *ReservationError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// AsReservationError извлекает доменную ошибку из цепочки
func AsReservationError(err error) (*ReservationError, bool) {
	var re *ReservationError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func newError(kind ErrorKind, code, message string) *ReservationError {
	return &ReservationError{Kind: kind, Code: code, Message: message}
}

// Sentinel-ошибки. Сравниваются через errors.Is по коду.
var (
	ErrStartTooEarly         = newError(KindValidation, CodeStartTooEarly, "reservation start is before the available window")
	ErrEndTooLate            = newError(KindValidation, CodeEndTooLate, "reservation end is after the available window")
	ErrPeriodTooLong         = newError(KindValidation, CodePeriodTooLong, "reservation period exceeds the allowed number of days")
	ErrDateUnavailable       = newError(KindValidation, CodeDateUnavailable, "requested dates are not available")
	ErrStockInsufficient     = newError(KindValidation, CodeStockInsufficient, "insufficient stock for the requested dates")
	ErrReservationClosed     = newError(KindValidation, CodeReservationClosed, "reservation is closed")
	ErrNotOwner              = newError(KindAuthorization, CodeNotOwner, "reservation does not belong to user")
	ErrAdminRequired         = newError(KindAuthorization, CodeAdminRequired, "administrative role required")
	ErrAlreadyCompleted      = newError(KindState, CodeAlreadyCompleted, "reservation already completed, cannot cancel")
	ErrAlreadyCancelled      = newError(KindState, CodeAlreadyCancelled, "reservation already cancelled")
	ErrNotRequestStatus      = newError(KindState, CodeNotRequestStatus, "reservation can only be changed in REQUEST status")
	ErrStatusChanged         = newError(KindState, CodeStatusChanged, "reservation status was changed by another request")
	ErrReservationNotFound   = newError(KindNotFound, CodeReservationNotFound, "reservation not found")
	ErrItemNotFound          = newError(KindNotFound, CodeItemNotFound, "reserve item not found")
	ErrInventoryUpdateFailed = newError(KindRemote, CodeInventoryUpdateFailed, "inventory update failed")
	ErrItemLookupFailed      = newError(KindRemote, CodeItemLookupFailed, "reserve item lookup failed")
	ErrCategoryMismatch      = newError(KindValidation, CodeCategoryMismatch, "reservation category does not match the item")
	ErrInvalidPeriod         = newError(KindValidation, CodeInvalidPeriod, "end date must not be before start date")
)

// ErrCapacityInsufficient возвращает ошибку нехватки мест с указанием остатка
func ErrCapacityInsufficient(remaining int) *ReservationError {
	return &ReservationError{
		Kind:      KindValidation,
		Code:      CodeCapacityInsufficient,
		Message:   "insufficient remaining capacity",
		Remaining: &remaining,
	}
}
