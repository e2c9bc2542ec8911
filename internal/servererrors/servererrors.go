// Package servererrors defines the errors handlers return and the HTTP status
// each one is rendered with.
package servererrors

import "errors"

var (
	ErrInvalidRequestPayload = errors.New("invalid request payload")
	ErrValidationFailed      = errors.New("validation failed")
	ErrURLQueryParams        = errors.New("invalid url query params")
	ErrMissingID             = errors.New("id is missing or zero")
	ErrEmptyCart             = errors.New("order has no items")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrDuplicateSubmission   = errors.New("order with this idempotency key was already submitted")
	ErrStoreTimeout          = errors.New("store did not respond in time, retry later")

	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPromoNotFound    = errors.New("promo code not found")

	ErrSlugAlreadyExists  = errors.New("category slug already exists")
	ErrPromoAlreadyExists = errors.New("promo code already exists")
	ErrParentNotFound     = errors.New("parent category not found")
	ErrCategoryCycle      = errors.New("parent would create a category cycle")
	ErrCategoryTooDeep    = errors.New("category tree is too deep")
)

// ServerError is an error that knows the HTTP status it should be rendered
// with. Errors carries optional structured details for the client.
type ServerError struct {
	StatusCode int
	Message    string
	Errors     any
}

func New(statusCode int, message string, errs any) *ServerError {
	return &ServerError{
		StatusCode: statusCode,
		Message:    message,
		Errors:     errs,
	}
}

func (e *ServerError) Error() string {
	return e.Message
}
