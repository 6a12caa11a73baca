package services

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrReceiptRequired = errors.New("a receipt must be uploaded before completing another installment")
	ErrReceiptInUse    = errors.New("receipt backs a completed installment")
)
