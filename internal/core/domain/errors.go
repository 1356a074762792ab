package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrAlreadyPromoted      = errors.New("schedule already promoted to a ticket")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrValidation           = errors.New("validation failed")
)
