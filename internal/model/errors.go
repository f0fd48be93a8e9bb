package model

import (
	"errors"
)

// Engine error taxonomy. Business-rule errors are returned synchronously and
// leave no state mutated. ErrStorage means the caller cannot assume the
// operation applied and must retry the whole call.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrTradeNotFound      = errors.New("trade not found")
	ErrNotOwner           = errors.New("account does not belong to principal")
	ErrAccountBreached    = errors.New("account is breached, trading disabled")
	ErrInsufficientMargin = errors.New("insufficient free margin")
	ErrTradeAlreadyClosed = errors.New("trade already closed")
	ErrValidation         = errors.New("invalid request")
	ErrStorage            = errors.New("storage unavailable")
)
