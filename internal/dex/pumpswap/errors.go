// =============================
// File: internal/dex/pumpswap/errors.go
// =============================
package pumpswap

import (
	"errors"
)

var (
	ErrPoolNotFound      = errors.New("pool not found")
	ErrPoolExists        = errors.New("pool already exists")
	ErrEmptyReserve      = errors.New("pool reserves must be positive")
	ErrLPAlreadyBurned   = errors.New("lp tokens already burned")
	ErrPoolWithdrawn     = errors.New("pool withdrawn")
	ErrOperationDisabled = errors.New("operation disabled")
)
