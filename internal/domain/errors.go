// =============================
// File: internal/domain/errors.go
// =============================
package domain

import (
	"errors"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// Rejection reasons. Every one of them means the operation left state untouched.
var (
	ErrNotFound              = errors.New("asset not found")
	ErrAlreadyGraduated      = errors.New("asset already graduated")
	ErrOutOfRange            = curve.ErrOutOfRange
	ErrArithmeticOverflow    = fixedpoint.ErrArithmeticOverflow
	ErrUnderflow             = fixedpoint.ErrUnderflow
	ErrInsufficientFee       = errors.New("insufficient creation fee")
	ErrInsufficientPayment   = errors.New("insufficient payment")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrUnderfunded           = errors.New("funding pool underfunded")
	ErrExternalDepositFailed = errors.New("external deposit failed")
	ErrGoalNotReached        = errors.New("funding goal not reached")
	ErrGoalUnreachable       = curve.ErrGoalUnreachable
	ErrInvalidMetadata       = errors.New("invalid metadata")
	ErrInvalidAmount         = fixedpoint.ErrInvalidAmount
	ErrInvalidAddress        = errors.New("invalid address")
	ErrMigrationInProgress   = errors.New("migration in progress")
	ErrReadOnly              = errors.New("read-only transaction")
)

// Kind is a stable, transport-friendly name for an error.
type Kind string

const (
	KindNotFound              Kind = "NotFound"
	KindAlreadyGraduated      Kind = "AlreadyGraduated"
	KindOutOfRange            Kind = "OutOfRange"
	KindArithmeticOverflow    Kind = "ArithmeticOverflow"
	KindUnderflow             Kind = "Underflow"
	KindInsufficientFee       Kind = "InsufficientFee"
	KindInsufficientPayment   Kind = "InsufficientPayment"
	KindInsufficientBalance   Kind = "InsufficientBalance"
	KindUnderfunded           Kind = "Underfunded"
	KindExternalDepositFailed Kind = "ExternalDepositFailed"
	KindGoalNotReached        Kind = "GoalNotReached"
	KindGoalUnreachable       Kind = "GoalUnreachable"
	KindInvalidMetadata       Kind = "InvalidMetadata"
	KindInvalidAmount         Kind = "InvalidAmount"
	KindInvalidAddress        Kind = "InvalidAddress"
	KindInternal              Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	// graduated and in-flight migrations are the same rejection to callers
	{ErrAlreadyGraduated, KindAlreadyGraduated},
	{ErrMigrationInProgress, KindAlreadyGraduated},
	{ErrExternalDepositFailed, KindExternalDepositFailed},
	{ErrInsufficientFee, KindInsufficientFee},
	{ErrInsufficientPayment, KindInsufficientPayment},
	{ErrInsufficientBalance, KindInsufficientBalance},
	{ErrUnderfunded, KindUnderfunded},
	{ErrGoalNotReached, KindGoalNotReached},
	{ErrGoalUnreachable, KindGoalUnreachable},
	{ErrInvalidMetadata, KindInvalidMetadata},
	{ErrOutOfRange, KindOutOfRange},
	{ErrArithmeticOverflow, KindArithmeticOverflow},
	{ErrUnderflow, KindUnderflow},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidAddress, KindInvalidAddress},
}

// KindOf maps err (possibly wrapped) to its Kind.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
