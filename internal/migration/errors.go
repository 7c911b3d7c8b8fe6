// =============================
// File: internal/migration/errors.go
// =============================
package migration

import (
	"fmt"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// Stage names the market call that failed.
type Stage string

const (
	StageCreatePool Stage = "create_pool"
	StageBurnLP     Stage = "burn_lp"
)

// DepositError reports a market failure during migration. It matches
// domain.ErrExternalDepositFailed with errors.Is and unwraps to the cause.
type DepositError struct {
	AssetID domain.AssetID
	Stage   Stage
	Err     error
}

func (e *DepositError) Error() string {
	return fmt.Sprintf("external deposit failed for asset %d at %s: %v", e.AssetID, e.Stage, e.Err)
}

func (e *DepositError) Unwrap() error {
	return e.Err
}

func (e *DepositError) Is(target error) bool {
	return target == domain.ErrExternalDepositFailed
}
