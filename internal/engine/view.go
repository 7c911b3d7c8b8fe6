package engine

import (
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// saturated reports whether a must graduate: the goal is met, the curve is
// sold out, or not even one more unit fits under the goal.
func saturated(a *domain.Asset) (bool, error) {
	if a.GoalReached() || !a.CirculatingSold.LessThan(a.Curve.Cap) {
		return true, nil
	}
	next, err := fixedpoint.Add(a.CirculatingSold, fixedpoint.FromUint64(1))
	if err != nil {
		return false, err
	}
	unit, err := a.Curve.Integral(a.CirculatingSold, next)
	if err != nil {
		return false, err
	}
	after, err := fixedpoint.Add(a.FundingRaised, unit)
	if err != nil {
		return false, err
	}
	return after.GreaterThan(a.FundingGoal), nil
}

func newView(a *domain.Asset) (domain.AssetView, error) {
	price, err := a.Curve.PriceAt(a.CirculatingSold)
	if err != nil {
		return domain.AssetView{}, err
	}
	supply, err := fixedpoint.Add(a.InitialAllocation, a.CirculatingSold)
	if err != nil {
		return domain.AssetView{}, err
	}
	if a.Migration != nil {
		if supply, err = fixedpoint.Add(supply, a.Migration.TokenAmount); err != nil {
			return domain.AssetView{}, err
		}
	}

	var progress uint64
	if !a.FundingGoal.IsZero() {
		bps, err := fixedpoint.MulDiv(a.FundingRaised, fixedpoint.FromUint64(curve.BasisPoints), a.FundingGoal)
		if err != nil {
			return domain.AssetView{}, err
		}
		progress, _ = bps.Uint64()
	}
	if a.Graduated {
		progress = curve.BasisPoints
	}

	return domain.AssetView{
		Asset:        a,
		CurrentPrice: price,
		TotalSupply:  supply,
		ProgressBps:  progress,
	}, nil
}
