package service

import (
	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/core/domain"
)

// StaticFeeEstimator implements ports.FeeEstimator from configured network
// constants. Estimates are pure: the same inputs always price the same.
type StaticFeeEstimator struct {
	baseFee          int64
	rentExemption    int64
	tokenAccountRent int64
}

// NewFeeEstimator creates a fee estimator from chain config.
func NewFeeEstimator(cfg config.ChainConfig) *StaticFeeEstimator {
	return &StaticFeeEstimator{
		baseFee:          cfg.BaseFee,
		rentExemption:    cfg.RentExemption,
		tokenAccountRent: cfg.TokenAccountRent,
	}
}

// Estimate itemizes the settlement cost. Rent exemption applies when the
// recipient account must be created or topped up; token sub-account rent
// applies only to non-native assets.
func (e *StaticFeeEstimator) Estimate(needsAccountCreation bool, needsTokenAccount bool, asset domain.Asset) domain.FeeBreakdown {
	fee := domain.FeeBreakdown{BaseFee: e.baseFee}
	if needsAccountCreation {
		fee.RentExemption = e.rentExemption
	}
	if needsTokenAccount && !asset.IsNative() {
		fee.TokenAccountRent = e.tokenAccountRent
	}
	fee.Total = fee.BaseFee + fee.RentExemption + fee.TokenAccountRent
	return fee
}
