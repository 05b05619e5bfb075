package types

import (
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/samber/lo"
)

// PriceSource is the tier of the pricing hierarchy that determined an item's
// effective price. Lower Priority value means higher precedence.
type PriceSource string

const (
	// PriceSourceContractFixed is a unit price fixed on the contract item itself
	PriceSourceContractFixed PriceSource = "CONTRACT_FIXED"
	// PriceSourceScheduledChange is an effective scheduled price change
	PriceSourceScheduledChange PriceSource = "SCHEDULED_CHANGE"
	// PriceSourceCustomerAgreement is a customer-specific price list entry
	PriceSourceCustomerAgreement PriceSource = "CUSTOMER_AGREEMENT"
	// PriceSourceListPrice is the standard list price
	PriceSourceListPrice PriceSource = "LIST_PRICE"
)

func (s PriceSource) String() string {
	return string(s)
}

// DiscountScope determines what a discount applies to
type DiscountScope string

const (
	// DiscountScopeLineItem applies to a single contract item's unit price
	DiscountScopeLineItem DiscountScope = "LINE_ITEM"
	// DiscountScopeContract applies to the contract's line totals
	DiscountScopeContract DiscountScope = "CONTRACT"
	// DiscountScopeCategory applies to the unit price of every item in a
	// product category
	DiscountScopeCategory DiscountScope = "CATEGORY"
	// DiscountScopePriceList applies to the unit price of lines priced from
	// the standard list price
	DiscountScopePriceList DiscountScope = "PRICE_LIST"
)

func (s DiscountScope) Validate() error {
	allowed := []DiscountScope{
		DiscountScopeLineItem,
		DiscountScopeContract,
		DiscountScopeCategory,
		DiscountScopePriceList,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid discount scope").
			WithHint("Please provide a valid discount scope").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DiscountValidity determines when a discount applies
type DiscountValidity string

const (
	// DiscountValidityPermanent applies for the contract's whole life
	DiscountValidityPermanent DiscountValidity = "PERMANENT"
	// DiscountValidityTimeLimited applies within the valid_from/valid_to window
	DiscountValidityTimeLimited DiscountValidity = "TIME_LIMITED"
	// DiscountValidityOneTime applies to the single billing period containing
	// its valid_from date
	DiscountValidityOneTime DiscountValidity = "ONE_TIME"
)

func (v DiscountValidity) Validate() error {
	allowed := []DiscountValidity{
		DiscountValidityPermanent,
		DiscountValidityTimeLimited,
		DiscountValidityOneTime,
	}
	if !lo.Contains(allowed, v) {
		return ierr.NewError("invalid discount validity").
			WithHint("Please provide a valid discount validity").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DiscountKind discriminates the typed discount variants
type DiscountKind string

const (
	// DiscountKindPercent reduces the target amount by a percentage
	DiscountKindPercent DiscountKind = "PERCENT"
	// DiscountKindAbsolute reduces the target amount by a fixed amount
	DiscountKindAbsolute DiscountKind = "ABSOLUTE"
	// DiscountKindTiered selects a percent bracket by the item quantity
	DiscountKindTiered DiscountKind = "TIERED"
	// DiscountKindFreeUnits reduces the billable quantity, not the price
	DiscountKindFreeUnits DiscountKind = "FREE_UNITS"
)

func (k DiscountKind) Validate() error {
	allowed := []DiscountKind{
		DiscountKindPercent,
		DiscountKindAbsolute,
		DiscountKindTiered,
		DiscountKindFreeUnits,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid discount kind").
			WithHint("Please provide a valid discount kind").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AdjustmentScope ranks price adjustment rules by specificity.
// Contract-specific rules beat customer-specific rules which beat
// tenant defaults.
type AdjustmentScope string

const (
	AdjustmentScopeContract AdjustmentScope = "CONTRACT"
	AdjustmentScopeCustomer AdjustmentScope = "CUSTOMER"
	AdjustmentScopeTenant   AdjustmentScope = "TENANT"
)

// Specificity returns the precedence rank of the scope; lower wins.
func (s AdjustmentScope) Specificity() int {
	switch s {
	case AdjustmentScopeContract:
		return 0
	case AdjustmentScopeCustomer:
		return 1
	case AdjustmentScopeTenant:
		return 2
	default:
		return 3
	}
}

// ForecastMode selects how projected amounts are attributed to periods
type ForecastMode string

const (
	// ForecastModeBilling attributes a line's full amount to its billing date
	ForecastModeBilling ForecastMode = "BILLING"
	// ForecastModeRecognition spreads a line's amount evenly across the
	// calendar months its service period covers
	ForecastModeRecognition ForecastMode = "RECOGNITION"
)

func (m ForecastMode) Validate() error {
	allowed := []ForecastMode{ForecastModeBilling, ForecastModeRecognition}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid forecast mode").
			WithHint("Please provide a valid forecast mode").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
