package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPositionNotFound indicates that no position exists for the
	// requested (account, fund) pair.
	ErrPositionNotFound = errors.New("position not found")

	// ErrFundNotFound indicates that a fund with the given code is not in
	// the catalogue.
	ErrFundNotFound = errors.New("fund not found")

	// ErrTradeNotFound indicates that a trade with the given ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrSubscriptionNotFound indicates that a subscription with the given
	// ID does not exist.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSettingNotFound indicates that a system setting key has no value.
	ErrSettingNotFound = errors.New("setting not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business
// rules. They are reported before any record is written; no partial state is
// created.
var (
	// ErrNonPositiveAmount indicates that a buy amount was zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")

	// ErrNonPositiveShares indicates that a redeemed share count was zero or negative.
	ErrNonPositiveShares = errors.New("shares must be greater than zero")

	// ErrInsufficientShares indicates that a sell cannot be completed
	// because the position does not hold enough shares.
	ErrInsufficientShares = errors.New("insufficient shares for redemption")

	// ErrInvalidFundCode indicates that a fund code is not a six-digit code.
	ErrInvalidFundCode = errors.New("invalid fund code")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidDigestTime indicates that a digest time is not HH:MM.
	ErrInvalidDigestTime = errors.New("invalid digest time, expected HH:MM")

	// ErrInvalidThreshold indicates threshold signs are inverted
	// (up must be positive, down negative, zero disables).
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// Operation failure errors represent system-level failures when retrieving or
// processing data. These errors indicate that an operation failed, but not due
// to missing entities or validation issues.
var (
	ErrFailedToRetrievePositions     = errors.New("failed to retrieve positions")
	ErrFailedToRetrieveTrades        = errors.New("failed to retrieve trades")
	ErrFailedToRecordTrade           = errors.New("failed to record trade")
	ErrFailedToRetrieveSubscriptions = errors.New("failed to retrieve subscriptions")
	ErrFailedToSaveSubscription      = errors.New("failed to save subscription")
	ErrFailedToRetrieveValuation     = errors.New("failed to retrieve valuation")
	ErrFailedToRetrieveFundHistory   = errors.New("failed to retrieve fund history")
	ErrFailedToSearchFunds           = errors.New("failed to search funds")
)
