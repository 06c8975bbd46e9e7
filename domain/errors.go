package domain

import "errors"

var (
	ErrValidation                 = errors.New("invalid input")
	ErrDuplicateEmail             = errors.New("email already exists")
	ErrNotFound                   = errors.New("user not found")
	ErrInvalidPassword            = errors.New("invalid password")
	ErrNotRegistered              = errors.New("user is not registered in the loyalty program")
	ErrInsufficientPoints         = errors.New("insufficient points")
	ErrOutOfStock                 = errors.New("reward out of stock")
	ErrRewardNotFound             = errors.New("reward not found")
	ErrAlreadyReferred            = errors.New("referral already applied")
	ErrExternalServiceUnavailable = errors.New("external service unavailable")
	ErrChainTxFailed              = errors.New("chain transaction failed")
	ErrChainTxAbandoned           = errors.New("chain transaction abandoned")
	ErrChainTxUnconfirmed         = errors.New("chain transaction not confirmed")
	ErrKeyNotFound                = errors.New("key not found")

	// ErrRewardInactive also matches ErrRewardNotFound: an inactive reward is not redeemable.
	ErrRewardInactive = inactiveRewardError{}
)

type inactiveRewardError struct{}

func (inactiveRewardError) Error() string { return "reward is not active" }

func (inactiveRewardError) Is(target error) bool { return target == ErrRewardNotFound }
