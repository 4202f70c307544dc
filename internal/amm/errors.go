package amm

import "errors"

var (
	ErrPoolInactive        = errors.New("no active pool")
	ErrZeroDeposit         = errors.New("zero deposit")
	ErrZeroAmount          = errors.New("zero amount")
	ErrInsufficientOutput  = errors.New("insufficient output amount")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrSlippageExceeded    = errors.New("slippage exceeded")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrCollaboratorFailure = errors.New("collaborator failure")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrInvalidFee          = errors.New("invalid fee rate")
	ErrSameAsset           = errors.New("assets must differ")
)
