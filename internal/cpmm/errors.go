package cpmm

import "errors"

var (
	// ErrNotFound means a required account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrWrongOwner means the pool account is not owned by the CP-Swap program.
	ErrWrongOwner = errors.New("account owner mismatch")

	// ErrMalformedAccount means account data is too short or otherwise undecodable.
	ErrMalformedAccount = errors.New("malformed account data")

	// ErrIlliquidPool means one of the pool reserves is zero.
	ErrIlliquidPool = errors.New("pool has no liquidity")

	// ErrInvalidPool means the requested mint is not one of the pool's mints.
	ErrInvalidPool = errors.New("mint does not belong to pool")
)
