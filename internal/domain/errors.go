package domain

import "errors"

var (
	ErrActionTooEarly       = errors.New("action too early")
	ErrMarketExists         = errors.New("market already exists")
	ErrClaimed              = errors.New("already claimed")
	ErrNoReward             = errors.New("no reward")
	ErrMarketNotInitialized = errors.New("market not initialized")
	ErrEntryClosed          = errors.New("entry closed")
	ErrPositionExists       = errors.New("position already exists")
	ErrPositionNotFound     = errors.New("position not found")
	ErrZeroAmount           = errors.New("amount cannot be zero")
	ErrInsufficientFee      = errors.New("insufficient fee")
	ErrInvalidRoundStatus   = errors.New("invalid round status")
	ErrUnknownFeed          = errors.New("unknown price feed")
	ErrNotFound             = errors.New("not found")
)
