package domain

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Position is a single stake on one side of a round. There is at most one
// position per (market, round, account) key; Stake and Option are immutable
// after creation and Settled only ever flips false to true.
type Position struct {
	ID       common.Hash    `json:"id"`
	MarketID string         `json:"market_id"`
	RoundID  uint64         `json:"round_id"`
	Account  common.Address `json:"account"`
	Stake    *big.Int       `json:"stake"`
	Option   Side           `json:"option"`
	Settled  bool           `json:"settled"`
}

// PositionKey derives the deterministic identity of a position from its
// (market, round, account) triple.
func PositionKey(marketID string, roundID uint64, account common.Address) common.Hash {
	var rid [8]byte
	binary.BigEndian.PutUint64(rid[:], roundID)
	return crypto.Keccak256Hash([]byte(marketID), rid[:], account.Bytes())
}

// RoundPosition pairs a position with a snapshot of its round, for the
// account-scoped history queries.
type RoundPosition struct {
	Round    Round    `json:"round"`
	Position Position `json:"position"`
}
