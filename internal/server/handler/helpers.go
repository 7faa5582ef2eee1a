package handler

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps ledger errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMarketNotInitialized),
		errors.Is(err, domain.ErrPositionNotFound),
		errors.Is(err, domain.ErrUnknownFeed),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMarketExists),
		errors.Is(err, domain.ErrPositionExists),
		errors.Is(err, domain.ErrClaimed),
		errors.Is(err, domain.ErrEntryClosed),
		errors.Is(err, domain.ErrActionTooEarly),
		errors.Is(err, domain.ErrInvalidRoundStatus),
		errors.Is(err, domain.ErrNoReward):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrInsufficientFee):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseAddress validates and parses a hex account address.
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// parseAmount parses a non-negative decimal amount string.
func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// parseRoundID extracts the {round} path parameter.
func parseRoundID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("round"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
