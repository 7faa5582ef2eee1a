package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// SettleService covers claim settlement and balance queries.
type SettleService interface {
	Settle(ctx context.Context, marketID string, account common.Address, roundIDs []uint64) (*big.Int, error)
	TreasuryBalance() *big.Int
}

// BalanceReader reports credited winnings per account.
type BalanceReader interface {
	BalanceOf(account common.Address) *big.Int
}

// SettleHandler serves claim settlement, balances and the treasury.
type SettleHandler struct {
	svc      SettleService
	balances BalanceReader
	logger   *slog.Logger
}

func NewSettleHandler(svc SettleService, balances BalanceReader, logger *slog.Logger) *SettleHandler {
	return &SettleHandler{svc: svc, balances: balances, logger: logger.With(slog.String("handler", "settle"))}
}

type settleRequest struct {
	Account  string   `json:"account"`
	RoundIDs []uint64 `json:"round_ids"`
}

// Settle handles POST /api/markets/{id}/settle.
func (h *SettleHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	if len(req.RoundIDs) == 0 {
		writeError(w, http.StatusBadRequest, "round_ids is required")
		return
	}

	marketID := r.PathValue("id")
	total, err := h.svc.Settle(r.Context(), marketID, account, req.RoundIDs)
	if err != nil {
		h.logger.WarnContext(r.Context(), "settle rejected",
			slog.String("market", marketID),
			slog.String("account", account.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":   account.Hex(),
		"round_ids": req.RoundIDs,
		"paid":      total.String(),
	})
}

// Balance handles GET /api/balances/{account}.
func (h *SettleHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.PathValue("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": account.Hex(),
		"balance": h.balances.BalanceOf(account).String(),
	})
}

// Treasury handles GET /api/treasury.
func (h *SettleHandler) Treasury(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"balance": h.svc.TreasuryBalance().String(),
	})
}
