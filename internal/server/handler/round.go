package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// RoundService exposes round lookup and resolution.
type RoundService interface {
	Round(marketID string, roundID uint64) (domain.Round, error)
	OpenRound(marketID string) (domain.Round, error)
	RoundIDsOf(marketID string, account common.Address) ([]uint64, error)
	Resolve(ctx context.Context, marketID string, roundID uint64, caller common.Address, attachedFee *big.Int) error
}

// RoundHandler serves round state and the resolve operation.
type RoundHandler struct {
	svc    RoundService
	logger *slog.Logger
}

func NewRoundHandler(svc RoundService, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{svc: svc, logger: logger.With(slog.String("handler", "round"))}
}

// Get handles GET /api/markets/{id}/rounds/{round}.
func (h *RoundHandler) Get(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseRoundID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	round, err := h.svc.Round(r.PathValue("id"), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// Current handles GET /api/markets/{id}/rounds/current and returns the round
// currently accepting entries.
func (h *RoundHandler) Current(w http.ResponseWriter, r *http.Request) {
	round, err := h.svc.OpenRound(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// List handles GET /api/markets/{id}/rounds?account=0x.. and lists the
// round ids the account has entered.
func (h *RoundHandler) List(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	ids, err := h.svc.RoundIDsOf(r.PathValue("id"), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"round_ids": ids,
		"count":     len(ids),
	})
}

type resolveRequest struct {
	Account string `json:"account"`
	Fee     string `json:"fee"`
}

// Resolve handles POST /api/markets/{id}/rounds/{round}/resolve.
func (h *RoundHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseRoundID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	fee, ok := parseAmount(req.Fee)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid fee amount")
		return
	}

	marketID := r.PathValue("id")
	if err := h.svc.Resolve(r.Context(), marketID, roundID, caller, fee); err != nil {
		h.logger.WarnContext(r.Context(), "resolve rejected",
			slog.String("market", marketID),
			slog.Uint64("round", roundID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	round, err := h.svc.Round(marketID, roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}
