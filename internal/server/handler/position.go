package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// PositionService covers entering and inspecting positions.
type PositionService interface {
	Bearish(ctx context.Context, marketID string, roundID uint64, account common.Address, stake *big.Int) error
	Bullish(ctx context.Context, marketID string, roundID uint64, account common.Address, stake *big.Int) error
	Position(marketID string, roundID uint64, account common.Address) (domain.Position, error)
	LatestRoundsWithPosition(marketID string, account common.Address, n int) ([]domain.RoundPosition, error)
}

// PositionHandler serves bearish/bullish entries and position lookups.
type PositionHandler struct {
	svc    PositionService
	logger *slog.Logger
}

func NewPositionHandler(svc PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{svc: svc, logger: logger.With(slog.String("handler", "position"))}
}

type predictRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// Bearish handles POST /api/markets/{id}/rounds/{round}/bearish.
func (h *PositionHandler) Bearish(w http.ResponseWriter, r *http.Request) {
	h.predict(w, r, h.svc.Bearish)
}

// Bullish handles POST /api/markets/{id}/rounds/{round}/bullish.
func (h *PositionHandler) Bullish(w http.ResponseWriter, r *http.Request) {
	h.predict(w, r, h.svc.Bullish)
}

func (h *PositionHandler) predict(w http.ResponseWriter, r *http.Request, enter func(context.Context, string, uint64, common.Address, *big.Int) error) {
	roundID, ok := parseRoundID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	stake, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid stake amount")
		return
	}

	marketID := r.PathValue("id")
	if err := enter(r.Context(), marketID, roundID, account, stake); err != nil {
		h.logger.WarnContext(r.Context(), "entry rejected",
			slog.String("market", marketID),
			slog.Uint64("round", roundID),
			slog.String("account", account.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	pos, err := h.svc.Position(marketID, roundID, account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

// Get handles GET /api/markets/{id}/rounds/{round}/position?account=0x...
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	roundID, ok := parseRoundID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	pos, err := h.svc.Position(r.PathValue("id"), roundID, account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// History handles GET /api/markets/{id}/positions?account=0x..&limit=n and
// returns the account's most recent rounds together with its positions.
func (h *PositionHandler) History(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	history, err := h.svc.LatestRoundsWithPosition(r.PathValue("id"), account, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rounds": history,
		"count":  len(history),
	})
}
