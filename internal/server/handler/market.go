package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/internal/domain"
)

// MarketService is the slice of the ledger the market handler needs.
type MarketService interface {
	InitializeMarket(ctx context.Context, feedID string, creator common.Address, attachedFee *big.Int) error
	MarketIDs() []string
	Market(marketID string) (domain.Market, error)
}

// MarketHandler serves market registration and lookup.
type MarketHandler struct {
	svc    MarketService
	logger *slog.Logger
}

func NewMarketHandler(svc MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, logger: logger.With(slog.String("handler", "market"))}
}

type createMarketRequest struct {
	FeedID  string `json:"feed_id"`
	Account string `json:"account"`
	Fee     string `json:"fee"`
}

// Create handles POST /api/markets.
func (h *MarketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FeedID == "" {
		writeError(w, http.StatusBadRequest, "feed_id is required")
		return
	}
	creator, ok := parseAddress(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	fee, ok := parseAmount(req.Fee)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid fee amount")
		return
	}

	if err := h.svc.InitializeMarket(r.Context(), req.FeedID, creator, fee); err != nil {
		h.logger.WarnContext(r.Context(), "market creation rejected",
			slog.String("feed", req.FeedID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	mkt, err := h.svc.Market(req.FeedID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mkt)
}

// List handles GET /api/markets.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.svc.MarketIDs()
	markets := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		mkt, err := h.svc.Market(id)
		if err != nil {
			continue
		}
		markets = append(markets, mkt)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": markets,
		"count":   len(markets),
	})
}

// Get handles GET /api/markets/{id}.
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	mkt, err := h.svc.Market(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mkt)
}
