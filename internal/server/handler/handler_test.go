package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/updownlabs/updown/internal/domain"
	"github.com/updownlabs/updown/internal/engine"
	"github.com/updownlabs/updown/internal/oracle"
)

const (
	testFeed    = "BTC-USD"
	aliceHex    = "0x1111111111111111111111111111111111111111"
	bobHex      = "0x2222222222222222222222222222222222222222"
	resolverHex = "0x4444444444444444444444444444444444444444"
)

// newTestMux wires the handlers onto a mux with the production route
// patterns, backed by a real ledger and a static oracle.
func newTestMux(t *testing.T) (*http.ServeMux, *engine.Engine) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	orc := oracle.NewStatic(big.NewInt(0))
	orc.SetPrice(testFeed, big.NewInt(50_000), 0)

	bank := engine.NewMemBank()
	eng := engine.New(orc, logger, engine.WithBank(bank))

	health := NewHealthHandler()
	markets := NewMarketHandler(eng, logger)
	rounds := NewRoundHandler(eng, logger)
	positions := NewPositionHandler(eng, logger)
	settle := NewSettleHandler(eng, bank, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", health.Health)
	mux.HandleFunc("POST /api/markets", markets.Create)
	mux.HandleFunc("GET /api/markets", markets.List)
	mux.HandleFunc("GET /api/markets/{id}", markets.Get)
	mux.HandleFunc("GET /api/markets/{id}/rounds", rounds.List)
	mux.HandleFunc("GET /api/markets/{id}/rounds/current", rounds.Current)
	mux.HandleFunc("GET /api/markets/{id}/rounds/{round}", rounds.Get)
	mux.HandleFunc("POST /api/markets/{id}/rounds/{round}/resolve", rounds.Resolve)
	mux.HandleFunc("POST /api/markets/{id}/rounds/{round}/bearish", positions.Bearish)
	mux.HandleFunc("POST /api/markets/{id}/rounds/{round}/bullish", positions.Bullish)
	mux.HandleFunc("GET /api/markets/{id}/rounds/{round}/position", positions.Get)
	mux.HandleFunc("GET /api/markets/{id}/positions", positions.History)
	mux.HandleFunc("POST /api/markets/{id}/settle", settle.Settle)
	mux.HandleFunc("GET /api/balances/{account}", settle.Balance)
	mux.HandleFunc("GET /api/treasury", settle.Treasury)
	return mux, eng
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createMarket(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/markets", map[string]any{
		"feed_id": testFeed,
		"account": aliceHex,
		"fee":     "0",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateMarket(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	var mkt domain.Market
	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mkt))
	assert.Equal(t, testFeed, mkt.ID)
	assert.Equal(t, uint64(2), mkt.CurrentRoundID)
}

func TestCreateMarketConflict(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/markets", map[string]any{
		"feed_id": testFeed,
		"account": aliceHex,
		"fee":     "0",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateMarketBadRequest(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/markets", map[string]any{
		"feed_id": testFeed,
		"account": "not-an-address",
		"fee":     "0",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/markets", map[string]any{
		"feed_id": "",
		"account": aliceHex,
		"fee":     "0",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMarketUnknownFeed(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/markets", map[string]any{
		"feed_id": "DOGE-USD",
		"account": aliceHex,
		"fee":     "0",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMarkets(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/markets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Markets []domain.Market `json:"markets"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Markets, 1)
	assert.Equal(t, testFeed, resp.Markets[0].ID)
}

func TestGetRound(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var round domain.Round
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &round))
	assert.Equal(t, uint64(1), round.ID)
	assert.Equal(t, domain.RoundStatusLive, round.Status)

	rec = doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentRound(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var round domain.Round
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &round))
	assert.Equal(t, uint64(2), round.ID)
	assert.Equal(t, domain.RoundStatusOpen, round.Status)
}

func TestPredictEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/2/bullish", map[string]any{
		"account": bobHex,
		"amount":  "400",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var pos domain.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pos))
	assert.Equal(t, domain.SideUp, pos.Option)
	assert.Equal(t, uint64(2), pos.RoundID)

	// One position per account per round.
	rec = doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/2/bearish", map[string]any{
		"account": bobHex,
		"amount":  "100",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Zero stake is a bad request.
	rec = doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/2/bullish", map[string]any{
		"account": aliceHex,
		"amount":  "0",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The live round no longer accepts entries.
	rec = doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/1/bullish", map[string]any{
		"account": aliceHex,
		"amount":  "100",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetPosition(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/2/bullish", map[string]any{
		"account": bobHex,
		"amount":  "400",
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds/2/position?account="+bobHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds/2/position?account="+aliceHex, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoundIDsList(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/2/bullish", map[string]any{
		"account": bobHex,
		"amount":  "400",
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds?account="+bobHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RoundIDs []uint64 `json:"round_ids"`
		Count    int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []uint64{2}, resp.RoundIDs)
	assert.Equal(t, 1, resp.Count)
}

func TestPositionHistory(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/2/bullish", map[string]any{
		"account": bobHex,
		"amount":  "400",
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/positions?account="+bobHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rounds []struct {
			Round    domain.Round    `json:"round"`
			Position domain.Position `json:"position"`
		} `json:"rounds"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, uint64(2), resp.Rounds[0].Round.ID)
	assert.Equal(t, domain.SideUp, resp.Rounds[0].Position.Option)
	assert.Equal(t, "400", resp.Rounds[0].Position.Stake.String())
}

func TestResolveTooEarly(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/rounds/1/resolve", map[string]any{
		"account": resolverHex,
		"fee":     "0",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettleWithoutPosition(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/settle", map[string]any{
		"account":   bobHex,
		"round_ids": []uint64{2},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Empty batch is rejected before touching the ledger.
	rec = doJSON(t, mux, http.MethodPost, "/api/markets/"+testFeed+"/settle", map[string]any{
		"account":   bobHex,
		"round_ids": []uint64{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceAndTreasury(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/balances/"+bobHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"0"`)

	rec = doJSON(t, mux, http.MethodGet, "/api/treasury", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"0"`)
}

func TestHistoryQueryValidation(t *testing.T) {
	mux, _ := newTestMux(t)
	createMarket(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/positions?account=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/positions?account="+bobHex+"&limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/positions?account="+bobHex, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/markets/"+testFeed+"/rounds?account=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
