package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/reconcile"
	"bot-reconciler/internal/storage/memory"
)

func fptr(v float64) *float64 { return &v }

func newTestServer(t *testing.T) (*httptest.Server, *memory.TradeStore, *memory.BotStore) {
	t.Helper()

	trades := memory.NewTradeStore()
	paper := memory.NewPaperTradeStore()
	positions := memory.NewPositionStore()
	bots := memory.NewBotStore()
	snapshots := memory.NewAggregateSnapshotStore()

	driver := reconcile.New(reconcile.Options{
		TradeStore:    trades,
		PaperStore:    paper,
		PositionStore: positions,
		BotStore:      bots,
		SnapshotStore: snapshots,
	})

	svc := NewService(driver, bots, snapshots, nil, nil)
	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv, trades, bots
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func TestHandleReconcile(t *testing.T) {
	srv, trades, _ := newTestServer(t)

	require.NoError(t, trades.Insert(context.Background(), &domain.TradeRecord{
		TradeID: "t1", BotID: "bot1", UserID: "user1",
		Status: "closed", Side: "long",
		EntryPrice: 100, ExitPrice: fptr(110), Quantity: 2, Fee: 1,
		ExecutedAt: 1000,
	}))

	resp := postJSON(t, srv.URL+"/api/v1/reconcile", ReconcileRequest{
		BotIDs: []string{"bot1"},
		UserID: "user1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ReconcileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Results, 1)

	res := out.Results[0]
	assert.Equal(t, "bot1", res.BotID)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Aggregate)
	assert.Equal(t, 1, res.Aggregate.TotalTrades)
	assert.Equal(t, 1, res.Aggregate.ClosedTrades)
	assert.Equal(t, 1, res.Aggregate.WinTrades)
	assert.InDelta(t, 19.0, res.Aggregate.RealizedPnL, 1e-9)
	assert.False(t, res.Aggregate.Partial)
}

func TestHandleReconcileEmptyBotIDs(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/reconcile", ReconcileRequest{UserID: "user1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleReconcileBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/reconcile", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleValidateRiskConfig(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/risk-config/validate", ValidateRiskConfigRequest{
		Config: map[string]any{
			"volatility_low":      0.8,
			"min_size_multiplier": -2,
			"unknown_knob":        1,
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ValidateRiskConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.InDelta(t, 0.8, out.Config.VolatilityLow, 1e-9)
	assert.InDelta(t, 0.1, out.Config.MinSizeMultiplier, 1e-9)
	assert.Contains(t, out.RepairedKeys, "min_size_multiplier")
	assert.Contains(t, out.RepairedKeys, "unknown_knob")
}

func TestHandleValidateRiskConfigEmptyBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/risk-config/validate", ValidateRiskConfigRequest{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ValidateRiskConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	// No explicit keys means defaults pass through untouched.
	assert.Equal(t, domain.DefaultRiskEngineConfig(), out.Config)
	assert.Empty(t, out.RepairedKeys)
}

func TestHandleGetSnapshots(t *testing.T) {
	srv, trades, _ := newTestServer(t)

	require.NoError(t, trades.Insert(context.Background(), &domain.TradeRecord{
		TradeID: "t1", BotID: "bot1", UserID: "user1",
		Status: "closed", Side: "long",
		EntryPrice: 100, ExitPrice: fptr(110), Quantity: 2, Fee: 1,
		ExecutedAt: 1000,
	}))

	// Two reconcile runs append two snapshots.
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/v1/reconcile", ReconcileRequest{
			BotIDs: []string{"bot1"}, UserID: "user1",
		})
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/v1/bots/bot1/snapshots")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []SnapshotResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 2)
	assert.Equal(t, "bot1", out[0].BotID)
	assert.InDelta(t, 19.0, out[0].RealizedPnL, 1e-9)

	// As-of query after the last snapshot returns the latest one.
	resp, err = http.Get(srv.URL + "/api/v1/bots/bot1/snapshots?at=" + strconv.FormatInt(out[1].TakenAt+1, 10))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var single SnapshotResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&single))
	assert.Equal(t, "bot1", single.BotID)
	assert.Equal(t, out[1].TakenAt, single.TakenAt)
}

func TestHandleGetSnapshotsBadAt(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/bots/bot1/snapshots?at=yesterday")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetDrift(t *testing.T) {
	srv, trades, _ := newTestServer(t)

	require.NoError(t, trades.Insert(context.Background(), &domain.TradeRecord{
		TradeID: "t1", BotID: "bot1", UserID: "user1",
		Status: "closed", Side: "long",
		EntryPrice: 100, ExitPrice: fptr(110), Quantity: 2, Fee: 1,
		ExecutedAt: 1000,
	}))

	// Unreconciled history shows up as drift.
	resp, err := http.Get(srv.URL + "/api/v1/bots/bot1/drift?user_id=user1")
	require.NoError(t, err)
	var drift struct {
		BotID string `json:"bot_id"`
		Match bool   `json:"match"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&drift))
	resp.Body.Close()
	assert.False(t, drift.Match)

	postJSON(t, srv.URL+"/api/v1/reconcile", ReconcileRequest{
		BotIDs: []string{"bot1"}, UserID: "user1",
	}).Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/bots/bot1/drift?user_id=user1")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&drift))
	resp.Body.Close()
	assert.True(t, drift.Match)
}

func TestHandleGetAggregate(t *testing.T) {
	srv, _, bots := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/bots/nope/aggregate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	last := int64(4200)
	require.NoError(t, bots.UpdateAggregate(context.Background(), &domain.BotAggregate{
		BotID: "bot1", TotalTrades: 3, ClosedTrades: 2, WinTrades: 1, LossTrades: 1,
		RealizedPnL: 7.5, WinRate: 50, LastTradeAt: &last,
	}))

	resp, err = http.Get(srv.URL + "/api/v1/bots/bot1/aggregate")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out AggregateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "bot1", out.BotID)
	assert.Equal(t, 3, out.TotalTrades)
	assert.InDelta(t, 7.5, out.RealizedPnL, 1e-9)
	require.NotNil(t, out.LastTradeAt)
	assert.Equal(t, int64(4200), *out.LastTradeAt)
}
