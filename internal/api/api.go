// Package api provides the HTTP handlers for triggering reconciliation,
// validating risk-engine configs, and reading stored aggregates.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/lookup"
	"bot-reconciler/internal/observability"
	"bot-reconciler/internal/reconcile"
	"bot-reconciler/internal/riskcfg"
	"bot-reconciler/internal/storage"
	"bot-reconciler/internal/verification"
)

// Service handles reconciliation HTTP requests.
type Service struct {
	driver    *reconcile.Driver
	bots      storage.BotStore
	snapshots storage.AggregateSnapshotStore // nil when history is disabled
	verifier  *verification.Verifier
	metrics   *observability.Metrics
	log       *zap.Logger
}

// NewService creates a new API service. Snapshots may be nil when the
// history sink is disabled. Metrics defaults to observability.DefaultMetrics
// and the logger to a nop logger.
func NewService(driver *reconcile.Driver, bots storage.BotStore, snapshots storage.AggregateSnapshotStore, metrics *observability.Metrics, log *zap.Logger) *Service {
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		driver:    driver,
		bots:      bots,
		snapshots: snapshots,
		verifier:  verification.NewVerifier(driver, bots),
		metrics:   metrics,
		log:       log,
	}
}

// Routes mounts all API routes on the given router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/reconcile", s.HandleReconcile)
	r.Post("/risk-config/validate", s.HandleValidateRiskConfig)
	r.Get("/bots/{botID}/aggregate", s.HandleGetAggregate)
	r.Get("/bots/{botID}/snapshots", s.HandleGetSnapshots)
	r.Get("/bots/{botID}/drift", s.HandleGetDrift)
}

// --- Request/Response types ---

// ReconcileRequest is the JSON body for POST /api/v1/reconcile.
type ReconcileRequest struct {
	BotIDs []string `json:"bot_ids"`
	// UserID scopes source reads to one owner; empty matches all.
	UserID string `json:"user_id"`
}

// AggregateResponse is the JSON shape of one reconciled bot aggregate.
type AggregateResponse struct {
	BotID        string   `json:"bot_id"`
	TotalTrades  int      `json:"total_trades"`
	ClosedTrades int      `json:"closed_trades"`
	WinTrades    int      `json:"win_trades"`
	LossTrades   int      `json:"loss_trades"`
	RealizedPnL  float64  `json:"realized_pnl"`
	TotalFees    float64  `json:"total_fees"`
	WinRate      float64  `json:"win_rate"`
	PeakEquity   float64  `json:"peak_equity"`
	MaxDrawdown  float64  `json:"max_drawdown"`
	DrawdownPct  float64  `json:"drawdown_pct"`
	LastTradeAt  *int64   `json:"last_trade_at"`
	Partial      bool     `json:"partial"`
	SourceErrors []string `json:"source_errors,omitempty"`
}

// BotResultResponse is one per-bot entry in the reconcile response. Exactly
// one of Aggregate or Error is set.
type BotResultResponse struct {
	BotID     string             `json:"bot_id"`
	Aggregate *AggregateResponse `json:"aggregate,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ReconcileResponse is the JSON body returned from POST /api/v1/reconcile.
type ReconcileResponse struct {
	Results []BotResultResponse `json:"results"`
}

// ValidateRiskConfigRequest is the JSON body for
// POST /api/v1/risk-config/validate. Config carries the partial user config;
// only keys present in it override the defaults.
type ValidateRiskConfigRequest struct {
	Config map[string]any `json:"config"`
}

// ValidateRiskConfigResponse returns the merged config and the keys that
// were repaired or ignored.
type ValidateRiskConfigResponse struct {
	Config       domain.RiskEngineConfig `json:"config"`
	RepairedKeys []string                `json:"repaired_keys"`
}

// --- HTTP Handlers ---

// HandleReconcile handles POST /api/v1/reconcile. Bots are reconciled in
// parallel; per-bot failures are reported inline, never failing the batch.
func (s *Service) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.ReconcileRunsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.BotIDs) == 0 {
		s.metrics.ReconcileRunsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, "bot_ids is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	results := s.driver.Reconcile(r.Context(), req.BotIDs, req.UserID)
	s.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())

	resp := ReconcileResponse{Results: make([]BotResultResponse, 0, len(results))}
	failed := 0
	for _, res := range results {
		entry := BotResultResponse{BotID: res.BotID}
		if res.Err != nil {
			failed++
			entry.Error = res.Err.Error()
		} else {
			entry.Aggregate = toAggregateResponse(res.Aggregate)
		}
		resp.Results = append(resp.Results, entry)
	}

	status := "ok"
	if failed > 0 {
		status = "error"
	} else {
		s.metrics.LastSuccessfulReconcile.SetToCurrentTime()
	}
	s.metrics.ReconcileRunsTotal.WithLabelValues(status).Inc()

	s.log.Info("reconcile run finished",
		zap.Int("bots", len(req.BotIDs)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))

	writeJSON(w, http.StatusOK, resp)
}

// HandleValidateRiskConfig handles POST /api/v1/risk-config/validate.
// Validation never rejects: invalid values are repaired onto the defaults
// and reported in repaired_keys.
func (s *Service) HandleValidateRiskConfig(w http.ResponseWriter, r *http.Request) {
	var req ValidateRiskConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cfg, repaired := riskcfg.Validate(req.Config, domain.DefaultRiskEngineConfig())

	s.metrics.RiskConfigsValidated.Inc()
	s.metrics.RiskKeysRepaired.Add(float64(len(repaired)))
	if repaired == nil {
		repaired = []string{}
	}

	writeJSON(w, http.StatusOK, ValidateRiskConfigResponse{
		Config:       cfg,
		RepairedKeys: repaired,
	})
}

// HandleGetAggregate handles GET /api/v1/bots/{botID}/aggregate.
func (s *Service) HandleGetAggregate(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")

	agg, err := s.bots.GetAggregate(r.Context(), botID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, "no aggregate for bot: "+botID, http.StatusNotFound)
			return
		}
		s.log.Error("load aggregate failed", zap.String("bot_id", botID), zap.Error(err))
		writeError(w, "failed to load aggregate", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toAggregateResponse(agg))
}

// SnapshotResponse is the JSON shape of one aggregate snapshot.
type SnapshotResponse struct {
	SnapshotID   string  `json:"snapshot_id"`
	BotID        string  `json:"bot_id"`
	TakenAt      int64   `json:"taken_at"`
	TotalTrades  int     `json:"total_trades"`
	ClosedTrades int     `json:"closed_trades"`
	WinTrades    int     `json:"win_trades"`
	LossTrades   int     `json:"loss_trades"`
	RealizedPnL  float64 `json:"realized_pnl"`
	TotalFees    float64 `json:"total_fees"`
	WinRate      float64 `json:"win_rate"`
	PeakEquity   float64 `json:"peak_equity"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	DrawdownPct  float64 `json:"drawdown_pct"`
}

// HandleGetSnapshots handles GET /api/v1/bots/{botID}/snapshots. With an
// `at` query parameter (unix ms) it returns the single snapshot in effect
// at that time; otherwise the full history ordered by taken_at ASC.
func (s *Service) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, "snapshot history is not enabled", http.StatusNotFound)
		return
	}
	botID := chi.URLParam(r, "botID")

	snaps, err := s.snapshots.GetByBot(r.Context(), botID)
	if err != nil {
		s.log.Error("load snapshots failed", zap.String("bot_id", botID), zap.Error(err))
		writeError(w, "failed to load snapshots", http.StatusInternalServerError)
		return
	}

	if at := r.URL.Query().Get("at"); at != "" {
		target, err := strconv.ParseInt(at, 10, 64)
		if err != nil {
			writeError(w, "at must be a unix millisecond timestamp", http.StatusBadRequest)
			return
		}
		snap, err := lookup.SnapshotAt(target, snaps)
		if err != nil {
			writeError(w, "no snapshots for bot: "+botID, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toSnapshotResponse(snap))
		return
	}

	out := make([]SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, toSnapshotResponse(snap))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetDrift handles GET /api/v1/bots/{botID}/drift. It recomputes the
// bot's aggregate from history without persisting and reports field-level
// divergences against the stored row.
func (s *Service) HandleGetDrift(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")
	userID := r.URL.Query().Get("user_id")

	res, err := s.verifier.VerifyBot(r.Context(), botID, userID)
	if err != nil {
		s.log.Error("drift check failed", zap.String("bot_id", botID), zap.Error(err))
		writeError(w, "drift check failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func toSnapshotResponse(s *domain.AggregateSnapshot) SnapshotResponse {
	return SnapshotResponse{
		SnapshotID:   s.SnapshotID,
		BotID:        s.BotID,
		TakenAt:      s.TakenAt,
		TotalTrades:  s.TotalTrades,
		ClosedTrades: s.ClosedTrades,
		WinTrades:    s.WinTrades,
		LossTrades:   s.LossTrades,
		RealizedPnL:  s.RealizedPnL,
		TotalFees:    s.TotalFees,
		WinRate:      s.WinRate,
		PeakEquity:   s.PeakEquity,
		MaxDrawdown:  s.MaxDrawdown,
		DrawdownPct:  s.DrawdownPct,
	}
}

func toAggregateResponse(agg *domain.BotAggregate) *AggregateResponse {
	return &AggregateResponse{
		BotID:        agg.BotID,
		TotalTrades:  agg.TotalTrades,
		ClosedTrades: agg.ClosedTrades,
		WinTrades:    agg.WinTrades,
		LossTrades:   agg.LossTrades,
		RealizedPnL:  agg.RealizedPnL,
		TotalFees:    agg.TotalFees,
		WinRate:      agg.WinRate,
		PeakEquity:   agg.PeakEquity,
		MaxDrawdown:  agg.MaxDrawdown,
		DrawdownPct:  agg.DrawdownPct,
		LastTradeAt:  agg.LastTradeAt,
		Partial:      agg.Partial,
		SourceErrors: agg.SourceErrors,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
