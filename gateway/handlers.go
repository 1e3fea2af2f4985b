package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"relicpool/core/types"
	"relicpool/factory"
	"relicpool/native/staking"
	"relicpool/observability/metrics"
)

type handlers struct {
	factory  *factory.Factory
	eventLog *EventLog
	metrics  *metrics.StakingMetrics
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handlers) resolvePool(w http.ResponseWriter, r *http.Request) (*staking.Engine, bool) {
	addr, err := types.ParseAddress(chi.URLParam(r, "pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	engine, err := h.factory.Pool(addr)
	if err != nil {
		if errors.Is(err, factory.ErrPoolNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			h.metrics.OperationFailure("gateway.resolvePool")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return engine, true
}

func parseDepositor(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := types.ParseAddress(chi.URLParam(r, "depositor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return [20]byte{}, false
	}
	return addr, true
}

func (h *handlers) listPools(w http.ResponseWriter, r *http.Request) {
	pools := h.factory.Pools()
	out := make([]string, 0, len(pools))
	for _, addr := range pools {
		out = append(out, types.FormatAddress(addr))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"pools": out})
}

type poolSummary struct {
	Address       string `json:"address"`
	RewardToken   string `json:"rewardToken"`
	Collection    string `json:"collection"`
	Admin         string `json:"admin"`
	EmissionRate  string `json:"emissionRate"`
	ClaimsEnabled bool   `json:"claimsEnabled"`
	TotalWeight   string `json:"totalWeight"`
}

func (h *handlers) poolSummary(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.resolvePool(w, r)
	if !ok {
		return
	}
	cfg, err := engine.Config()
	if err != nil {
		h.metrics.OperationFailure("gateway.poolSummary")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := engine.TotalStakedWeight()
	if err != nil {
		h.metrics.OperationFailure("gateway.poolSummary")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, poolSummary{
		Address:       types.FormatAddress(engine.PoolAddress()),
		RewardToken:   types.FormatAddress(cfg.RewardToken),
		Collection:    types.FormatAddress(cfg.Collection),
		Admin:         types.FormatAddress(cfg.Admin),
		EmissionRate:  cfg.EmissionRate.String(),
		ClaimsEnabled: cfg.ClaimsEnabled,
		TotalWeight:   total.String(),
	})
}

func (h *handlers) stakedAssets(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.resolvePool(w, r)
	if !ok {
		return
	}
	depositor, ok := parseDepositor(w, r)
	if !ok {
		return
	}
	assets, err := engine.StakedAssets(depositor)
	if err != nil {
		h.metrics.OperationFailure("gateway.stakedAssets")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]string, 0, len(assets))
	for _, id := range assets {
		out = append(out, strconv.FormatUint(id, 10))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"assets": out})
}

func (h *handlers) pendingReward(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.resolvePool(w, r)
	if !ok {
		return
	}
	depositor, ok := parseDepositor(w, r)
	if !ok {
		return
	}
	pending, err := engine.PendingReward(depositor)
	if err != nil {
		h.metrics.OperationFailure("gateway.pendingReward")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pending": pending.String()})
}

func (h *handlers) assetScore(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.resolvePool(w, r)
	if !ok {
		return
	}
	assetID, err := strconv.ParseUint(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	score, err := engine.AssetScore(assetID)
	if err != nil {
		h.metrics.OperationFailure("gateway.assetScore")
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"score": score.String()})
}

func (h *handlers) recentEvents(w http.ResponseWriter, r *http.Request) {
	if h.eventLog == nil {
		writeJSON(w, http.StatusOK, map[string][]*types.Event{"events": {}})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, map[string][]*types.Event{"events": h.eventLog.List(limit)})
}
