package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/allocation"
	"MarketTimeMachine/internal/replay"
	"MarketTimeMachine/internal/session"
)

type errorResponse struct {
	Error     string  `json:"error"`
	Gross     float64 `json:"gross_exposure,omitempty"`
	Ceiling   float64 `json:"ceiling,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var expErr *allocation.ExposureError
	if errors.As(err, &expErr) {
		resp.Gross = expErr.Gross
		resp.Ceiling = expErr.Ceiling
		resp.Tolerance = expErr.Tolerance
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.manager.List()),
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]bool)
	for _, id := range s.cfg.Scenarios {
		seen[id] = true
	}
	if s.catalog != nil {
		stored, err := s.catalog.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("list scenarios: %w", err))
			return
		}
		for _, id := range stored {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": out})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	scenario := mux.Vars(r)["scenario"]
	ds, err := s.datasets.Collect(r.Context(), scenario)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// handleTickers lists the scenario's tickers, filtered by a case-insensitive
// substring in ?q=.
func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	scenario := mux.Vars(r)["scenario"]
	ds, err := s.datasets.Collect(r.Context(), scenario)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	out := []string{}
	for _, t := range ds.Tickers() {
		if q == "" || strings.Contains(strings.ToLower(t), q) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	writeJSON(w, http.StatusOK, map[string]any{"scenario": scenario, "tickers": out})
}

type createSessionRequest struct {
	Scenario string         `json:"scenario"`
	Weights  map[string]int `json:"weights,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Scenario == "" {
		writeError(w, http.StatusBadRequest, errors.New("scenario is required"))
		return
	}
	for ticker, pct := range req.Weights {
		if err := s.checkPercent(pct); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%s: %w", ticker, err))
			return
		}
	}

	sess, err := s.manager.Create(req.Scenario)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for ticker, pct := range req.Weights {
		sess.Alloc.SetWeight(normalizeTicker(ticker), pct)
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.manager.List()
	out := make([]session.View, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.View())
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// lookup resolves {id} or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type weightRequest struct {
	Percent *int `json:"percent"`
}

// normalizeTicker upper-cases tickers the same way the CLI and chat do.
func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func (s *Server) checkPercent(pct int) error {
	if pct < -s.cfg.MaxPercent || pct > s.cfg.MaxPercent {
		return fmt.Errorf("percent %d outside [-%d, %d]", pct, s.cfg.MaxPercent, s.cfg.MaxPercent)
	}
	return nil
}

func (s *Server) handlePutWeight(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ticker := normalizeTicker(mux.Vars(r)["ticker"])

	var req weightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Percent == nil {
		writeError(w, http.StatusBadRequest, errors.New("percent is required"))
		return
	}
	if err := s.checkPercent(*req.Percent); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess.Alloc.SetWeight(ticker, *req.Percent)
	writeJSON(w, http.StatusOK, map[string]any{
		"ticker":         ticker,
		"weight":         sess.Alloc.Weight(ticker),
		"gross_exposure": sess.Alloc.GrossExposure(),
	})
}

func (s *Server) handleExposure(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ceiling, tol := s.cfg.Replay.LeverageCeiling, s.cfg.Replay.ExposureTolerance
	writeJSON(w, http.StatusOK, map[string]any{
		"gross_exposure": sess.Alloc.GrossExposure(),
		"ceiling":        ceiling,
		"tolerance":      tol,
		"ok":             sess.Alloc.CheckExposure(ceiling, tol) == nil,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Start(); err != nil {
		// Both failures leave the replay untouched; the caller must fix
		// the allocation or wait for the dataset.
		if errors.Is(err, allocation.ErrExposureExceeded) || errors.Is(err, replay.ErrNoDataset) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	lines := sess.Journal.Lines()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		if n < len(lines) {
			lines = lines[:n]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
}
