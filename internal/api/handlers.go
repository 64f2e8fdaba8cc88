package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/provablyhq/casino-engine/internal/games"
	"github.com/provablyhq/casino-engine/internal/seeds"
	"github.com/provablyhq/casino-engine/internal/session"
	"github.com/provablyhq/casino-engine/internal/store"
	"github.com/provablyhq/casino-engine/internal/wallet"
)

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	ids := games.List()
	out := make([]GameInfo, 0, len(ids))
	for _, id := range ids {
		g, _ := games.Get(id)
		out = append(out, gameInfo(g))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"games":          out,
		"engine_version": EngineVersion,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "game")
	g, ok := games.Get(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, ErrTypeGameNotFound, "unknown game", map[string]any{"game": id})
		return
	}
	s.writeJSON(w, http.StatusOK, gameInfo(g))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if !req.Bet.IsPositive() {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "bet must be positive", nil)
		return
	}

	game := chi.URLParam(r, "game")
	res, err := s.sessions.Play(r.Context(), userID(r), game, req.Currency, req.Bet, req.Params)
	if err != nil {
		s.writeSessionError(w, r, game, err)
		return
	}
	s.writeJSON(w, http.StatusOK, roundResponse(res))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}
	if req.Action == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "missing action", nil)
		return
	}

	game := chi.URLParam(r, "game")
	res, err := s.sessions.Action(r.Context(), userID(r), game, req.Action, req.Params)
	if err != nil {
		s.writeSessionError(w, r, game, err)
		return
	}
	s.writeJSON(w, http.StatusOK, roundResponse(res))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	res, err := s.sessions.Resume(r.Context(), userID(r), game)
	if err != nil {
		s.writeSessionError(w, r, game, err)
		return
	}
	s.writeJSON(w, http.StatusOK, roundResponse(res))
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.sessions.Round(r.Context(), userID(r), chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sanitizeRound(round))
}

func (s *Server) handleFairness(w http.ResponseWriter, r *http.Request) {
	rep, err := s.sessions.Fairness(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, FairnessResponse{FairnessReport: rep, EngineVersion: EngineVersion})
}

func (s *Server) handleCurrentSeed(w http.ResponseWriter, r *http.Request) {
	p, err := s.seeds.Current(r.Context(), userID(r))
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, seedResponse(p))
}

func (s *Server) handleSetClientSeed(w http.ResponseWriter, r *http.Request) {
	var req ClientSeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}
	p, err := s.seeds.SetClientSeed(r.Context(), userID(r), req.ClientSeed)
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, seedResponse(p))
}

func (s *Server) handleRotateSeed(w http.ResponseWriter, r *http.Request) {
	var req RotateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", map[string]any{"error": err.Error()})
			return
		}
	}
	revealed, next, err := s.seeds.Rotate(r.Context(), userID(r), req.ClientSeed)
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, RotateResponse{
		Revealed: seedResponse(revealed),
		Next:     seedResponse(next),
	})
}

func (s *Server) handleRevealSeed(w http.ResponseWriter, r *http.Request) {
	p, err := s.seeds.Reveal(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, seedResponse(p))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.wallet.GetOrCreate(r.Context(), userID(r), chi.URLParam(r, "currency"))
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, WalletResponse{Currency: wal.Currency, Balance: wal.Balance})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}
	if req.Reference == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "missing idempotency reference", nil)
		return
	}
	if !req.Amount.IsPositive() {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "amount must be positive", nil)
		return
	}
	wal, err := s.wallet.Deposit(r.Context(), userID(r), chi.URLParam(r, "currency"), req.Reference, req.Amount)
	if err != nil {
		s.writeSessionError(w, r, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, WalletResponse{Currency: wal.Currency, Balance: wal.Balance})
}

// sanitizeRound strips the persisted session snapshot; for open
// multi-step rounds it holds committed-but-unrevealed outcome state
// (bomb layouts, shoe order) that must never reach the client.
func sanitizeRound(r *store.Round) *store.Round {
	out := *r
	out.SessionJSON = ""
	return &out
}

func roundResponse(res *session.PlayResult) RoundResponse {
	return RoundResponse{
		Round:         sanitizeRound(res.Round),
		View:          res.View,
		Outcome:       res.Outcome,
		Payout:        res.Payout,
		Balance:       res.Balance,
		Finished:      res.Finished,
		EngineVersion: EngineVersion,
	}
}

// writeSessionError maps engine errors to HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, game string, err error) {
	var context map[string]any
	if game != "" {
		context = map[string]any{"game": game}
	}

	status := http.StatusInternalServerError
	errType := ErrTypeInternal
	switch {
	case errors.Is(err, session.ErrUnknownGame):
		status, errType = http.StatusNotFound, ErrTypeGameNotFound
	case errors.Is(err, session.ErrBetOutOfRange):
		status, errType = http.StatusBadRequest, ErrTypeBetLimits
	case errors.Is(err, session.ErrSessionActive):
		status, errType = http.StatusConflict, ErrTypeSessionActive
	case errors.Is(err, session.ErrNoSession):
		status, errType = http.StatusNotFound, ErrTypeNoSession
	case errors.Is(err, session.ErrNotMultiStep):
		status, errType = http.StatusBadRequest, ErrTypeInvalidAction
	case errors.Is(err, games.ErrInvalidParams):
		status, errType = http.StatusBadRequest, ErrTypeInvalidParams
	case errors.Is(err, games.ErrInvalidAction):
		status, errType = http.StatusBadRequest, ErrTypeInvalidAction
	case errors.Is(err, wallet.ErrInsufficientBalance):
		status, errType = http.StatusPaymentRequired, ErrTypeInsufficientBalance
	case errors.Is(err, wallet.ErrWalletContention):
		status, errType = http.StatusConflict, ErrTypeConflict
	case errors.Is(err, seeds.ErrSeedInUse):
		status, errType = http.StatusConflict, ErrTypeSeedInUse
	case errors.Is(err, seeds.ErrInvalidClientSeed):
		status, errType = http.StatusBadRequest, ErrTypeValidation
	case errors.Is(err, store.ErrNotFound):
		status, errType = http.StatusNotFound, ErrTypeNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrDuplicateEntry):
		status, errType = http.StatusConflict, ErrTypeConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Printf("internal error path=%s: %v", r.URL.Path, err)
		s.writeError(w, r, status, errType, "internal error", context)
		return
	}
	s.writeError(w, r, status, errType, err.Error(), context)
}
