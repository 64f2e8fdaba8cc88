package api

import (
	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/games"
	"github.com/provablyhq/casino-engine/internal/session"
	"github.com/provablyhq/casino-engine/internal/store"
)

// EngineVersion is echoed on responses so clients can pin verifier
// behavior to the engine that produced a round.
const EngineVersion = "1.0.0"

// EngineError is the structured error envelope for every non-2xx
// response.
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization.
const (
	ErrTypeValidation    = "validation_error"
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeInvalidAction = "invalid_action"

	ErrTypeGameNotFound  = "game_not_found"
	ErrTypeSessionActive = "session_active"
	ErrTypeNoSession     = "no_session"
	ErrTypeBetLimits     = "bet_out_of_range"

	ErrTypeInsufficientBalance = "insufficient_balance"
	ErrTypeSeedInUse           = "seed_in_use"
	ErrTypeNotFound            = "not_found"
	ErrTypeConflict            = "conflict"
	ErrTypeUnauthorized        = "unauthorized"
	ErrTypeInternal            = "internal_error"
)

// PlayRequest opens a round.
type PlayRequest struct {
	Bet      decimal.Decimal `json:"bet"`
	Currency string          `json:"currency"`
	Params   map[string]any  `json:"params"`
}

// ActionRequest advances an open multi-step round.
type ActionRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// RoundResponse is the common reply for play and action calls.
type RoundResponse struct {
	Round         *store.Round    `json:"round"`
	View          map[string]any  `json:"view,omitempty"`
	Outcome       map[string]any  `json:"outcome,omitempty"`
	Payout        decimal.Decimal `json:"payout"`
	Balance       decimal.Decimal `json:"balance"`
	Finished      bool            `json:"finished"`
	EngineVersion string          `json:"engine_version"`
}

// GameInfo describes one registered game.
type GameInfo struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	MultiStep bool            `json:"multi_step"`
	HouseEdge float64         `json:"house_edge"`
	MinBet    decimal.Decimal `json:"min_bet"`
	MaxBet    decimal.Decimal `json:"max_bet"`
}

// SeedResponse is the public view of a seed pair. The plain server
// seed is never present for an active pair.
type SeedResponse struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ServerSeed     string `json:"server_seed,omitempty"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
	Revealed       bool   `json:"revealed"`
}

// RotateResponse carries the revealed old pair and the fresh
// commitment.
type RotateResponse struct {
	Revealed SeedResponse `json:"revealed"`
	Next     SeedResponse `json:"next"`
}

// ClientSeedRequest sets the client seed on the active pair.
type ClientSeedRequest struct {
	ClientSeed string `json:"client_seed"`
}

// RotateRequest optionally includes a client seed for the next pair.
type RotateRequest struct {
	ClientSeed string `json:"client_seed,omitempty"`
}

// DepositRequest funds a wallet. Reference keys the ledger entry so a
// resubmitted deposit is applied once.
type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// WalletResponse is the balance view of one wallet.
type WalletResponse struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// FairnessResponse wraps a verification report.
type FairnessResponse struct {
	*session.FairnessReport
	EngineVersion string `json:"engine_version"`
}

func seedResponse(p *store.SeedPair) SeedResponse {
	out := SeedResponse{
		ServerSeedHash: p.ServerSeedHash,
		ClientSeed:     p.ClientSeed,
		Nonce:          p.Nonce,
		Revealed:       p.Revealed,
	}
	if p.Revealed {
		out.ServerSeed = p.ServerSeed
	}
	return out
}

func gameInfo(g games.Game) GameInfo {
	spec := g.Spec()
	def := g.Definition()
	_, multi := g.(games.MultiStep)
	return GameInfo{
		ID:        spec.ID,
		Name:      spec.Name,
		MultiStep: multi,
		HouseEdge: def.HouseEdge,
		MinBet:    def.MinBet,
		MaxBet:    def.MaxBet,
	}
}
