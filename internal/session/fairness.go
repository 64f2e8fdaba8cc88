package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/games"
	"github.com/provablyhq/casino-engine/internal/store"
)

// FairnessReport carries everything a player needs to verify a round.
// The plain server seed appears only after the pair has been rotated;
// until then the report verifies against the published hash alone.
type FairnessReport struct {
	RoundID        string                 `json:"round_id"`
	Game           string                 `json:"game"`
	Status         string                 `json:"status"`
	ServerSeedHash string                 `json:"server_seed_hash"`
	ServerSeed     string                 `json:"server_seed,omitempty"`
	ClientSeed     string                 `json:"client_seed"`
	Nonce          uint64                 `json:"nonce"`
	DrawCount      int                    `json:"draw_count"`
	Params         map[string]any         `json:"params"`
	Actions        []games.RecordedAction `json:"actions,omitempty"`
	Outcome        map[string]any         `json:"outcome,omitempty"`
	Revealed       bool                   `json:"revealed"`
	Verified       *bool                  `json:"verified,omitempty"`
	ReplayOutcome  map[string]any         `json:"replay_outcome,omitempty"`
}

// Fairness builds the verification report for a settled round. For
// rounds whose seed pair has been rotated, the round is replayed from
// the revealed seed and the replay outcome is compared to the record.
func (m *Manager) Fairness(ctx context.Context, roundID string) (*FairnessReport, error) {
	round, err := m.db.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	rep := &FairnessReport{
		RoundID:        round.ID,
		Game:           round.Game,
		Status:         round.Status,
		ServerSeedHash: round.ServerSeedHash,
		ClientSeed:     round.ClientSeed,
		Nonce:          round.Nonce,
		DrawCount:      round.DrawCount,
	}
	if round.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(round.ParamsJSON), &rep.Params); err != nil {
			return nil, fmt.Errorf("corrupt params on round %s: %w", round.ID, err)
		}
	}
	if round.ActionsJSON != "" && round.ActionsJSON != "[]" {
		if err := json.Unmarshal([]byte(round.ActionsJSON), &rep.Actions); err != nil {
			return nil, fmt.Errorf("corrupt actions on round %s: %w", round.ID, err)
		}
	}
	if round.OutcomeJSON != "" {
		if err := json.Unmarshal([]byte(round.OutcomeJSON), &rep.Outcome); err != nil {
			return nil, fmt.Errorf("corrupt outcome on round %s: %w", round.ID, err)
		}
	}

	pair, err := m.db.GetSeedPairByHash(ctx, round.ServerSeedHash)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if pair == nil || !pair.Revealed || round.Status != store.RoundSettled {
		return rep, nil
	}

	rep.Revealed = true
	rep.ServerSeed = round.ServerSeed

	res, err := games.Replay(round.Game, round.ServerSeed, round.ClientSeed, round.Nonce, rep.Params, rep.Actions)
	verified := false
	if err == nil {
		rep.ReplayOutcome = res.Payload
		replayPayout := round.BetAmount.Mul(decimal.NewFromFloat(res.Multiplier)).Round(payoutPlaces)
		verified = res.DrawCount == round.DrawCount && replayPayout.Equal(round.Payout)
	}
	rep.Verified = &verified
	return rep, nil
}
