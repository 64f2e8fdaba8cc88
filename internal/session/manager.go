// Package session orchestrates rounds: it ties seed tickets, the game
// mappers, the wallet and the round store together into the play,
// action and fairness flows.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/provablyhq/casino-engine/internal/engine"
	"github.com/provablyhq/casino-engine/internal/games"
	"github.com/provablyhq/casino-engine/internal/seeds"
	"github.com/provablyhq/casino-engine/internal/store"
	"github.com/provablyhq/casino-engine/internal/wallet"
)

var (
	ErrUnknownGame    = errors.New("unknown game")
	ErrBetOutOfRange  = errors.New("bet outside table limits")
	ErrSessionActive  = errors.New("an open round already exists for this game")
	ErrNoSession      = errors.New("no open round for this game")
	ErrNotMultiStep   = errors.New("game has no mid-round actions")
)

// payoutPlaces is the decimal precision payouts are rounded to.
const payoutPlaces = 8

// PlayResult is what a play or action call hands back to the API layer.
type PlayResult struct {
	Round    *store.Round    `json:"round"`
	View     map[string]any  `json:"view,omitempty"`
	Outcome  map[string]any  `json:"outcome,omitempty"`
	Payout   decimal.Decimal `json:"payout"`
	Balance  decimal.Decimal `json:"balance"`
	Finished bool            `json:"finished"`
}

type Manager struct {
	db     store.DB
	wallet *wallet.Service
	seeds  *seeds.Manager

	idleAfter time.Duration

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func NewManager(db store.DB, w *wallet.Service, sm *seeds.Manager, idleAfter time.Duration) *Manager {
	if idleAfter <= 0 {
		idleAfter = 15 * time.Minute
	}
	return &Manager{
		db:        db,
		wallet:    w,
		seeds:     sm,
		idleAfter: idleAfter,
		users:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.users[userID]
	if !ok {
		l = &sync.Mutex{}
		m.users[userID] = l
	}
	return l
}

// Play opens a new round: snapshot seed material, persist the round,
// debit the stake, then resolve (single-shot) or open a session
// (multi-step). Any fault after the debit voids the round and refunds
// the stake.
func (m *Manager) Play(ctx context.Context, userID, gameID, currency string, bet decimal.Decimal, params map[string]any) (*PlayResult, error) {
	g, ok := games.Get(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	def := g.Definition()
	if bet.LessThan(def.MinBet) || bet.GreaterThan(def.MaxBet) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrBetOutOfRange, bet, def.MinBet, def.MaxBet)
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if _, isMulti := g.(games.MultiStep); isMulti {
		if _, err := m.db.GetOpenRound(ctx, userID, gameID); err == nil {
			return nil, ErrSessionActive
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	ticket, err := m.seeds.NextTicket(ctx, userID)
	if err != nil {
		return nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", games.ErrInvalidParams, err)
	}

	round := &store.Round{
		UserID:         userID,
		Game:           gameID,
		BetAmount:      bet,
		StakeUnits:     1,
		Currency:       currency,
		ServerSeed:     ticket.ServerSeed,
		ServerSeedHash: ticket.ServerSeedHash,
		ClientSeed:     ticket.ClientSeed,
		Nonce:          ticket.Nonce,
		Status:         store.RoundOpen,
		ParamsJSON:     string(paramsJSON),
		Payout:         decimal.Zero,
	}
	if err := m.db.CreateRound(ctx, round); err != nil {
		return nil, err
	}

	bal, err := m.wallet.Debit(ctx, userID, currency, round.ID, bet)
	if err != nil {
		// Nothing was taken; close the orphan round without a refund.
		if verr := m.db.VoidRound(ctx, round.ID); verr != nil {
			err = multierr.Append(err, verr)
		}
		return nil, err
	}

	bg := engine.NewByteGenerator(ticket.ServerSeed, ticket.ClientSeed, ticket.Nonce, 0)

	if ms, isMulti := g.(games.MultiStep); isMulti {
		sess, err := ms.Begin(bg, params)
		if err != nil {
			return nil, m.voidAndRefund(ctx, round, err)
		}
		if sess.Finished() {
			return m.settle(ctx, round, sess.Result(), nil, bal)
		}
		snap, err := sess.Snapshot()
		if err != nil {
			return nil, m.voidAndRefund(ctx, round, err)
		}
		if err := m.db.UpdateRoundSession(ctx, round.ID, sess.Stage(), string(snap), "[]", round.StakeUnits); err != nil {
			return nil, m.voidAndRefund(ctx, round, err)
		}
		round.Stage = sess.Stage()
		round.SessionJSON = string(snap)
		return &PlayResult{
			Round:   round,
			View:    sess.View(),
			Payout:  decimal.Zero,
			Balance: bal.Balance,
		}, nil
	}

	res, err := g.Play(bg, params)
	if err != nil {
		return nil, m.voidAndRefund(ctx, round, err)
	}
	return m.settle(ctx, round, res, nil, bal)
}

// Action applies one player action to the user's open round for the
// game. Extra stake (double, split) is debited before the transition
// is committed; if the debit fails the action is rejected and the
// session stays where it was.
func (m *Manager) Action(ctx context.Context, userID, gameID, action string, params map[string]any) (*PlayResult, error) {
	g, ok := games.Get(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	ms, isMulti := g.(games.MultiStep)
	if !isMulti {
		return nil, ErrNotMultiStep
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	round, err := m.db.GetOpenRound(ctx, userID, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return m.applyAction(ctx, ms, round, action, params, true)
}

// applyAction resumes the session, applies one action and persists the
// result. Caller holds the user lock.
func (m *Manager) applyAction(ctx context.Context, ms games.MultiStep, round *store.Round, action string, params map[string]any, charge bool) (*PlayResult, error) {
	sess, err := ms.Resume(json.RawMessage(round.SessionJSON))
	if err != nil {
		return nil, fmt.Errorf("resuming round %s: %w", round.ID, err)
	}

	effect, err := sess.Apply(action, params)
	if err != nil {
		return nil, err
	}

	var bal *store.Wallet
	if effect.ExtraStakeUnits > 0 && charge {
		extra := round.BetAmount.Mul(decimal.NewFromInt(int64(effect.ExtraStakeUnits)))
		units := round.StakeUnits + effect.ExtraStakeUnits
		bal, err = m.wallet.DebitStep(ctx, round.UserID, round.Currency, round.ID, units, extra)
		if err != nil {
			return nil, err
		}
		round.StakeUnits = units
	} else if effect.ExtraStakeUnits > 0 {
		round.StakeUnits += effect.ExtraStakeUnits
	}

	actions, err := appendAction(round.ActionsJSON, games.RecordedAction{Action: action, Params: params})
	if err != nil {
		return nil, err
	}
	round.ActionsJSON = actions

	if sess.Finished() {
		return m.settle(ctx, round, sess.Result(), sess, bal)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := m.db.UpdateRoundSession(ctx, round.ID, sess.Stage(), string(snap), actions, round.StakeUnits); err != nil {
		return nil, err
	}
	round.Stage = sess.Stage()
	round.SessionJSON = string(snap)

	out := &PlayResult{Round: round, View: sess.View(), Payout: decimal.Zero}
	if bal != nil {
		out.Balance = bal.Balance
	}
	return out, nil
}

// Resume returns the current view of the user's open round without
// applying any action.
func (m *Manager) Resume(ctx context.Context, userID, gameID string) (*PlayResult, error) {
	g, ok := games.Get(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	ms, isMulti := g.(games.MultiStep)
	if !isMulti {
		return nil, ErrNotMultiStep
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	round, err := m.db.GetOpenRound(ctx, userID, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	sess, err := ms.Resume(json.RawMessage(round.SessionJSON))
	if err != nil {
		return nil, fmt.Errorf("resuming round %s: %w", round.ID, err)
	}
	return &PlayResult{Round: round, View: sess.View(), Payout: decimal.Zero}, nil
}

// Round returns one of the user's rounds by id.
func (m *Manager) Round(ctx context.Context, userID, roundID string) (*store.Round, error) {
	round, err := m.db.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.UserID != userID {
		return nil, store.ErrNotFound
	}
	return round, nil
}

// settle records the terminal outcome and credits the payout. The
// settle update is guarded on OPEN, so a concurrent or replayed settle
// falls through to the already-recorded round.
func (m *Manager) settle(ctx context.Context, round *store.Round, res games.Result, sess games.Session, bal *store.Wallet) (*PlayResult, error) {
	payout := round.BetAmount.Mul(decimal.NewFromFloat(res.Multiplier)).Round(payoutPlaces)

	outcomeJSON, err := json.Marshal(res.Payload)
	if err != nil {
		return nil, err
	}
	actions := round.ActionsJSON
	if actions == "" {
		actions = "[]"
	}

	stage := store.RoundSettled
	if sess != nil {
		stage = sess.Stage()
	}
	if err := m.db.SettleRound(ctx, round.ID, stage, string(outcomeJSON), actions, payout, res.DrawCount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already settled or voided; hand back the recorded round.
			prev, gerr := m.db.GetRound(ctx, round.ID)
			if gerr != nil {
				return nil, multierr.Append(err, gerr)
			}
			round = prev
			payout = prev.Payout
		} else {
			return nil, err
		}
	} else {
		now := time.Now().UTC()
		round.Status = store.RoundSettled
		round.Stage = stage
		round.OutcomeJSON = string(outcomeJSON)
		round.Payout = payout
		round.DrawCount = res.DrawCount
		round.SettledAt = &now
	}

	wal := bal
	if payout.IsPositive() {
		w, err := m.wallet.Credit(ctx, round.UserID, round.Currency, round.ID, payout)
		if err != nil {
			return nil, fmt.Errorf("crediting round %s: %w", round.ID, err)
		}
		wal = w
	}

	out := &PlayResult{
		Round:    round,
		Outcome:  res.Payload,
		Payout:   payout,
		Finished: true,
	}
	if sess != nil {
		out.View = sess.View()
	}
	if wal != nil {
		out.Balance = wal.Balance
	}
	return out, nil
}

// voidAndRefund compensates a post-debit fault: the round is voided
// and every stake unit taken so far is returned.
func (m *Manager) voidAndRefund(ctx context.Context, round *store.Round, cause error) error {
	err := cause
	if verr := m.db.VoidRound(ctx, round.ID); verr != nil && !errors.Is(verr, store.ErrNotFound) {
		err = multierr.Append(err, verr)
	}
	refund := round.BetAmount.Mul(decimal.NewFromInt(int64(round.StakeUnits)))
	if _, rerr := m.wallet.Refund(ctx, round.UserID, round.Currency, round.ID, refund); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("refunding round %s: %w", round.ID, rerr))
	}
	return err
}

// SweepIdle force-resolves open multi-step rounds whose last activity
// is older than the idle window, repeating each session's worst-case
// action until it terminates. Single-shot rounds stuck OPEN (a crash
// between debit and settle) are voided and refunded. It then redelivers
// any settled payout whose credit never reached the wallet.
func (m *Manager) SweepIdle(ctx context.Context) error {
	stale, err := m.db.ListStaleOpenRounds(ctx, time.Now().UTC().Add(-m.idleAfter), 100)
	if err != nil {
		return err
	}
	var swept error
	for i := range stale {
		round := &stale[i]
		if err := m.sweepRound(ctx, round); err != nil {
			swept = multierr.Append(swept, fmt.Errorf("round %s: %w", round.ID, err))
		}
	}
	return multierr.Append(swept, m.redeliverPayouts(ctx))
}

// redeliverPayouts re-credits rounds that settled without their payout
// landing (a crash or exhausted wallet retries between the settle write
// and the credit). The credit ledger key makes a concurrent or repeated
// delivery a no-op.
func (m *Manager) redeliverPayouts(ctx context.Context) error {
	unpaid, err := m.db.ListUnpaidSettledRounds(ctx, 100)
	if err != nil {
		return err
	}
	var errs error
	for i := range unpaid {
		round := &unpaid[i]
		if _, err := m.wallet.Credit(ctx, round.UserID, round.Currency, round.ID, round.Payout); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("redelivering round %s: %w", round.ID, err))
			continue
		}
		log.Printf("session: redelivered payout %s for round %s (%s)", round.Payout, round.ID, round.Game)
	}
	return errs
}

func (m *Manager) sweepRound(ctx context.Context, round *store.Round) error {
	l := m.userLock(round.UserID)
	l.Lock()
	defer l.Unlock()

	// Re-read under the lock; the player may have finished it meanwhile.
	cur, err := m.db.GetRound(ctx, round.ID)
	if err != nil {
		return err
	}
	if cur.Status != store.RoundOpen {
		return nil
	}

	g, ok := games.Get(cur.Game)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGame, cur.Game)
	}
	ms, isMulti := g.(games.MultiStep)
	if !isMulti || cur.SessionJSON == "" {
		return m.voidAndRefund(ctx, cur, nil)
	}

	for {
		sess, err := ms.Resume(json.RawMessage(cur.SessionJSON))
		if err != nil {
			return err
		}
		if sess.Finished() {
			_, err = m.settle(ctx, cur, sess.Result(), sess, nil)
			return err
		}
		action, params := sess.IdleAction()
		res, err := m.applyAction(ctx, ms, cur, action, params, false)
		if err != nil {
			return err
		}
		if res.Finished {
			log.Printf("session: swept idle round %s (%s) with %q", cur.ID, cur.Game, action)
			return nil
		}
		cur = res.Round
	}
}

// RunSweeper blocks, sweeping on the given interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := m.SweepIdle(ctx); err != nil {
				log.Printf("session: idle sweep: %v", err)
			}
		}
	}
}

func appendAction(actionsJSON string, a games.RecordedAction) (string, error) {
	var actions []games.RecordedAction
	if actionsJSON != "" && actionsJSON != "[]" {
		if err := json.Unmarshal([]byte(actionsJSON), &actions); err != nil {
			return "", fmt.Errorf("corrupt actions log: %w", err)
		}
	}
	actions = append(actions, a)
	out, err := json.Marshal(actions)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
