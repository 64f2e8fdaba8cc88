package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/games"
	"github.com/provablyhq/casino-engine/internal/seeds"
	"github.com/provablyhq/casino-engine/internal/store"
	"github.com/provablyhq/casino-engine/internal/wallet"
)

type testEnv struct {
	mgr    *Manager
	wallet *wallet.Service
	seeds  *seeds.Manager
	db     store.DB
}

func newTestEnv(t *testing.T, idleAfter time.Duration) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	w := wallet.New(db)
	sm := seeds.NewManager(db)
	return &testEnv{
		mgr:    NewManager(db, w, sm, idleAfter),
		wallet: w,
		seeds:  sm,
		db:     db,
	}
}

func (e *testEnv) fund(t *testing.T, userID, amount string) {
	t.Helper()
	if _, err := e.wallet.Deposit(context.Background(), userID, "BTC", "funding", dec(amount)); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := e.wallet.GetOrCreate(context.Background(), userID, "BTC")
	if err != nil {
		t.Fatal(err)
	}
	return w.Balance
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlaySingleShotSettles(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("1"),
		map[string]any{"target": 50.0, "direction": "over"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Finished {
		t.Fatal("single-shot round did not finish")
	}
	if res.Round.Status != store.RoundSettled {
		t.Errorf("status = %s, want SETTLED", res.Round.Status)
	}
	// Either outcome reconciles: stake out, payout (if any) back in.
	wantPayout := dec("0")
	if res.Outcome["win"] == true {
		wantPayout = dec("1.98")
	}
	if !res.Payout.Equal(wantPayout) {
		t.Errorf("payout = %s, want %s", res.Payout, wantPayout)
	}
	if want := dec("99").Add(res.Payout); !res.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", res.Balance, want)
	}
	if res.Round.Nonce != 1 {
		t.Errorf("nonce = %d, want 1", res.Round.Nonce)
	}
	if res.Round.DrawCount != 1 {
		t.Errorf("draw count = %d, want 1", res.Round.DrawCount)
	}
}

func TestPlayValidation(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	if _, err := env.mgr.Play(ctx, "alice", "craps", "BTC", dec("1"), nil); !errors.Is(err, ErrUnknownGame) {
		t.Errorf("unknown game: err = %v, want ErrUnknownGame", err)
	}
	if _, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("0"), nil); !errors.Is(err, ErrBetOutOfRange) {
		t.Errorf("zero bet: err = %v, want ErrBetOutOfRange", err)
	}
	if _, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("1000000"), nil); !errors.Is(err, ErrBetOutOfRange) {
		t.Errorf("huge bet: err = %v, want ErrBetOutOfRange", err)
	}

	// Rejections before the debit leave the balance alone.
	if got := env.balance(t, "alice"); !got.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestPlayInsufficientBalance(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "0.5")

	_, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("1"),
		map[string]any{"target": 50.0})
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := env.balance(t, "alice"); !got.Equal(dec("0.5")) {
		t.Errorf("balance = %s, want 0.5", got)
	}

	// The orphan round must not linger as open.
	stale, err := env.db.ListStaleOpenRounds(ctx, time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 0 {
		t.Errorf("open rounds left behind: %+v", stale)
	}
}

func TestPlayInvalidParamsRefunds(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	_, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("1"),
		map[string]any{"target": 200.0})
	if !errors.Is(err, games.ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
	// The stake taken before the fault comes back.
	if got := env.balance(t, "alice"); !got.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestMultiStepFlow(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "mines", "BTC", dec("1"),
		map[string]any{"mines": 3.0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Finished {
		t.Fatal("multi-step round finished at open")
	}
	if res.View == nil {
		t.Fatal("no view for the open session")
	}
	if !res.Balance.Equal(dec("99")) {
		t.Errorf("balance after stake = %s, want 99", res.Balance)
	}

	// One open round per game per user.
	if _, err := env.mgr.Play(ctx, "alice", "mines", "BTC", dec("1"),
		map[string]any{"mines": 3.0}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second play: err = %v, want ErrSessionActive", err)
	}

	// Resume is a read: it must not mutate the session.
	view, err := env.mgr.Resume(ctx, "alice", "mines")
	if err != nil {
		t.Fatal(err)
	}
	if view.Round.ID != res.Round.ID {
		t.Errorf("resume returned round %s, want %s", view.Round.ID, res.Round.ID)
	}

	fin, err := env.mgr.Action(ctx, "alice", "mines", "cashout", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !fin.Finished {
		t.Fatal("cashout did not finish the round")
	}
	// Cashing out with no reveals pays the stake back.
	if !fin.Payout.Equal(dec("1")) {
		t.Errorf("payout = %s, want 1", fin.Payout)
	}
	if got := env.balance(t, "alice"); !got.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", got)
	}

	round, err := env.mgr.Round(ctx, "alice", fin.Round.ID)
	if err != nil {
		t.Fatal(err)
	}
	if round.Status != store.RoundSettled || round.ActionsJSON == "" || round.ActionsJSON == "[]" {
		t.Errorf("settled round = %+v", round)
	}

	if _, err := env.mgr.Action(ctx, "alice", "mines", "cashout", nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("action after settle: err = %v, want ErrNoSession", err)
	}
}

func TestActionValidation(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	if _, err := env.mgr.Action(ctx, "alice", "dice", "cashout", nil); !errors.Is(err, ErrNotMultiStep) {
		t.Errorf("dice action: err = %v, want ErrNotMultiStep", err)
	}
	if _, err := env.mgr.Action(ctx, "alice", "mines", "cashout", nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("no session: err = %v, want ErrNoSession", err)
	}

	if _, err := env.mgr.Play(ctx, "alice", "mines", "BTC", dec("1"),
		map[string]any{"mines": 3.0}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.mgr.Action(ctx, "alice", "mines", "teleport", nil); !errors.Is(err, games.ErrInvalidAction) {
		t.Errorf("bad action: err = %v, want ErrInvalidAction", err)
	}
}

func TestActionExtraStakeDebit(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "blackjack", "BTC", dec("1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Finished {
		t.Skip("dealt a natural; no double possible for this pair")
	}

	fin, err := env.mgr.Action(ctx, "alice", "blackjack", "double", nil)
	if err != nil {
		t.Fatal(err)
	}
	if fin.Round.StakeUnits != 2 {
		t.Errorf("stake units = %d, want 2", fin.Round.StakeUnits)
	}

	// The extra stake lands as its own ledger entry keyed by unit count.
	if _, err := env.db.GetLedgerEntry(ctx, res.Round.ID, "debit.2"); err != nil {
		t.Errorf("missing step debit entry: %v", err)
	}

	// Two units staked; whatever came back is the recorded payout.
	want := dec("98").Add(fin.Payout)
	if got := env.balance(t, "alice"); !got.Equal(want) {
		t.Errorf("balance = %s, want %s", got, want)
	}
}

func TestRoundOwnership(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("1"),
		map[string]any{"target": 50.0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.mgr.Round(ctx, "mallory", res.Round.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign round: err = %v, want ErrNotFound", err)
	}
}

func TestSweepIdleVoidsStaleSingleShot(t *testing.T) {
	env := newTestEnv(t, time.Nanosecond)
	ctx := context.Background()
	env.fund(t, "alice", "10")

	// Simulate a crash between debit and settle: an OPEN single-shot
	// round with the stake already taken.
	round := &store.Round{
		UserID:         "alice",
		Game:           "dice",
		BetAmount:      dec("2"),
		StakeUnits:     1,
		Currency:       "BTC",
		ServerSeed:     "s",
		ServerSeedHash: "h",
		ClientSeed:     "c",
		Nonce:          1,
		Status:         store.RoundOpen,
		ParamsJSON:     "{}",
		Payout:         decimal.Zero,
	}
	if err := env.db.CreateRound(ctx, round); err != nil {
		t.Fatal(err)
	}
	if _, err := env.wallet.Debit(ctx, "alice", "BTC", round.ID, dec("2")); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := env.mgr.SweepIdle(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := env.db.GetRound(ctx, round.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.RoundVoid {
		t.Errorf("status = %s, want VOID", got.Status)
	}
	if bal := env.balance(t, "alice"); !bal.Equal(dec("10")) {
		t.Errorf("balance = %s, want 10", bal)
	}
}

func TestSweepIdleResolvesMultiStepSession(t *testing.T) {
	env := newTestEnv(t, time.Nanosecond)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "mines", "BTC", dec("1"),
		map[string]any{"mines": 3.0})
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := env.mgr.SweepIdle(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := env.db.GetRound(ctx, res.Round.ID)
	if err != nil {
		t.Fatal(err)
	}
	// The idle action for mines is cashout: zero reveals pay the stake
	// back, so the sweep restores the original balance.
	if got.Status != store.RoundSettled {
		t.Errorf("status = %s, want SETTLED", got.Status)
	}
	if !got.Payout.Equal(dec("1")) {
		t.Errorf("payout = %s, want 1", got.Payout)
	}
	if bal := env.balance(t, "alice"); !bal.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", bal)
	}

	// A second sweep has nothing to do.
	if err := env.mgr.SweepIdle(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSweepRedeliversUnpaidPayout(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()
	env.fund(t, "alice", "10")

	// Simulate a crash between the settle write and the credit: the
	// round records a win the wallet never received.
	round := &store.Round{
		UserID:         "alice",
		Game:           "dice",
		BetAmount:      dec("2"),
		StakeUnits:     1,
		Currency:       "BTC",
		ServerSeed:     "s",
		ServerSeedHash: "h",
		ClientSeed:     "c",
		Nonce:          1,
		Status:         store.RoundOpen,
		ParamsJSON:     "{}",
		Payout:         decimal.Zero,
	}
	if err := env.db.CreateRound(ctx, round); err != nil {
		t.Fatal(err)
	}
	if _, err := env.wallet.Debit(ctx, "alice", "BTC", round.ID, dec("2")); err != nil {
		t.Fatal(err)
	}
	if err := env.db.SettleRound(ctx, round.ID, "SETTLED", `{"win":true}`, "[]", dec("3.96"), 1); err != nil {
		t.Fatal(err)
	}
	if bal := env.balance(t, "alice"); !bal.Equal(dec("8")) {
		t.Fatalf("balance before sweep = %s, want 8", bal)
	}

	if err := env.mgr.SweepIdle(ctx); err != nil {
		t.Fatal(err)
	}
	if bal := env.balance(t, "alice"); !bal.Equal(dec("11.96")) {
		t.Errorf("balance after sweep = %s, want 11.96", bal)
	}

	// The credit is keyed on the round, so repeating the sweep cannot
	// pay twice.
	if err := env.mgr.SweepIdle(ctx); err != nil {
		t.Fatal(err)
	}
	if bal := env.balance(t, "alice"); !bal.Equal(dec("11.96")) {
		t.Errorf("balance after second sweep = %s, want 11.96", bal)
	}
}

func TestFairnessLifecycle(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "dice", "BTC", dec("1"),
		map[string]any{"target": 50.0, "direction": "over"})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := env.mgr.Fairness(ctx, res.Round.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Revealed || rep.ServerSeed != "" || rep.Verified != nil {
		t.Errorf("pre-rotation report = %+v", rep)
	}
	if rep.ServerSeedHash != res.Round.ServerSeedHash {
		t.Error("report hash does not match the round commitment")
	}

	if _, _, err := env.seeds.Rotate(ctx, "alice", ""); err != nil {
		t.Fatal(err)
	}

	rep, err = env.mgr.Fairness(ctx, res.Round.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Revealed || rep.ServerSeed == "" {
		t.Fatalf("post-rotation report hides the seed: %+v", rep)
	}
	if rep.Verified == nil || !*rep.Verified {
		t.Errorf("replay did not verify: %+v", rep.ReplayOutcome)
	}
	if rep.ReplayOutcome["roll"] != rep.Outcome["roll"] {
		t.Errorf("replay roll %v != recorded %v", rep.ReplayOutcome["roll"], rep.Outcome["roll"])
	}
}

func TestFairnessMultiStepReplay(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	env.fund(t, "alice", "100")

	res, err := env.mgr.Play(ctx, "alice", "mines", "BTC", dec("1"),
		map[string]any{"mines": 3.0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.mgr.Action(ctx, "alice", "mines", "cashout", nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.seeds.Rotate(ctx, "alice", ""); err != nil {
		t.Fatal(err)
	}

	rep, err := env.mgr.Fairness(ctx, res.Round.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Actions) != 1 || rep.Actions[0].Action != "cashout" {
		t.Errorf("recorded actions = %+v", rep.Actions)
	}
	if rep.Verified == nil || !*rep.Verified {
		t.Errorf("multi-step replay did not verify: %+v", rep.ReplayOutcome)
	}
}
