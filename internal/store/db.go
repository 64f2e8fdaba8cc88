package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced by DB implementations.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("wallet version conflict")
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)

// Round statuses.
const (
	RoundOpen    = "OPEN"
	RoundSettled = "SETTLED"
	RoundVoid    = "VOID"
)

// Ledger entry kinds.
const (
	EntryDebit   = "debit"
	EntryCredit  = "credit"
	EntryRefund  = "refund"
	EntryDeposit = "deposit"
)

// Wallet is the single owner of balance truth for a (user, currency)
// pair. Version supports optimistic concurrency.
type Wallet struct {
	UserID   string          `json:"user_id"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	Version  int64           `json:"version"`
}

// SeedPair is a server-seed commitment plus the user's client seed and
// the per-pair nonce counter.
type SeedPair struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ServerSeed     string     `json:"-"`
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          uint64     `json:"nonce"`
	Active         bool       `json:"active"`
	Revealed       bool       `json:"revealed"`
	CreatedAt      time.Time  `json:"created_at"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// Round is one bet. The seed snapshot is copied from the pair at open
// time so later rotation cannot alter a settled round's verifiability.
// Rounds are immutable once settled.
type Round struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Game           string          `json:"game"`
	BetAmount      decimal.Decimal `json:"bet_amount"`
	StakeUnits     int             `json:"stake_units"`
	Currency       string          `json:"currency"`
	ServerSeed     string          `json:"-"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          uint64          `json:"nonce"`
	DrawCount      int             `json:"draw_count"`
	Status         string          `json:"status"`
	Stage          string          `json:"stage"`
	ParamsJSON     string          `json:"params_json"`
	SessionJSON    string          `json:"session_json,omitempty"`
	ActionsJSON    string          `json:"actions_json,omitempty"`
	OutcomeJSON    string          `json:"outcome_json,omitempty"`
	Payout         decimal.Decimal `json:"payout"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	SettledAt      *time.Time      `json:"settled_at,omitempty"`
}

// LedgerEntry records one balance delta applied to a wallet. The
// (round_id, kind) pair is unique, which is what makes settlement
// idempotent under replays.
type LedgerEntry struct {
	ID           string          `json:"id"`
	RoundID      string          `json:"round_id"`
	UserID       string          `json:"user_id"`
	Currency     string          `json:"currency"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DB is the persistence interface of the engine.
type DB interface {
	Close() error
	Migrate() error

	// Wallets.
	GetWallet(ctx context.Context, userID, currency string) (*Wallet, error)
	CreateWallet(ctx context.Context, w *Wallet) error
	// ApplyWalletDelta applies delta to the wallet and records the ledger
	// entry in one transaction, guarded by the wallet version. Returns
	// ErrConflict on a version mismatch and ErrDuplicateEntry if the
	// (round, kind) pair was already applied.
	ApplyWalletDelta(ctx context.Context, userID, currency string, delta decimal.Decimal, expectVersion int64, entry *LedgerEntry) (*Wallet, error)
	GetLedgerEntry(ctx context.Context, roundID, kind string) (*LedgerEntry, error)

	// Seed pairs.
	CreateSeedPair(ctx context.Context, p *SeedPair) error
	GetActiveSeedPair(ctx context.Context, userID string) (*SeedPair, error)
	GetSeedPairByHash(ctx context.Context, serverSeedHash string) (*SeedPair, error)
	SetClientSeed(ctx context.Context, pairID, clientSeed string) error
	// NextNonce atomically increments and returns the pair's nonce.
	NextNonce(ctx context.Context, pairID string) (uint64, error)
	// RotateSeedPair marks the old pair revealed and inactive and makes
	// the new pair active, in one transaction.
	RotateSeedPair(ctx context.Context, oldPairID string, next *SeedPair) error

	// Rounds.
	CreateRound(ctx context.Context, r *Round) error
	GetRound(ctx context.Context, id string) (*Round, error)
	GetOpenRound(ctx context.Context, userID, game string) (*Round, error)
	CountOpenRoundsByHash(ctx context.Context, serverSeedHash string) (int, error)
	// UpdateRoundSession persists an intermediate multi-step transition.
	UpdateRoundSession(ctx context.Context, id, stage, sessionJSON, actionsJSON string, stakeUnits int) error
	// SettleRound transitions OPEN -> SETTLED exactly once; a second call
	// returns ErrNotFound via the status guard and callers fall back to
	// the recorded round.
	SettleRound(ctx context.Context, id, stage, outcomeJSON, actionsJSON string, payout decimal.Decimal, drawCount int) error
	VoidRound(ctx context.Context, id string) error
	ListStaleOpenRounds(ctx context.Context, idleSince time.Time, limit int) ([]Round, error)
	// ListUnpaidSettledRounds returns settled rounds with a positive
	// recorded payout but no credit ledger entry, oldest first.
	ListUnpaidSettledRounds(ctx context.Context, limit int) ([]Round, error)
}
