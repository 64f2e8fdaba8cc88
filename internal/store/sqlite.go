package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteDB implements DB on a single SQLite file.
type SQLiteDB struct {
	db *sql.DB
}

var _ DB = (*SQLiteDB)(nil)

// Open opens/creates the database at path and runs migrations.
func Open(path string) (*SQLiteDB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &SQLiteDB{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Close() error { return s.db.Close() }

func (s *SQLiteDB) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			user_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(user_id, currency)
		);`,

		`CREATE TABLE IF NOT EXISTS seed_pairs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			revealed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			revealed_at TIMESTAMP
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_seed_pairs_hash ON seed_pairs(server_seed_hash);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_seed_pairs_user_active ON seed_pairs(user_id) WHERE active=1;`,

		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			game TEXT NOT NULL,
			bet_amount TEXT NOT NULL,
			stake_units INTEGER NOT NULL DEFAULT 1,
			currency TEXT NOT NULL,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			draw_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			stage TEXT NOT NULL DEFAULT '',
			params_json TEXT NOT NULL DEFAULT '{}',
			session_json TEXT NOT NULL DEFAULT '',
			actions_json TEXT NOT NULL DEFAULT '',
			outcome_json TEXT NOT NULL DEFAULT '',
			payout TEXT NOT NULL DEFAULT '0',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			settled_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_user_game_status ON rounds(user_id, game, status);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_hash_status ON rounds(server_seed_hash, status);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_status_updated ON rounds(status, updated_at);`,

		`CREATE TABLE IF NOT EXISTS ledger (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			kind TEXT NOT NULL,
			amount TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(round_id, kind)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger(user_id, created_at DESC);`,
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// --------- Wallets ---------

func (s *SQLiteDB) GetWallet(ctx context.Context, userID, currency string) (*Wallet, error) {
	var w Wallet
	var balance string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, currency, balance, version FROM wallets WHERE user_id=? AND currency=?`,
		userID, currency).Scan(&w.UserID, &w.Currency, &balance, &w.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("corrupt balance for %s/%s: %w", userID, currency, err)
	}
	return &w, nil
}

func (s *SQLiteDB) CreateWallet(ctx context.Context, w *Wallet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets(user_id, currency, balance, version) VALUES(?, ?, ?, 0)`,
		w.UserID, w.Currency, w.Balance.String())
	if isConstraintErr(err) {
		return ErrConflict
	}
	return err
}

// ApplyWalletDelta is the only write path for balances. The version
// guard on the UPDATE detects concurrent writers; the ledger UNIQUE
// constraint detects replayed settlements.
func (s *SQLiteDB) ApplyWalletDelta(ctx context.Context, userID, currency string, delta decimal.Decimal, expectVersion int64, entry *LedgerEntry) (*Wallet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance string
	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance, version FROM wallets WHERE user_id=? AND currency=?`,
		userID, currency).Scan(&balance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if version != expectVersion {
		return nil, ErrConflict
	}
	cur, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for %s/%s: %w", userID, currency, err)
	}
	next := cur.Add(delta)

	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance=?, version=version+1 WHERE user_id=? AND currency=? AND version=?`,
		next.String(), userID, currency, expectVersion)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrConflict
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.UserID = userID
	entry.Currency = currency
	entry.Amount = delta
	entry.BalanceAfter = next
	entry.CreatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger(id, round_id, user_id, currency, kind, amount, balance_after, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RoundID, entry.UserID, entry.Currency, entry.Kind,
		entry.Amount.String(), entry.BalanceAfter.String(), entry.CreatedAt)
	if isConstraintErr(err) {
		return nil, ErrDuplicateEntry
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Wallet{UserID: userID, Currency: currency, Balance: next, Version: expectVersion + 1}, nil
}

func (s *SQLiteDB) GetLedgerEntry(ctx context.Context, roundID, kind string) (*LedgerEntry, error) {
	var e LedgerEntry
	var amount, after string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, round_id, user_id, currency, kind, amount, balance_after, created_at
		 FROM ledger WHERE round_id=? AND kind=?`, roundID, kind).
		Scan(&e.ID, &e.RoundID, &e.UserID, &e.Currency, &e.Kind, &amount, &after, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if e.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return nil, err
	}
	return &e, nil
}

// --------- Seed pairs ---------

func (s *SQLiteDB) CreateSeedPair(ctx context.Context, p *SeedPair) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seed_pairs(id, user_id, server_seed, server_seed_hash, client_seed, nonce, active, revealed, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		p.ID, p.UserID, p.ServerSeed, p.ServerSeedHash, p.ClientSeed, p.Nonce, boolInt(p.Active), p.CreatedAt)
	if isConstraintErr(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLiteDB) GetActiveSeedPair(ctx context.Context, userID string) (*SeedPair, error) {
	return s.scanSeedPair(s.db.QueryRowContext(ctx,
		seedPairCols+` WHERE user_id=? AND active=1`, userID))
}

func (s *SQLiteDB) GetSeedPairByHash(ctx context.Context, serverSeedHash string) (*SeedPair, error) {
	return s.scanSeedPair(s.db.QueryRowContext(ctx,
		seedPairCols+` WHERE server_seed_hash=?`, serverSeedHash))
}

const seedPairCols = `SELECT id, user_id, server_seed, server_seed_hash, client_seed, nonce, active, revealed, created_at, revealed_at FROM seed_pairs`

func (s *SQLiteDB) scanSeedPair(row *sql.Row) (*SeedPair, error) {
	var p SeedPair
	var active, revealed int
	var revealedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.ServerSeed, &p.ServerSeedHash, &p.ClientSeed,
		&p.Nonce, &active, &revealed, &p.CreatedAt, &revealedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Active = active == 1
	p.Revealed = revealed == 1
	if revealedAt.Valid {
		t := revealedAt.Time
		p.RevealedAt = &t
	}
	return &p, nil
}

func (s *SQLiteDB) SetClientSeed(ctx context.Context, pairID, clientSeed string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE seed_pairs SET client_seed=? WHERE id=? AND active=1`, clientSeed, pairID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) NextNonce(ctx context.Context, pairID string) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx,
		`UPDATE seed_pairs SET nonce=nonce+1 WHERE id=? AND active=1`, pairID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	var nonce uint64
	if err := tx.QueryRowContext(ctx, `SELECT nonce FROM seed_pairs WHERE id=?`, pairID).Scan(&nonce); err != nil {
		return 0, err
	}
	return nonce, tx.Commit()
}

func (s *SQLiteDB) RotateSeedPair(ctx context.Context, oldPairID string, next *SeedPair) error {
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now().UTC()
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE seed_pairs SET active=0, revealed=1, revealed_at=? WHERE id=? AND active=1`,
		now, oldPairID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO seed_pairs(id, user_id, server_seed, server_seed_hash, client_seed, nonce, active, revealed, created_at)
		 VALUES(?, ?, ?, ?, ?, 0, 1, 0, ?)`,
		next.ID, next.UserID, next.ServerSeed, next.ServerSeedHash, next.ClientSeed, next.CreatedAt)
	if isConstraintErr(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// --------- Rounds ---------

func (s *SQLiteDB) CreateRound(ctx context.Context, r *Round) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds(id, user_id, game, bet_amount, stake_units, currency,
			server_seed, server_seed_hash, client_seed, nonce, draw_count,
			status, stage, params_json, session_json, actions_json, outcome_json, payout,
			created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Game, r.BetAmount.String(), r.StakeUnits, r.Currency,
		r.ServerSeed, r.ServerSeedHash, r.ClientSeed, r.Nonce, r.DrawCount,
		r.Status, r.Stage, r.ParamsJSON, r.SessionJSON, r.ActionsJSON, r.OutcomeJSON, r.Payout.String(),
		r.CreatedAt, r.UpdatedAt)
	if isConstraintErr(err) {
		return ErrConflict
	}
	return err
}

const roundCols = `SELECT id, user_id, game, bet_amount, stake_units, currency,
	server_seed, server_seed_hash, client_seed, nonce, draw_count,
	status, stage, params_json, session_json, actions_json, outcome_json, payout,
	created_at, updated_at, settled_at FROM rounds`

func scanRound(scan func(dest ...any) error) (*Round, error) {
	var r Round
	var bet, payout string
	var settledAt sql.NullTime
	err := scan(&r.ID, &r.UserID, &r.Game, &bet, &r.StakeUnits, &r.Currency,
		&r.ServerSeed, &r.ServerSeedHash, &r.ClientSeed, &r.Nonce, &r.DrawCount,
		&r.Status, &r.Stage, &r.ParamsJSON, &r.SessionJSON, &r.ActionsJSON, &r.OutcomeJSON, &payout,
		&r.CreatedAt, &r.UpdatedAt, &settledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.BetAmount, err = decimal.NewFromString(bet); err != nil {
		return nil, err
	}
	if r.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, err
	}
	if settledAt.Valid {
		t := settledAt.Time
		r.SettledAt = &t
	}
	return &r, nil
}

func (s *SQLiteDB) GetRound(ctx context.Context, id string) (*Round, error) {
	return scanRound(s.db.QueryRowContext(ctx, roundCols+` WHERE id=?`, id).Scan)
}

func (s *SQLiteDB) GetOpenRound(ctx context.Context, userID, game string) (*Round, error) {
	return scanRound(s.db.QueryRowContext(ctx,
		roundCols+` WHERE user_id=? AND game=? AND status=? ORDER BY created_at DESC LIMIT 1`,
		userID, game, RoundOpen).Scan)
}

func (s *SQLiteDB) CountOpenRoundsByHash(ctx context.Context, serverSeedHash string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rounds WHERE server_seed_hash=? AND status=?`,
		serverSeedHash, RoundOpen).Scan(&n)
	return n, err
}

func (s *SQLiteDB) UpdateRoundSession(ctx context.Context, id, stage, sessionJSON, actionsJSON string, stakeUnits int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET stage=?, session_json=?, actions_json=?, stake_units=?, updated_at=?
		 WHERE id=? AND status=?`,
		stage, sessionJSON, actionsJSON, stakeUnits, time.Now().UTC(), id, RoundOpen)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) SettleRound(ctx context.Context, id, stage, outcomeJSON, actionsJSON string, payout decimal.Decimal, drawCount int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET status=?, stage=?, outcome_json=?, actions_json=?, payout=?, draw_count=?,
			session_json='', updated_at=?, settled_at=?
		 WHERE id=? AND status=?`,
		RoundSettled, stage, outcomeJSON, actionsJSON, payout.String(), drawCount,
		now, now, id, RoundOpen)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) VoidRound(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET status=?, updated_at=?, settled_at=? WHERE id=? AND status=?`,
		RoundVoid, now, now, id, RoundOpen)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) ListStaleOpenRounds(ctx context.Context, idleSince time.Time, limit int) ([]Round, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		roundCols+` WHERE status=? AND updated_at<? ORDER BY updated_at ASC LIMIT ?`,
		RoundOpen, idleSince.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListUnpaidSettledRounds finds rounds whose settle committed but whose
// payout credit never landed (a crash or exhausted CAS retries between
// the two writes). Payout is stored as text, so the comparison casts.
func (s *SQLiteDB) ListUnpaidSettledRounds(ctx context.Context, limit int) ([]Round, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		roundCols+` WHERE status=? AND CAST(payout AS REAL)>0 AND NOT EXISTS (
			SELECT 1 FROM ledger WHERE ledger.round_id=rounds.id AND ledger.kind=?)
		 ORDER BY settled_at ASC LIMIT ?`,
		RoundSettled, EntryCredit, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isConstraintErr(err error) bool {
	// modernc sqlite reports constraint violations in the message text.
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "unique constraint")
}
