// Package wallet applies balance deltas with optimistic concurrency.
// Every delta is paired with a ledger entry keyed on (round, kind), so
// a retried or replayed operation either succeeds once or reports the
// entry that already exists.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/store"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletContention    = errors.New("wallet contention, retries exhausted")
)

const casAttempts = 5

type Service struct {
	db store.DB
}

func New(db store.DB) *Service {
	return &Service{db: db}
}

// GetOrCreate returns the wallet for (user, currency), creating an
// empty one on first sight.
func (s *Service) GetOrCreate(ctx context.Context, userID, currency string) (*store.Wallet, error) {
	w, err := s.db.GetWallet(ctx, userID, currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	nw := &store.Wallet{UserID: userID, Currency: currency, Balance: decimal.Zero}
	if err := s.db.CreateWallet(ctx, nw); err != nil {
		// Lost a creation race; the row exists now.
		if errors.Is(err, store.ErrConflict) {
			return s.db.GetWallet(ctx, userID, currency)
		}
		return nil, err
	}
	return nw, nil
}

// Debit removes amount from the wallet, recording a debit entry for
// roundID. Fails with ErrInsufficientBalance without touching the
// wallet when the balance does not cover the amount.
func (s *Service) Debit(ctx context.Context, userID, currency, roundID string, amount decimal.Decimal) (*store.Wallet, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative debit %s", amount)
	}
	return s.apply(ctx, userID, currency, roundID, store.EntryDebit, amount.Neg(), true)
}

// DebitStep removes an additional stake mid-round (double, split).
// step disambiguates the ledger key so each extra debit lands exactly
// once even when the action is retried.
func (s *Service) DebitStep(ctx context.Context, userID, currency, roundID string, step int, amount decimal.Decimal) (*store.Wallet, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative debit %s", amount)
	}
	kind := fmt.Sprintf("%s.%d", store.EntryDebit, step)
	return s.apply(ctx, userID, currency, roundID, kind, amount.Neg(), true)
}

// Credit adds a win payout to the wallet.
func (s *Service) Credit(ctx context.Context, userID, currency, roundID string, amount decimal.Decimal) (*store.Wallet, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative credit %s", amount)
	}
	return s.apply(ctx, userID, currency, roundID, store.EntryCredit, amount, false)
}

// Refund returns a stake after a round is voided.
func (s *Service) Refund(ctx context.Context, userID, currency, roundID string, amount decimal.Decimal) (*store.Wallet, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative refund %s", amount)
	}
	return s.apply(ctx, userID, currency, roundID, store.EntryRefund, amount, false)
}

// Deposit funds a wallet outside of any round. The entry is keyed on a
// caller-supplied reference so repeated submissions stay idempotent.
func (s *Service) Deposit(ctx context.Context, userID, currency, reference string, amount decimal.Decimal) (*store.Wallet, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("non-positive deposit %s", amount)
	}
	return s.apply(ctx, userID, currency, reference, store.EntryDeposit, amount, false)
}

// apply runs one CAS loop: read wallet, check funds, attempt the
// guarded update. Version conflicts are retried with backoff; a
// duplicate ledger entry means this exact operation already landed, so
// the recorded result is returned as a no-op success.
func (s *Service) apply(ctx context.Context, userID, currency, roundID, kind string, delta decimal.Decimal, checkFunds bool) (*store.Wallet, error) {
	if _, err := s.db.GetLedgerEntry(ctx, roundID, kind); err == nil {
		return s.db.GetWallet(ctx, userID, currency)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var out *store.Wallet
	backoff := retry.WithMaxRetries(casAttempts, retry.NewExponential(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		w, err := s.GetOrCreate(ctx, userID, currency)
		if err != nil {
			return err
		}
		if checkFunds && w.Balance.Add(delta).IsNegative() {
			return ErrInsufficientBalance
		}
		entry := &store.LedgerEntry{RoundID: roundID, Kind: kind}
		next, err := s.db.ApplyWalletDelta(ctx, userID, currency, delta, w.Version, entry)
		if errors.Is(err, store.ErrConflict) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEntry) {
			// Lost a race with our own retry or a concurrent replay;
			// the delta is already on the books.
			return s.db.GetWallet(ctx, userID, currency)
		}
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrWalletContention
		}
		return nil, err
	}
	return out, nil
}
