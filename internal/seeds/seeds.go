// Package seeds manages the commit/reveal lifecycle of server seed
// pairs. A server seed is generated secretly, its SHA-256 hash is
// published immediately, and the plain seed is revealed only when the
// pair is rotated out and no open round still references it.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/provablyhq/casino-engine/internal/engine"
	"github.com/provablyhq/casino-engine/internal/store"
)

var (
	// ErrSeedInUse is returned from Rotate while open rounds still
	// reference the active pair.
	ErrSeedInUse = errors.New("seed pair has open rounds")
	// ErrSeedVerification means a freshly generated seed failed its own
	// hash check. It should never happen; rotation aborts rather than
	// publish a commitment the engine cannot honor.
	ErrSeedVerification  = errors.New("seed hash verification failed")
	ErrInvalidClientSeed = errors.New("invalid client seed")
)

var clientSeedRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Ticket is the seed material snapped for one round: everything the
// RNG needs plus the hash the player saw before betting.
type Ticket struct {
	PairID         string
	ServerSeed     string
	ServerSeedHash string
	ClientSeed     string
	Nonce          uint64
}

type Manager struct {
	db store.DB

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func NewManager(db store.DB) *Manager {
	return &Manager{db: db, users: make(map[string]*sync.Mutex)}
}

// userLock serializes seed operations per user so rotation cannot
// interleave with nonce draws.
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

// Current returns the user's active seed pair, creating one if the
// user has never played.
func (m *Manager) Current(ctx context.Context, userID string) (*store.SeedPair, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return m.currentLocked(ctx, userID)
}

func (m *Manager) currentLocked(ctx context.Context, userID string) (*store.SeedPair, error) {
	p, err := m.db.GetActiveSeedPair(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	p, err = newPair(userID)
	if err != nil {
		return nil, err
	}
	if err := m.db.CreateSeedPair(ctx, p); err != nil {
		// Lost a creation race.
		if errors.Is(err, store.ErrConflict) {
			return m.db.GetActiveSeedPair(ctx, userID)
		}
		return nil, err
	}
	return p, nil
}

// SetClientSeed replaces the client seed on the active pair. The next
// bet uses the new seed; settled rounds keep their snapshots.
func (m *Manager) SetClientSeed(ctx context.Context, userID, clientSeed string) (*store.SeedPair, error) {
	if !clientSeedRe.MatchString(clientSeed) {
		return nil, ErrInvalidClientSeed
	}
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.currentLocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.db.SetClientSeed(ctx, p.ID, clientSeed); err != nil {
		return nil, err
	}
	p.ClientSeed = clientSeed
	return p, nil
}

// NextTicket increments the active pair's nonce and returns a snapshot
// of the seed material for a new round.
func (m *Manager) NextTicket(ctx context.Context, userID string) (*Ticket, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.currentLocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	nonce, err := m.db.NextNonce(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &Ticket{
		PairID:         p.ID,
		ServerSeed:     p.ServerSeed,
		ServerSeedHash: p.ServerSeedHash,
		ClientSeed:     p.ClientSeed,
		Nonce:          nonce,
	}, nil
}

// Rotate retires the active pair, revealing its server seed, and
// activates a fresh pair with the same client seed (or newClientSeed
// if given). Fails with ErrSeedInUse while open rounds still reference
// the pair.
func (m *Manager) Rotate(ctx context.Context, userID, newClientSeed string) (revealed, next *store.SeedPair, err error) {
	if newClientSeed != "" && !clientSeedRe.MatchString(newClientSeed) {
		return nil, nil, ErrInvalidClientSeed
	}
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	old, err := m.currentLocked(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	open, err := m.db.CountOpenRoundsByHash(ctx, old.ServerSeedHash)
	if err != nil {
		return nil, nil, err
	}
	if open > 0 {
		return nil, nil, fmt.Errorf("%w: %d open", ErrSeedInUse, open)
	}

	np, err := newPair(userID)
	if err != nil {
		return nil, nil, err
	}
	np.ClientSeed = old.ClientSeed
	if newClientSeed != "" {
		np.ClientSeed = newClientSeed
	}
	if err := m.db.RotateSeedPair(ctx, old.ID, np); err != nil {
		return nil, nil, err
	}

	revealed, err = m.db.GetSeedPairByHash(ctx, old.ServerSeedHash)
	if err != nil {
		return nil, nil, err
	}
	return revealed, np, nil
}

// Reveal returns a pair by its published hash. The plain server seed is
// only included once the pair has been rotated out.
func (m *Manager) Reveal(ctx context.Context, serverSeedHash string) (*store.SeedPair, error) {
	p, err := m.db.GetSeedPairByHash(ctx, serverSeedHash)
	if err != nil {
		return nil, err
	}
	if !p.Revealed {
		p.ServerSeed = ""
	}
	return p, nil
}

func newPair(userID string) (*store.SeedPair, error) {
	serverSeed, err := engine.NewServerSeed()
	if err != nil {
		return nil, err
	}
	hash := engine.HashSeed(serverSeed)
	if !engine.VerifySeed(serverSeed, hash) {
		return nil, ErrSeedVerification
	}
	clientSeed, err := engine.NewClientSeed()
	if err != nil {
		return nil, err
	}
	return &store.SeedPair{
		UserID:         userID,
		ServerSeed:     serverSeed,
		ServerSeedHash: hash,
		ClientSeed:     clientSeed,
		Active:         true,
	}, nil
}
