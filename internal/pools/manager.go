package pools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

var _ amm.TokenProgram = (*ledger.Tx)(nil)

const (
	lpDecimals      = 9
	snapshotTimeout = 2 * time.Second
)

// EventEmitter receives committed pool events together with the signature of
// the ledger transaction that produced them.
type EventEmitter interface {
	EmitSigned(ctx context.Context, ev amm.Event, poolName, signature string)
}

type ManagerConfig struct {
	Ledger    *ledger.Ledger
	Events    EventEmitter
	Snapshots storage.SnapshotSink
	Halts     storage.HaltChecker
	ProgramID solana.PublicKey
	Clock     amm.Clock
	Logger    *logrus.Logger
}

// Manager owns every pool engine and runs each operation as one ledger
// transaction. Operations on the same pool are serialized; different pools
// proceed in parallel up to the ledger lock.
type Manager struct {
	ledger    *ledger.Ledger
	events    EventEmitter
	snapshots storage.SnapshotSink
	halts     storage.HaltChecker
	programID solana.PublicKey
	clock     amm.Clock
	logger    *logrus.Logger

	mu     sync.RWMutex
	byID   map[solana.PublicKey]*entry
	byName map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	engine  *amm.Engine
	pending *pendingSink

	id    solana.PublicKey
	name  string
	mintA solana.PublicKey
	mintB solana.PublicKey
}

// pendingSink buffers events until the surrounding ledger transaction commits.
type pendingSink struct {
	events []amm.Event
}

func (s *pendingSink) Emit(_ context.Context, ev amm.Event) {
	s.events = append(s.events, ev)
}

func (s *pendingSink) drain() []amm.Event {
	out := s.events
	s.events = nil
	return out
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = amm.DefaultProgramID
	}
	if cfg.Clock == nil {
		cfg.Clock = amm.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Manager{
		ledger:    cfg.Ledger,
		events:    cfg.Events,
		snapshots: cfg.Snapshots,
		halts:     cfg.Halts,
		programID: cfg.ProgramID,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		byID:      make(map[solana.PublicKey]*entry),
		byName:    make(map[string]*entry),
	}, nil
}

func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

// CreatePool derives the pool accounts, provisions the vaults, fee vaults and
// LP mint, and initializes the pool. Both token mints must already exist.
func (m *Manager) CreatePool(ctx context.Context, def Definition) (amm.Pool, error) {
	if err := def.Fees.Validate(); err != nil {
		return amm.Pool{}, err
	}
	addrs, err := amm.DeriveAddresses(m.programID, def.MintA, def.MintB)
	if err != nil {
		return amm.Pool{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[addrs.Pool]; ok {
		return amm.Pool{}, fmt.Errorf("%w: %s", ErrPoolExists, addrs.Pool)
	}
	if def.Name != "" {
		if _, ok := m.byName[def.Name]; ok {
			return amm.Pool{}, fmt.Errorf("%w: name %q", ErrPoolExists, def.Name)
		}
	}

	e := &entry{
		pending: &pendingSink{},
		id:      addrs.Pool,
		name:    def.Name,
		mintA:   def.MintA,
		mintB:   def.MintB,
	}
	engineCfg := amm.EngineConfig{Clock: m.clock, Events: e.pending, Logger: m.logger}

	sig, err := m.ledger.Update(ctx, func(tx *ledger.Tx) error {
		for _, mint := range []solana.PublicKey{def.MintA, def.MintB} {
			if _, err := tx.Supply(ctx, mint); err != nil {
				return err
			}
		}
		if err := tx.CreateMint(addrs.LPMint, addrs.Authority, lpDecimals); err != nil {
			return fmt.Errorf("create lp mint: %w", err)
		}
		accounts := []struct {
			addr solana.PublicKey
			mint solana.PublicKey
		}{
			{addrs.VaultA, def.MintA},
			{addrs.VaultB, def.MintB},
			{addrs.FeeVaultA, def.MintA},
			{addrs.FeeVaultB, def.MintB},
		}
		for _, a := range accounts {
			if err := tx.CreateAccount(a.addr, a.mint, addrs.Authority); err != nil {
				return fmt.Errorf("create pool account: %w", err)
			}
		}

		engine, err := amm.Initialize(ctx, amm.InitParams{
			Name:    def.Name,
			Addrs:   addrs,
			MintA:   def.MintA,
			MintB:   def.MintB,
			Creator: def.Creator,
			Fees:    def.Fees,
		}, engineCfg)
		if err != nil {
			return err
		}
		e.engine = engine
		return nil
	})
	if err != nil {
		return amm.Pool{}, err
	}

	m.byID[e.id] = e
	if e.name != "" {
		m.byName[e.name] = e
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m.publish(ctx, e, sig)

	m.logger.WithFields(logrus.Fields{
		"pool":   e.id.String(),
		"name":   e.name,
		"mint_a": def.MintA.String(),
		"mint_b": def.MintB.String(),
	}).Info("pool created")
	return e.engine.Pool(), nil
}

// Bootstrap creates every defined pool that does not exist yet, creating
// missing token mints with the pool creator as mint authority.
func (m *Manager) Bootstrap(ctx context.Context, defs []Definition) error {
	for _, def := range defs {
		for _, mint := range []struct {
			addr     solana.PublicKey
			decimals uint8
		}{{def.MintA, def.DecimalsA}, {def.MintB, def.DecimalsB}} {
			if _, err := m.ledger.Mint(mint.addr); err == nil {
				continue
			}
			if err := m.ledger.CreateMint(ctx, mint.addr, def.Creator, mint.decimals); err != nil {
				return fmt.Errorf("create mint %s: %w", mint.addr, err)
			}
		}
		if _, err := m.CreatePool(ctx, def); err != nil {
			if errors.Is(err, ErrPoolExists) {
				continue
			}
			return fmt.Errorf("pool %q: %w", def.Name, err)
		}
	}
	return nil
}

// Get resolves ref as a pool name first, then as a base58 pool address.
func (m *Manager) Get(ref string) (amm.Pool, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return amm.Pool{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Pool(), nil
}

// List returns every pool ordered by name, then address.
func (m *Manager) List() []amm.Pool {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.byID))
	for _, e := range m.byID {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]amm.Pool, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.engine.Pool())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *Manager) lookup(ref string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.byName[ref]; ok {
		return e, nil
	}
	if key, err := solana.PublicKeyFromBase58(ref); err == nil {
		if e, ok := m.byID[key]; ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, ref)
}

func (m *Manager) checkHalt(ctx context.Context, e *entry) error {
	if m.halts == nil {
		return nil
	}
	halted, err := m.halts.IsHalted(ctx, e.id.String())
	if err != nil {
		return fmt.Errorf("check halt: %w", err)
	}
	if halted {
		return fmt.Errorf("%w: %s", ErrTradingHalted, e.id)
	}
	return nil
}

// execute runs fn in one ledger transaction. On failure the pool state is
// restored and buffered events are discarded; on success they are published
// with the transaction signature. The caller holds e.mu.
func (m *Manager) execute(ctx context.Context, e *entry, fn func(tx *ledger.Tx) error) (string, error) {
	before := e.engine.Pool()
	e.pending.drain()

	sig, err := m.ledger.Update(ctx, fn)
	if err != nil {
		e.engine.Restore(before)
		e.pending.drain()
		return "", err
	}

	m.publish(ctx, e, sig)
	return sig, nil
}

func (m *Manager) publish(ctx context.Context, e *entry, sig string) {
	for _, ev := range e.pending.drain() {
		if m.events != nil {
			m.events.EmitSigned(ctx, ev, e.name, sig)
		}
	}

	if m.snapshots == nil {
		return
	}
	snap := models.NewPoolSnapshot(e.engine.Pool(), time.Now())
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer cancel()
	if err := m.snapshots.SavePool(sctx, snap); err != nil {
		m.logger.WithError(err).WithField("pool", e.id.String()).Warn("failed to save pool snapshot")
	}
}

// associated returns owner's associated account for mint without creating it.
func associated(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, err := ledger.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated account: %w", err)
	}
	return ata, nil
}
