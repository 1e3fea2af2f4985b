package factory

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"relicpool/core/events"
	"relicpool/native/staking"
	"relicpool/state/pool"
	"relicpool/storage"
)

var (
	// ErrPoolExists is returned when a pool with the same derived address has
	// already been provisioned.
	ErrPoolExists = errors.New("factory: pool already exists")
	// ErrPoolNotFound is returned when a lookup misses the registry.
	ErrPoolNotFound = errors.New("factory: pool not found")
)

const registryPrefix = "factory/pools/"

// PoolSpec carries everything a new pool instance is bound to at creation.
type PoolSpec struct {
	RewardToken  [20]byte
	Collection   [20]byte
	Oracle       staking.ScoreOracle
	Custodian    staking.Custodian
	EmissionRate *big.Int
	Admin        [20]byte
	Salt         uint64
}

// registryEntry is the persisted form of a provisioned pool. The oracle and
// custodian are runtime wiring and are re-supplied on rehydration.
type registryEntry struct {
	Pool        [20]byte `json:"pool"`
	RewardToken [20]byte `json:"rewardToken"`
	Collection  [20]byte `json:"collection"`
	Salt        uint64   `json:"salt"`
}

// PoolAddress derives the deterministic address for a pool instance from the
// deployer identity, the bindings, and a salt. The same inputs always yield
// the same address, so a deployment can be recomputed ahead of creation.
func PoolAddress(deployer, rewardToken, collection [20]byte, salt uint64) [20]byte {
	var saltBuf [8]byte
	binary.BigEndian.PutUint64(saltBuf[:], salt)
	digest := ethcrypto.Keccak256(deployer[:], rewardToken[:], collection[:], saltBuf[:])
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

// Factory provisions independent pool instances over a shared database. Each
// pool gets its own state namespace and engine; the factory keeps the live
// engines in an in-memory registry mirrored to storage for restarts.
type Factory struct {
	mu       sync.RWMutex
	deployer [20]byte
	db       storage.Database
	emitter  events.Emitter
	pools    map[[20]byte]*staking.Engine
}

// New creates a factory owned by the deployer identity.
func New(deployer [20]byte, db storage.Database) *Factory {
	return &Factory{
		deployer: deployer,
		db:       db,
		emitter:  events.NoopEmitter{},
		pools:    make(map[[20]byte]*staking.Engine),
	}
}

// Deployer returns the identity the factory derives pool addresses from.
func (f *Factory) Deployer() [20]byte { return f.deployer }

// SetEmitter configures the event emitter passed to provisioned pools.
// Passing nil resets to a no-op implementation.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	f.mu.Lock()
	f.emitter = emitter
	f.mu.Unlock()
}

func registryKey(addr [20]byte) []byte {
	return []byte(registryPrefix + hex.EncodeToString(addr[:]))
}

// CreatePool derives the pool address, initializes a fresh engine bound to the
// spec, and records it in the registry. Creating the same spec twice fails
// with ErrPoolExists.
func (f *Factory) CreatePool(spec PoolSpec) (*staking.Engine, error) {
	if spec.Oracle == nil {
		return nil, fmt.Errorf("factory: pool spec missing oracle")
	}
	if spec.Custodian == nil {
		return nil, fmt.Errorf("factory: pool spec missing custodian")
	}
	addr := PoolAddress(f.deployer, spec.RewardToken, spec.Collection, spec.Salt)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pools[addr]; ok {
		return nil, ErrPoolExists
	}
	if ok, err := f.db.Has(registryKey(addr)); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPoolExists
	}

	engine := staking.NewEngine(addr)
	engine.SetState(pool.NewManager(f.db, addr))
	engine.SetCustodian(spec.Custodian)
	engine.SetEmitter(f.emitter)
	if err := engine.Initialize(spec.RewardToken, spec.Collection, spec.Oracle, spec.EmissionRate, spec.Admin); err != nil {
		return nil, err
	}
	if err := putEntry(f.db, registryEntry{
		Pool:        addr,
		RewardToken: spec.RewardToken,
		Collection:  spec.Collection,
		Salt:        spec.Salt,
	}); err != nil {
		return nil, err
	}
	f.pools[addr] = engine
	f.emitter.Emit(events.PoolCreated{
		Pool:         addr,
		Deployer:     f.deployer,
		RewardToken:  spec.RewardToken,
		Collection:   spec.Collection,
		EmissionRate: spec.EmissionRate,
	})
	return engine, nil
}

// Pool returns the live engine for an address.
func (f *Factory) Pool(addr [20]byte) (*staking.Engine, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	engine, ok := f.pools[addr]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return engine, nil
}

// Pools lists the addresses of all live pools.
func (f *Factory) Pools() [][20]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	addrs := make([][20]byte, 0, len(f.pools))
	for addr := range f.pools {
		addrs = append(addrs, addr)
	}
	return addrs
}

// Rehydrate rebuilds live engines for every pool recorded in the registry.
// The oracle and custodian are runtime capabilities the caller supplies per
// pool address.
func (f *Factory) Rehydrate(custodian staking.Custodian, oracleFor func(pool [20]byte) staking.ScoreOracle) error {
	if custodian == nil {
		return fmt.Errorf("factory: rehydrate requires a custodian")
	}
	if oracleFor == nil {
		return fmt.Errorf("factory: rehydrate requires an oracle resolver")
	}
	entries, err := listEntries(f.db)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range entries {
		if _, ok := f.pools[entry.Pool]; ok {
			continue
		}
		oracle := oracleFor(entry.Pool)
		if oracle == nil {
			return fmt.Errorf("factory: no oracle for pool %x", entry.Pool)
		}
		engine := staking.NewEngine(entry.Pool)
		engine.SetState(pool.NewManager(f.db, entry.Pool))
		engine.SetCustodian(custodian)
		engine.SetOracle(oracle)
		engine.SetEmitter(f.emitter)
		f.pools[entry.Pool] = engine
	}
	return nil
}
