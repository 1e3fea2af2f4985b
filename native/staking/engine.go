package staking

import (
	"fmt"
	"math/big"
	"time"

	"relicpool/core/events"
	"relicpool/core/types"
)

// engineState describes the minimal functionality the staking engine needs
// from the surrounding state implementation. Implementations must hand out
// deep copies: the engine mutates returned records freely and persists them
// back only when the whole operation succeeds.
type engineState interface {
	PoolConfig() (*PoolConfig, bool, error)
	SetPoolConfig(*PoolConfig) error
	Accumulator() (*AccumulatorState, bool, error)
	SetAccumulator(*AccumulatorState) error
	StakerGet(addr [20]byte) (*StakerRecord, bool, error)
	StakerPut(*StakerRecord) error
	StakerDelete(addr [20]byte) error
	StakerOwners() ([][20]byte, error)
	AssetGet(assetID uint64) (*AssetStake, bool, error)
	AssetPut(*AssetStake) error
	AssetDelete(assetID uint64) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// AssetStake records custody metadata for one staked asset: who staked it and
// the contribution score that was locked in at deposit time. Freezing the
// score keeps weight subtraction on exit exact even if the oracle later moves,
// and lets the emergency path run without touching the oracle at all.
type AssetStake struct {
	AssetID uint64   `json:"assetId"`
	Owner   [20]byte `json:"owner"`
	Weight  *big.Int `json:"weight"`
}

// Clone produces a deep copy of the asset record.
func (a *AssetStake) Clone() *AssetStake {
	if a == nil {
		return nil
	}
	return &AssetStake{AssetID: a.AssetID, Owner: a.Owner, Weight: copyBigInt(a.Weight)}
}

// Engine orchestrates deposit, withdrawal, emergency-withdrawal, and claim
// transitions for a single pool. Every mutating operation checkpoints the
// global accumulator and the caller's ledger entry before any stake-weighted
// quantity changes, and persists nothing until the custody transfer has
// succeeded.
type Engine struct {
	pool      [20]byte
	state     engineState
	oracle    ScoreOracle
	custodian Custodian
	emitter   events.Emitter
	nowFn     func() int64

	// inFlight rejects custody hooks that try to re-enter a mutating
	// operation. The execution model is strictly sequential, so a plain flag
	// is the only guard needed.
	inFlight  bool
	expecting *uint64
}

// NewEngine creates a staking engine bound to the given pool address with a
// no-op emitter. Callers wire state, oracle, and custodian before use.
func NewEngine(pool [20]byte) *Engine {
	return &Engine{
		pool:    pool,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// PoolAddress returns the address the engine is bound to.
func (e *Engine) PoolAddress() [20]byte { return e.pool }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustodian configures the asset custody boundary.
func (e *Engine) SetCustodian(c Custodian) { e.custodian = c }

// SetOracle configures the contribution-score oracle. Initialize wires it for
// new pools; rehydrated pools wire it here.
func (e *Engine) SetOracle(oracle ScoreOracle) { e.oracle = oracle }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) begin() error {
	if e.inFlight {
		return ErrReentrantCall
	}
	e.inFlight = true
	return nil
}

func (e *Engine) end() {
	e.inFlight = false
	e.expecting = nil
}

// OnAssetReceived is the receipt acknowledgment hook the custody boundary
// invokes when an asset lands in pool custody. Only the asset the engine is
// currently pulling in is accepted; anything else is rejected so stray
// transfers cannot create untracked custody.
func (e *Engine) OnAssetReceived(from [20]byte, assetID uint64) error {
	if e == nil || !e.inFlight || e.expecting == nil || *e.expecting != assetID {
		return ErrUnexpectedAsset
	}
	return nil
}

func (e *Engine) loadConfig() (*PoolConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.PoolConfig()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg.Clone(), nil
}

func (e *Engine) loadAccumulator() (*AccumulatorState, error) {
	acc, ok, err := e.state.Accumulator()
	if err != nil {
		return nil, err
	}
	if !ok || acc == nil {
		return nil, ErrNotInitialized
	}
	return acc.Clone().normalize(), nil
}

func (e *Engine) requireAdmin(cfg *PoolConfig, caller [20]byte) error {
	if caller != cfg.Admin {
		return ErrUnauthorized
	}
	return nil
}

// Initialize binds the pool to its reward token, collection, oracle, emission
// rate, and administrator. Callable exactly once; claims start disabled.
func (e *Engine) Initialize(rewardToken, collection [20]byte, oracle ScoreOracle, emissionRate *big.Int, admin [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if oracle == nil {
		return errNilOracle
	}
	if _, ok, err := e.state.PoolConfig(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	cfg := &PoolConfig{
		RewardToken:  rewardToken,
		Collection:   collection,
		EmissionRate: copyBigInt(emissionRate),
		Admin:        admin,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := e.state.SetPoolConfig(cfg); err != nil {
		return err
	}
	if err := e.state.SetAccumulator(NewAccumulatorState(e.now())); err != nil {
		return err
	}
	e.oracle = oracle
	return nil
}

// Deposit moves an asset into pool custody and starts accruing rewards for it
// at the oracle's contribution score. The custody transfer must succeed or the
// operation aborts with no persisted state change.
func (e *Engine) Deposit(depositor [20]byte, assetID uint64) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	if e.custodian == nil {
		return errNilCustodian
	}
	if e.oracle == nil {
		return errNilOracle
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if _, staked, err := e.state.AssetGet(assetID); err != nil {
		return err
	} else if staked {
		return ErrAssetAlreadyStaked
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return err
	}
	now := e.now()

	staker, ok, err := e.state.StakerGet(depositor)
	if err != nil {
		return err
	}
	if !ok {
		staker = NewStakerRecord(depositor, acc.RewardPointsPerWeight)
	} else {
		staker = staker.Clone().normalize()
	}
	checkpointStaker(cfg, acc, staker, now)

	score, err := e.oracle.Score(assetID)
	if err != nil {
		return fmt.Errorf("staking: score lookup for asset %d: %w", assetID, err)
	}
	if score == nil || score.Sign() < 0 {
		return ErrNegativeScore
	}
	weight := new(big.Int).Set(score)
	if err := staker.addAsset(assetID); err != nil {
		return err
	}
	staker.Weight = new(big.Int).Add(staker.Weight, weight)
	acc.TotalWeight = new(big.Int).Add(acc.TotalWeight, weight)

	e.expecting = &assetID
	if err := e.custodian.Transfer(depositor, e.pool, assetID); err != nil {
		return fmt.Errorf("staking: custody transfer in: %w", err)
	}
	e.expecting = nil

	if err := e.state.SetAccumulator(acc); err != nil {
		return err
	}
	if err := e.state.StakerPut(staker); err != nil {
		return err
	}
	if err := e.state.AssetPut(&AssetStake{AssetID: assetID, Owner: depositor, Weight: weight}); err != nil {
		return err
	}
	e.emit(events.Staked{Pool: e.pool, Depositor: depositor, AssetID: assetID, Weight: weight})
	return nil
}

// Withdraw settles rewards in full, removes the asset from the depositor's
// ledger, and returns custody. The departing weight earns up through this
// instant; claims must therefore be enabled, otherwise the emergency path is
// the only exit.
func (e *Engine) Withdraw(depositor [20]byte, assetID uint64) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	if e.custodian == nil {
		return errNilCustodian
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	asset, staker, err := e.loadOwnedAsset(depositor, assetID)
	if err != nil {
		return err
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return err
	}
	now := e.now()

	paid, earnedDelta, vaultAcc, depositorAcc, err := e.settleClaim(cfg, acc, staker, now)
	if err != nil {
		return err
	}

	checkpointStaker(cfg, acc, staker, now)
	if err := e.unstake(acc, staker, asset); err != nil {
		return err
	}

	if err := e.custodian.Transfer(e.pool, depositor, assetID); err != nil {
		return fmt.Errorf("staking: custody transfer out: %w", err)
	}

	if err := e.state.SetAccumulator(acc); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.pool[:], vaultAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(depositor[:], depositorAcc); err != nil {
		return err
	}
	if err := e.persistOrDiscard(staker); err != nil {
		return err
	}
	if err := e.state.AssetDelete(assetID); err != nil {
		return err
	}
	if earnedDelta.Sign() > 0 || paid.Sign() > 0 {
		e.emit(events.RewardPaid{Pool: e.pool, Depositor: depositor, Paid: paid, Earned: earnedDelta})
	}
	e.emit(events.Unstaked{Pool: e.pool, Depositor: depositor, AssetID: assetID, Weight: asset.Weight})
	return nil
}

// EmergencyWithdraw returns custody of the asset while explicitly skipping all
// reward settlement. It exists as a circuit breaker for when reward
// computation or the reward token itself is malfunctioning; any accrued but
// unclaimed reward may become permanently unclaimable.
func (e *Engine) EmergencyWithdraw(depositor [20]byte, assetID uint64) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	if e.custodian == nil {
		return errNilCustodian
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	asset, staker, err := e.loadOwnedAsset(depositor, assetID)
	if err != nil {
		return err
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return err
	}

	// The global accumulator still checkpoints here: the interval that just
	// ended must be priced against the weight that was staked during it. Only
	// the per-staker settlement is skipped.
	checkpointGlobal(cfg, acc, e.now())
	if err := e.unstake(acc, staker, asset); err != nil {
		return err
	}

	if err := e.custodian.Transfer(e.pool, depositor, assetID); err != nil {
		return fmt.Errorf("staking: custody transfer out: %w", err)
	}

	if err := e.state.SetAccumulator(acc); err != nil {
		return err
	}
	if err := e.persistOrDiscard(staker); err != nil {
		return err
	}
	if err := e.state.AssetDelete(assetID); err != nil {
		return err
	}
	e.emit(events.EmergencyUnstake{Pool: e.pool, Depositor: depositor, AssetID: assetID, Weight: asset.Weight})
	return nil
}

// ClaimReward settles the caller's accrued rewards and pays out the unclaimed
// balance, capped at the vault's current reward-token balance. Any shortfall
// is truncated, not queued.
func (e *Engine) ClaimReward(depositor [20]byte) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return err
	}
	staker, ok, err := e.state.StakerGet(depositor)
	if err != nil {
		return err
	}
	if !ok {
		if !cfg.ClaimsEnabled {
			return ErrClaimsDisabled
		}
		return nil
	}
	staker = staker.Clone().normalize()
	now := e.now()

	paid, earnedDelta, vaultAcc, depositorAcc, err := e.settleClaim(cfg, acc, staker, now)
	if err != nil {
		return err
	}

	if err := e.state.SetAccumulator(acc); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.pool[:], vaultAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(depositor[:], depositorAcc); err != nil {
		return err
	}
	if err := e.state.StakerPut(staker); err != nil {
		return err
	}
	if earnedDelta.Sign() > 0 || paid.Sign() > 0 {
		e.emit(events.RewardPaid{Pool: e.pool, Depositor: depositor, Paid: paid, Earned: earnedDelta})
	}
	return nil
}

// settleClaim checkpoints the staker, moves the unclaimed balance to released,
// and computes the actual payout against the vault balance. It mutates the
// provided clones plus freshly cloned accounts; nothing is persisted here.
// Returns the paid amount and the pre-cap unclaimed amount.
func (e *Engine) settleClaim(cfg *PoolConfig, acc *AccumulatorState, staker *StakerRecord, now int64) (*big.Int, *big.Int, *types.Account, *types.Account, error) {
	if !cfg.ClaimsEnabled {
		return nil, nil, nil, nil, ErrClaimsDisabled
	}
	checkpointStaker(cfg, acc, staker, now)
	payable := staker.Unclaimed()
	staker.ReleasedCumulative = copyBigInt(staker.EarnedCumulative)

	vaultAcc, err := e.state.GetAccount(e.pool[:])
	if err != nil {
		return nil, nil, nil, nil, err
	}
	depositorAcc, err := e.state.GetAccount(staker.Owner[:])
	if err != nil {
		return nil, nil, nil, nil, err
	}
	vaultAcc = vaultAcc.Clone().EnsureDefaults()
	depositorAcc = depositorAcc.Clone().EnsureDefaults()

	paid := new(big.Int).Set(payable)
	if paid.Cmp(vaultAcc.Balance) > 0 {
		paid.Set(vaultAcc.Balance)
	}
	if paid.Sign() > 0 {
		vaultAcc.Balance = new(big.Int).Sub(vaultAcc.Balance, paid)
		depositorAcc.Balance = new(big.Int).Add(depositorAcc.Balance, paid)
	}
	return paid, payable, vaultAcc, depositorAcc, nil
}

// loadOwnedAsset resolves the asset record and the owning staker record,
// enforcing the ownership precondition shared by both withdrawal paths.
func (e *Engine) loadOwnedAsset(depositor [20]byte, assetID uint64) (*AssetStake, *StakerRecord, error) {
	asset, ok, err := e.state.AssetGet(assetID)
	if err != nil {
		return nil, nil, err
	}
	if !ok || asset.Owner != depositor {
		return nil, nil, ErrNotAssetOwner
	}
	staker, ok, err := e.state.StakerGet(depositor)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("staking: missing ledger entry for asset %d owner", assetID)
	}
	return asset.Clone(), staker.Clone().normalize(), nil
}

// unstake applies the weight and bookkeeping reduction shared by ordinary and
// emergency withdrawals. The caller is responsible for any reward settlement
// beforehand.
func (e *Engine) unstake(acc *AccumulatorState, staker *StakerRecord, asset *AssetStake) error {
	weight := bigOrZero(asset.Weight)
	if staker.Weight.Cmp(weight) < 0 || acc.TotalWeight.Cmp(weight) < 0 {
		return fmt.Errorf("staking: asset %d weight exceeds staked weight", asset.AssetID)
	}
	if err := staker.removeAsset(asset.AssetID); err != nil {
		return err
	}
	staker.Weight = new(big.Int).Sub(staker.Weight, weight)
	acc.TotalWeight = new(big.Int).Sub(acc.TotalWeight, weight)
	return nil
}

// persistOrDiscard writes the staker record back, or removes it once weight
// has returned to zero. A zero-weight record with unclaimed residue is
// retained instead of discarded so the residue stays claimable.
func (e *Engine) persistOrDiscard(staker *StakerRecord) error {
	if staker.Weight.Sign() == 0 && len(staker.Assets) == 0 && staker.Unclaimed().Sign() == 0 {
		return e.state.StakerDelete(staker.Owner)
	}
	return e.state.StakerPut(staker)
}

// SetEmissionRate updates the emission rate. The accumulator is checkpointed
// first so the interval that just ended is still priced at the old rate.
func (e *Engine) SetEmissionRate(caller [20]byte, rate *big.Int) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireAdmin(cfg, caller); err != nil {
		return err
	}
	if rate == nil || rate.Sign() <= 0 {
		return ErrZeroEmissionRate
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return err
	}
	checkpointGlobal(cfg, acc, e.now())
	cfg.EmissionRate = copyBigInt(rate)
	if err := e.state.SetAccumulator(acc); err != nil {
		return err
	}
	return e.state.SetPoolConfig(cfg)
}

// SetClaimsEnabled toggles whether claims (and therefore ordinary
// withdrawals) are allowed.
func (e *Engine) SetClaimsEnabled(caller [20]byte, enabled bool) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireAdmin(cfg, caller); err != nil {
		return err
	}
	cfg.ClaimsEnabled = enabled
	if err := e.state.SetPoolConfig(cfg); err != nil {
		return err
	}
	e.emit(events.ClaimableStatusUpdated{Pool: e.pool, Enabled: enabled})
	return nil
}

// SetRewardsToken rotates the reward token binding.
func (e *Engine) SetRewardsToken(caller, token [20]byte) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireAdmin(cfg, caller); err != nil {
		return err
	}
	previous := cfg.RewardToken
	cfg.RewardToken = token
	if err := e.state.SetPoolConfig(cfg); err != nil {
		return err
	}
	e.emit(events.RewardsTokenUpdated{Pool: e.pool, Previous: previous, Current: token})
	return nil
}

// TransferOwnership hands pool administration to a new identity.
func (e *Engine) TransferOwnership(caller, newAdmin [20]byte) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireAdmin(cfg, caller); err != nil {
		return err
	}
	cfg.Admin = newAdmin
	return e.state.SetPoolConfig(cfg)
}

// Config returns a copy of the current pool configuration.
func (e *Engine) Config() (*PoolConfig, error) {
	return e.loadConfig()
}

// TotalStakedWeight returns the sum of all stakers' weights.
func (e *Engine) TotalStakedWeight() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, err := e.loadConfig(); err != nil {
		return nil, err
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return nil, err
	}
	return acc.TotalWeight, nil
}

// StakedAssets returns the asset identifiers currently staked by the
// depositor, in ledger order.
func (e *Engine) StakedAssets(depositor [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	staker, ok, err := e.state.StakerGet(depositor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return append([]uint64(nil), staker.Assets...), nil
}

// AssetScore reports the asset's current contribution score from the oracle.
func (e *Engine) AssetScore(assetID uint64) (*big.Int, error) {
	if e == nil || e.oracle == nil {
		return nil, errNilOracle
	}
	return e.oracle.Score(assetID)
}

// CheckConservation verifies that the sum of all staker weights equals the
// accumulator's total. Exposed for the operational health surface and for
// invariant tests.
func (e *Engine) CheckConservation() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return err
	}
	owners, err := e.state.StakerOwners()
	if err != nil {
		return err
	}
	sum := big.NewInt(0)
	for _, owner := range owners {
		staker, ok, err := e.state.StakerGet(owner)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		sum.Add(sum, bigOrZero(staker.Weight))
	}
	if sum.Cmp(acc.TotalWeight) != 0 {
		return fmt.Errorf("staking: weight conservation broken: stakers %s vs total %s", sum, acc.TotalWeight)
	}
	return nil
}

// PendingReward computes what a claim at the current time would settle for the
// depositor, without committing anything: the unclaimed balance plus the
// not-yet-checkpointed share of accumulator growth.
func (e *Engine) PendingReward(depositor [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	acc, err := e.loadAccumulator()
	if err != nil {
		return nil, err
	}
	staker, ok, err := e.state.StakerGet(depositor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	staker = staker.Clone().normalize()
	checkpointGlobal(cfg, acc, e.now())
	pending := stakerOwed(acc, staker)
	return pending.Add(pending, staker.Unclaimed()), nil
}
