package staking

import (
	"fmt"
	"math/big"
)

// PointScale is the fixed-point multiplier applied when reward emission is
// folded into the per-weight accumulator. Settlement divides by the same
// constant, so accrual and payout round-trip without an order-of-magnitude
// drift.
var PointScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

// PoolConfig captures the immutable pool bindings plus the two mutable knobs
// the administrator controls (emission rate and claim toggle).
type PoolConfig struct {
	RewardToken   [20]byte `json:"rewardToken"`
	Collection    [20]byte `json:"collection"`
	EmissionRate  *big.Int `json:"emissionRate"`
	Admin         [20]byte `json:"admin"`
	ClaimsEnabled bool     `json:"claimsEnabled"`
}

// Clone produces a deep copy of the configuration.
func (c *PoolConfig) Clone() *PoolConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.EmissionRate = copyBigInt(c.EmissionRate)
	return &clone
}

// Validate ensures the configuration values fall within acceptable bounds.
func (c *PoolConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("staking: nil pool config")
	}
	if c.EmissionRate == nil || c.EmissionRate.Sign() <= 0 {
		return ErrZeroEmissionRate
	}
	return nil
}

// AccumulatorState tracks the global reward-points-per-weight accumulator.
// RewardPointsPerWeight only moves through checkpointGlobal and never
// decreases.
type AccumulatorState struct {
	TotalWeight           *big.Int `json:"totalWeight"`
	RewardPointsPerWeight *big.Int `json:"rewardPointsPerWeight"`
	LastCheckpointTime    int64    `json:"lastCheckpointTime"`
}

// NewAccumulatorState returns a zeroed accumulator anchored at the provided
// timestamp.
func NewAccumulatorState(now int64) *AccumulatorState {
	return &AccumulatorState{
		TotalWeight:           big.NewInt(0),
		RewardPointsPerWeight: big.NewInt(0),
		LastCheckpointTime:    now,
	}
}

// Clone produces a deep copy of the accumulator state.
func (a *AccumulatorState) Clone() *AccumulatorState {
	if a == nil {
		return nil
	}
	return &AccumulatorState{
		TotalWeight:           copyBigInt(a.TotalWeight),
		RewardPointsPerWeight: copyBigInt(a.RewardPointsPerWeight),
		LastCheckpointTime:    a.LastCheckpointTime,
	}
}

func (a *AccumulatorState) normalize() *AccumulatorState {
	if a.TotalWeight == nil {
		a.TotalWeight = big.NewInt(0)
	}
	if a.RewardPointsPerWeight == nil {
		a.RewardPointsPerWeight = big.NewInt(0)
	}
	return a
}

// StakerRecord is the per-depositor ledger entry. It is created lazily on the
// first deposit and removed once weight returns to zero, provided no unclaimed
// balance remains.
type StakerRecord struct {
	Owner              [20]byte `json:"owner"`
	Assets             []uint64 `json:"assets"`
	Weight             *big.Int `json:"weight"`
	LastRewardSnapshot *big.Int `json:"lastRewardSnapshot"`
	EarnedCumulative   *big.Int `json:"earnedCumulative"`
	ReleasedCumulative *big.Int `json:"releasedCumulative"`

	// assetIndex maps asset id -> position in Assets. Rebuilt from Assets on
	// load; maintained transactionally with every insert and removal.
	assetIndex map[uint64]int
}

// NewStakerRecord creates an empty ledger entry anchored at the current
// accumulator snapshot so pre-existing growth is not retroactively credited.
func NewStakerRecord(owner [20]byte, snapshot *big.Int) *StakerRecord {
	return &StakerRecord{
		Owner:              owner,
		Assets:             nil,
		Weight:             big.NewInt(0),
		LastRewardSnapshot: copyBigInt(snapshot),
		EarnedCumulative:   big.NewInt(0),
		ReleasedCumulative: big.NewInt(0),
		assetIndex:         make(map[uint64]int),
	}
}

// Clone produces a deep copy of the record, including the rebuilt index.
func (r *StakerRecord) Clone() *StakerRecord {
	if r == nil {
		return nil
	}
	clone := &StakerRecord{
		Owner:              r.Owner,
		Assets:             append([]uint64(nil), r.Assets...),
		Weight:             copyBigInt(r.Weight),
		LastRewardSnapshot: copyBigInt(r.LastRewardSnapshot),
		EarnedCumulative:   copyBigInt(r.EarnedCumulative),
		ReleasedCumulative: copyBigInt(r.ReleasedCumulative),
	}
	clone.rebuildIndex()
	return clone
}

func (r *StakerRecord) normalize() *StakerRecord {
	if r.Weight == nil {
		r.Weight = big.NewInt(0)
	}
	if r.LastRewardSnapshot == nil {
		r.LastRewardSnapshot = big.NewInt(0)
	}
	if r.EarnedCumulative == nil {
		r.EarnedCumulative = big.NewInt(0)
	}
	if r.ReleasedCumulative == nil {
		r.ReleasedCumulative = big.NewInt(0)
	}
	if r.assetIndex == nil {
		r.rebuildIndex()
	}
	return r
}

func (r *StakerRecord) rebuildIndex() {
	r.assetIndex = make(map[uint64]int, len(r.Assets))
	for pos, id := range r.Assets {
		r.assetIndex[id] = pos
	}
}

// HasAsset reports whether the record currently tracks the asset.
func (r *StakerRecord) HasAsset(assetID uint64) bool {
	if r == nil {
		return false
	}
	r.normalize()
	_, ok := r.assetIndex[assetID]
	return ok
}

// addAsset appends the asset and records its position in the index table.
func (r *StakerRecord) addAsset(assetID uint64) error {
	r.normalize()
	if _, ok := r.assetIndex[assetID]; ok {
		return fmt.Errorf("staking: asset %d already tracked for owner", assetID)
	}
	r.assetIndex[assetID] = len(r.Assets)
	r.Assets = append(r.Assets, assetID)
	return nil
}

// removeAsset drops the asset via swap-with-last-and-truncate, updating the
// index entry of the element that was moved into the vacated slot.
func (r *StakerRecord) removeAsset(assetID uint64) error {
	r.normalize()
	pos, ok := r.assetIndex[assetID]
	if !ok {
		return fmt.Errorf("staking: asset %d not tracked for owner", assetID)
	}
	last := len(r.Assets) - 1
	if pos != last {
		moved := r.Assets[last]
		r.Assets[pos] = moved
		r.assetIndex[moved] = pos
	}
	r.Assets = r.Assets[:last]
	delete(r.assetIndex, assetID)
	return nil
}

// Unclaimed returns earned minus released. Always non-negative under the
// ledger invariants.
func (r *StakerRecord) Unclaimed() *big.Int {
	if r == nil {
		return big.NewInt(0)
	}
	r.normalize()
	return new(big.Int).Sub(r.EarnedCumulative, r.ReleasedCumulative)
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
