package staking

import "math/big"

// checkpointGlobal folds the time elapsed since the last checkpoint into the
// per-weight accumulator at the configured emission rate. With zero total
// weight the elapsed interval is absorbed by advancing the clock with no point
// accrual: those rewards are foregone, not banked. Calling twice at the same
// instant is a no-op the second time.
//
// Must run before any mutation of TotalWeight, otherwise the interval that
// just ended would be priced against the wrong weight.
func checkpointGlobal(cfg *PoolConfig, acc *AccumulatorState, now int64) {
	acc.normalize()
	elapsed := now - acc.LastCheckpointTime
	if elapsed <= 0 {
		return
	}
	if acc.TotalWeight.Sign() > 0 {
		emitted := new(big.Int).Mul(big.NewInt(elapsed), bigOrZero(cfg.EmissionRate))
		delta := emitted.Mul(emitted, PointScale)
		delta.Quo(delta, acc.TotalWeight)
		acc.RewardPointsPerWeight = new(big.Int).Add(acc.RewardPointsPerWeight, delta)
	}
	acc.LastCheckpointTime = now
}

// checkpointStaker settles the depositor's share of accumulator growth since
// their last snapshot into EarnedCumulative, then re-anchors the snapshot.
// Must run before the depositor's weight changes.
func checkpointStaker(cfg *PoolConfig, acc *AccumulatorState, staker *StakerRecord, now int64) {
	checkpointGlobal(cfg, acc, now)
	staker.normalize()
	owed := stakerOwed(acc, staker)
	if owed.Sign() > 0 {
		staker.EarnedCumulative = new(big.Int).Add(staker.EarnedCumulative, owed)
	}
	staker.LastRewardSnapshot = copyBigInt(acc.RewardPointsPerWeight)
}

// stakerOwed computes the not-yet-credited share of accumulator growth for the
// staker's current weight, descaling by the same PointScale applied on
// accrual.
func stakerOwed(acc *AccumulatorState, staker *StakerRecord) *big.Int {
	delta := new(big.Int).Sub(acc.RewardPointsPerWeight, staker.LastRewardSnapshot)
	if delta.Sign() <= 0 || staker.Weight.Sign() <= 0 {
		return big.NewInt(0)
	}
	owed := delta.Mul(delta, staker.Weight)
	return owed.Quo(owed, PointScale)
}
