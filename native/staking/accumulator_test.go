package staking

import (
	"math/big"
	"testing"
)

func testConfig(rate int64) *PoolConfig {
	return &PoolConfig{EmissionRate: big.NewInt(rate)}
}

func TestCheckpointGlobalAdvancesClockWithoutStake(t *testing.T) {
	cfg := testConfig(10)
	acc := NewAccumulatorState(0)
	checkpointGlobal(cfg, acc, 100)
	if acc.RewardPointsPerWeight.Sign() != 0 {
		t.Fatalf("points accrued with zero weight: %s", acc.RewardPointsPerWeight)
	}
	if acc.LastCheckpointTime != 100 {
		t.Fatalf("clock not advanced: %d", acc.LastCheckpointTime)
	}
}

func TestCheckpointGlobalAccrual(t *testing.T) {
	cfg := testConfig(10)
	acc := NewAccumulatorState(0)
	acc.TotalWeight = big.NewInt(100)
	checkpointGlobal(cfg, acc, 10)

	// 10s * rate 10 = 100 reward units over weight 100.
	want := new(big.Int).Set(PointScale)
	if acc.RewardPointsPerWeight.Cmp(want) != 0 {
		t.Fatalf("points: want %s got %s", want, acc.RewardPointsPerWeight)
	}
}

func TestCheckpointGlobalIdempotentSameInstant(t *testing.T) {
	cfg := testConfig(10)
	acc := NewAccumulatorState(0)
	acc.TotalWeight = big.NewInt(100)
	checkpointGlobal(cfg, acc, 10)
	before := new(big.Int).Set(acc.RewardPointsPerWeight)
	checkpointGlobal(cfg, acc, 10)
	if acc.RewardPointsPerWeight.Cmp(before) != 0 {
		t.Fatalf("second checkpoint at same instant moved points: %s -> %s", before, acc.RewardPointsPerWeight)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	// Accrue then immediately settle: the credited amount must match
	// elapsed * rate (up to integer division dust), not be off by a scale
	// factor.
	cases := []struct {
		rate    int64
		weight  int64
		elapsed int64
	}{
		{rate: 10, weight: 100, elapsed: 10},
		{rate: 1, weight: 3, elapsed: 7},
		{rate: 1_000_000, weight: 123_457, elapsed: 86_400},
	}
	for _, tc := range cases {
		cfg := testConfig(tc.rate)
		acc := NewAccumulatorState(0)
		acc.TotalWeight = big.NewInt(tc.weight)
		staker := NewStakerRecord([20]byte{1}, acc.RewardPointsPerWeight)
		staker.Weight = big.NewInt(tc.weight)

		checkpointStaker(cfg, acc, staker, tc.elapsed)

		want := new(big.Int).Mul(big.NewInt(tc.rate), big.NewInt(tc.elapsed))
		diff := new(big.Int).Sub(want, staker.EarnedCumulative)
		if diff.Sign() < 0 {
			t.Fatalf("rate=%d weight=%d: over-credited: want %s got %s", tc.rate, tc.weight, want, staker.EarnedCumulative)
		}
		// Integer division dust is bounded by weight / PointScale + 1.
		if diff.Cmp(big.NewInt(2)) > 0 {
			t.Fatalf("rate=%d weight=%d: scale drift: want %s got %s", tc.rate, tc.weight, want, staker.EarnedCumulative)
		}
	}
}

func TestCheckpointStakerSplitsProRata(t *testing.T) {
	cfg := testConfig(10)
	acc := NewAccumulatorState(0)
	a := NewStakerRecord([20]byte{1}, acc.RewardPointsPerWeight)
	a.Weight = big.NewInt(100)
	acc.TotalWeight = big.NewInt(100)

	checkpointGlobal(cfg, acc, 10)
	b := NewStakerRecord([20]byte{2}, acc.RewardPointsPerWeight)
	b.Weight = big.NewInt(100)
	acc.TotalWeight = big.NewInt(200)

	checkpointStaker(cfg, acc, a, 20)
	checkpointStaker(cfg, acc, b, 20)

	if a.EarnedCumulative.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("staker a: want 150 got %s", a.EarnedCumulative)
	}
	if b.EarnedCumulative.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("staker b: want 50 got %s", b.EarnedCumulative)
	}
}

func TestCheckpointStakerDoesNotCreditPastGrowth(t *testing.T) {
	cfg := testConfig(10)
	acc := NewAccumulatorState(0)
	acc.TotalWeight = big.NewInt(100)
	checkpointGlobal(cfg, acc, 50)

	// A staker anchored at the current snapshot must not earn for the
	// interval before it joined.
	s := NewStakerRecord([20]byte{3}, acc.RewardPointsPerWeight)
	s.Weight = big.NewInt(100)
	checkpointStaker(cfg, acc, s, 50)
	if s.EarnedCumulative.Sign() != 0 {
		t.Fatalf("pre-join growth credited: %s", s.EarnedCumulative)
	}
}
