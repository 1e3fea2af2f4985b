package staking

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestStakerRecordIndexMaintenance(t *testing.T) {
	rec := NewStakerRecord([20]byte{1}, big.NewInt(0))
	for _, id := range []uint64{10, 20, 30, 40} {
		if err := rec.addAsset(id); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	if err := rec.addAsset(20); err == nil {
		t.Fatal("duplicate add accepted")
	}

	// Remove from the middle: last element must be swapped into the slot and
	// the index side-table updated for the moved element.
	if err := rec.removeAsset(20); err != nil {
		t.Fatalf("remove 20: %v", err)
	}
	want := []uint64{10, 40, 30}
	if len(rec.Assets) != len(want) {
		t.Fatalf("assets: want %v got %v", want, rec.Assets)
	}
	for i, id := range want {
		if rec.Assets[i] != id {
			t.Fatalf("assets: want %v got %v", want, rec.Assets)
		}
		if rec.assetIndex[id] != i {
			t.Fatalf("index for %d: want %d got %d", id, i, rec.assetIndex[id])
		}
	}

	// Remove the tail, then a missing id.
	if err := rec.removeAsset(30); err != nil {
		t.Fatalf("remove tail: %v", err)
	}
	if err := rec.removeAsset(30); err == nil {
		t.Fatal("removing absent asset succeeded")
	}
	if len(rec.assetIndex) != len(rec.Assets) {
		t.Fatalf("index table size %d != asset count %d", len(rec.assetIndex), len(rec.Assets))
	}
}

func TestStakerRecordIndexRebuiltAfterDecode(t *testing.T) {
	rec := NewStakerRecord([20]byte{2}, big.NewInt(5))
	for _, id := range []uint64{7, 8, 9} {
		if err := rec.addAsset(id); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded := new(StakerRecord)
	if err := json.Unmarshal(raw, decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.HasAsset(8) {
		t.Fatal("decoded record lost asset membership")
	}
	if err := decoded.removeAsset(8); err != nil {
		t.Fatalf("remove on decoded record: %v", err)
	}
	if decoded.HasAsset(8) {
		t.Fatal("asset still present after removal")
	}
}

func TestStakerRecordCloneIsDeep(t *testing.T) {
	rec := NewStakerRecord([20]byte{3}, big.NewInt(1))
	if err := rec.addAsset(1); err != nil {
		t.Fatalf("add: %v", err)
	}
	rec.Weight = big.NewInt(100)
	rec.EarnedCumulative = big.NewInt(42)

	clone := rec.Clone()
	clone.Weight.SetInt64(7)
	clone.EarnedCumulative.SetInt64(0)
	if err := clone.removeAsset(1); err != nil {
		t.Fatalf("remove on clone: %v", err)
	}

	if rec.Weight.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("clone aliased weight: %s", rec.Weight)
	}
	if rec.EarnedCumulative.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("clone aliased earned: %s", rec.EarnedCumulative)
	}
	if !rec.HasAsset(1) {
		t.Fatal("clone aliased asset list")
	}
}

func TestPoolConfigValidate(t *testing.T) {
	cfg := &PoolConfig{EmissionRate: big.NewInt(0)}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero emission rate accepted")
	}
	cfg.EmissionRate = big.NewInt(1)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestUnclaimed(t *testing.T) {
	rec := NewStakerRecord([20]byte{4}, big.NewInt(0))
	rec.EarnedCumulative = big.NewInt(10)
	rec.ReleasedCumulative = big.NewInt(4)
	if got := rec.Unclaimed(); got.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("unclaimed: want 6 got %s", got)
	}
}

func TestStaticOracle(t *testing.T) {
	oracle := NewStaticOracle(map[uint64]*big.Int{1: big.NewInt(9)})
	if score, err := oracle.Score(1); err != nil || score.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("score: got %s err %v", score, err)
	}
	if _, err := oracle.Score(2); err == nil {
		t.Fatal("unknown asset without default should error")
	}
	oracle.SetDefault(big.NewInt(1))
	if score, err := oracle.Score(2); err != nil || score.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("default score: got %s err %v", score, err)
	}
}
