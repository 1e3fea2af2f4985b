package staking

import (
	"fmt"
	"math/big"
	"sync"
)

// ScoreOracle maps an asset identifier to the contribution score used as that
// asset's stake weight. Implementations must be read-only with respect to pool
// state and must never return a negative score.
type ScoreOracle interface {
	Score(assetID uint64) (*big.Int, error)
}

// StaticOracle serves scores from a fixed table. It backs fixtures and tests;
// production deployments wire an adapter over the external scoring service.
type StaticOracle struct {
	mu      sync.RWMutex
	scores  map[uint64]*big.Int
	defScore *big.Int
}

// NewStaticOracle builds an oracle with the provided score table. A nil
// default means unknown assets resolve to an error rather than zero.
func NewStaticOracle(scores map[uint64]*big.Int) *StaticOracle {
	table := make(map[uint64]*big.Int, len(scores))
	for id, score := range scores {
		table[id] = copyBigInt(score)
	}
	return &StaticOracle{scores: table}
}

// SetDefault configures a fallback score for assets missing from the table.
func (o *StaticOracle) SetDefault(score *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.defScore = copyBigInt(score)
}

// SetScore records or replaces the score for a single asset.
func (o *StaticOracle) SetScore(assetID uint64, score *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scores[assetID] = copyBigInt(score)
}

// Score implements the ScoreOracle interface.
func (o *StaticOracle) Score(assetID uint64) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if score, ok := o.scores[assetID]; ok {
		return copyBigInt(score), nil
	}
	if o.defScore != nil {
		return copyBigInt(o.defScore), nil
	}
	return nil, fmt.Errorf("staking: no score for asset %d", assetID)
}
