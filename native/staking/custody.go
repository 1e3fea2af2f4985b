package staking

// Custodian moves the physical asset between depositor and pool custody. The
// transfer is atomic: a returned error means custody did not change hands and
// the enclosing operation must abort with no persisted state.
//
// Custodians are treated as untrusted. A custodian that calls back into a
// mutating engine operation while a transfer is in flight is rejected with
// ErrReentrantCall.
type Custodian interface {
	Transfer(from, to [20]byte, assetID uint64) error
}
