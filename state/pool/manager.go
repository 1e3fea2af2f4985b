package pool

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"relicpool/core/types"
	"relicpool/native/staking"
	"relicpool/storage"
)

const (
	keyConfig       = "config"
	keyAccumulator  = "accumulator"
	prefixStaker    = "staker/"
	prefixAsset     = "asset/"
	prefixAccount   = "account/"
	namespacePrefix = "pool/"
)

// Manager persists one pool's staking state on a key-value database. All keys
// are scoped under the pool address so multiple pools can share a backend.
// Records are JSON-encoded; reads hand out freshly decoded values, so callers
// can mutate them without aliasing stored state.
type Manager struct {
	db   storage.Database
	pool [20]byte
}

// NewManager binds a state manager to the given pool address.
func NewManager(db storage.Database, pool [20]byte) *Manager {
	return &Manager{db: db, pool: pool}
}

func (m *Manager) key(parts ...string) []byte {
	key := namespacePrefix + hex.EncodeToString(m.pool[:]) + "/"
	for _, part := range parts {
		key += part
	}
	return []byte(key)
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// PoolConfig loads the pool configuration, reporting whether it exists.
func (m *Manager) PoolConfig() (*staking.PoolConfig, bool, error) {
	cfg := new(staking.PoolConfig)
	ok, err := m.getJSON(m.key(keyConfig), cfg)
	if err != nil || !ok {
		return nil, false, err
	}
	return cfg, true, nil
}

// SetPoolConfig stores the pool configuration.
func (m *Manager) SetPoolConfig(cfg *staking.PoolConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil pool config")
	}
	return m.putJSON(m.key(keyConfig), cfg)
}

// Accumulator loads the global accumulator state.
func (m *Manager) Accumulator() (*staking.AccumulatorState, bool, error) {
	acc := new(staking.AccumulatorState)
	ok, err := m.getJSON(m.key(keyAccumulator), acc)
	if err != nil || !ok {
		return nil, false, err
	}
	return acc, true, nil
}

// SetAccumulator stores the global accumulator state.
func (m *Manager) SetAccumulator(acc *staking.AccumulatorState) error {
	if acc == nil {
		return fmt.Errorf("state: nil accumulator")
	}
	return m.putJSON(m.key(keyAccumulator), acc)
}

func stakerKeySuffix(addr [20]byte) string {
	return prefixStaker + hex.EncodeToString(addr[:])
}

// StakerGet loads a depositor's ledger entry.
func (m *Manager) StakerGet(addr [20]byte) (*staking.StakerRecord, bool, error) {
	rec := new(staking.StakerRecord)
	ok, err := m.getJSON(m.key(stakerKeySuffix(addr)), rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return rec, true, nil
}

// StakerPut stores a depositor's ledger entry.
func (m *Manager) StakerPut(rec *staking.StakerRecord) error {
	if rec == nil {
		return fmt.Errorf("state: nil staker record")
	}
	return m.putJSON(m.key(stakerKeySuffix(rec.Owner)), rec)
}

// StakerDelete removes a depositor's ledger entry.
func (m *Manager) StakerDelete(addr [20]byte) error {
	return m.db.Delete(m.key(stakerKeySuffix(addr)))
}

// StakerOwners lists the addresses of every stored ledger entry.
func (m *Manager) StakerOwners() ([][20]byte, error) {
	prefix := m.key(prefixStaker)
	var owners [][20]byte
	err := m.db.IteratePrefix(prefix, func(key, value []byte) error {
		suffix := key[len(prefix):]
		raw, err := hex.DecodeString(string(suffix))
		if err != nil || len(raw) != 20 {
			return fmt.Errorf("state: malformed staker key %q", key)
		}
		var addr [20]byte
		copy(addr[:], raw)
		owners = append(owners, addr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

func assetKeySuffix(assetID uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], assetID)
	return prefixAsset + hex.EncodeToString(buf[:])
}

// AssetGet loads the custody record for a staked asset.
func (m *Manager) AssetGet(assetID uint64) (*staking.AssetStake, bool, error) {
	asset := new(staking.AssetStake)
	ok, err := m.getJSON(m.key(assetKeySuffix(assetID)), asset)
	if err != nil || !ok {
		return nil, false, err
	}
	return asset, true, nil
}

// AssetPut stores the custody record for a staked asset.
func (m *Manager) AssetPut(asset *staking.AssetStake) error {
	if asset == nil {
		return fmt.Errorf("state: nil asset record")
	}
	return m.putJSON(m.key(assetKeySuffix(asset.AssetID)), asset)
}

// AssetDelete removes the custody record for an asset.
func (m *Manager) AssetDelete(assetID uint64) error {
	return m.db.Delete(m.key(assetKeySuffix(assetID)))
}

func accountKey(addr []byte) []byte {
	return []byte(prefixAccount + hex.EncodeToString(addr))
}

// GetAccount loads a reward-token account. Missing accounts resolve to a zero
// balance rather than an error. Accounts are global, not pool-scoped: the
// vault of one pool and a depositor wallet live in the same ledger.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	acc := new(types.Account)
	ok, err := m.getJSON(accountKey(addr), acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&types.Account{}).EnsureDefaults(), nil
	}
	return acc.EnsureDefaults(), nil
}

// PutAccount stores a reward-token account.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.putJSON(accountKey(addr), account)
}
