package pool

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"relicpool/storage"
)

const custodyPrefix = "custody/asset/"

// LedgerCustodian implements the custody boundary on the shared database: it
// records which identity physically holds each asset and refuses transfers
// from anyone else. An asset seen for the first time is assumed to be held by
// the declared sender.
type LedgerCustodian struct {
	db storage.Database
}

// NewLedgerCustodian creates a custodian over the given database.
func NewLedgerCustodian(db storage.Database) *LedgerCustodian {
	return &LedgerCustodian{db: db}
}

type custodyRecord struct {
	Holder [20]byte `json:"holder"`
}

func custodyKey(assetID uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], assetID)
	return []byte(custodyPrefix + hex.EncodeToString(buf[:]))
}

// Holder reports the current physical holder of an asset, if known.
func (c *LedgerCustodian) Holder(assetID uint64) ([20]byte, bool, error) {
	raw, err := c.db.Get(custodyKey(assetID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return [20]byte{}, false, nil
	}
	if err != nil {
		return [20]byte{}, false, err
	}
	var rec custodyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return [20]byte{}, false, fmt.Errorf("custody: decode asset %d: %w", assetID, err)
	}
	return rec.Holder, true, nil
}

// Transfer implements the staking.Custodian interface.
func (c *LedgerCustodian) Transfer(from, to [20]byte, assetID uint64) error {
	holder, known, err := c.Holder(assetID)
	if err != nil {
		return err
	}
	if known && holder != from {
		return fmt.Errorf("custody: asset %d held by %x, not %x", assetID, holder, from)
	}
	raw, err := json.Marshal(custodyRecord{Holder: to})
	if err != nil {
		return err
	}
	return c.db.Put(custodyKey(assetID), raw)
}
