package factory

import (
	"encoding/json"
	"fmt"

	"relicpool/storage"
)

func putEntry(db storage.Database, entry registryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("factory: encode registry entry: %w", err)
	}
	return db.Put(registryKey(entry.Pool), raw)
}

func listEntries(db storage.Database) ([]registryEntry, error) {
	var entries []registryEntry
	err := db.IteratePrefix([]byte(registryPrefix), func(key, value []byte) error {
		var entry registryEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("factory: decode registry entry %s: %w", key, err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
