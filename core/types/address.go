package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseAddress decodes a 20-byte hex address, with or without a 0x prefix.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("invalid address %q: want 20 bytes, got %d", s, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// FormatAddress renders a 20-byte address as 0x-prefixed hex.
func FormatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
