package metrics

import "encoding/hex"

func formatPool(pool [20]byte) string {
	return "0x" + hex.EncodeToString(pool[:])
}
