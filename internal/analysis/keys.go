package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// queryKey derives a stable cache key from the query parameters. Addresses
// are folded so trivially different spellings of the same query share an
// entry.
func queryKey(address string, radiusMiles float64, monthsBack int) string {
	folded := strings.ToLower(strings.Join(strings.Fields(address), " "))
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%.2f|%d", folded, radiusMiles, monthsBack))
	return hex.EncodeToString(sum[:])
}
