package ledger

import (
	"math/big"
	"strings"
)

// CompareIDs orders two message ids: as decimal integers of any length when
// both are, lexicographically otherwise. Returns -1, 0 or +1.
func CompareIDs(a, b string) int {
	ai, aok := new(big.Int).SetString(a, 10)
	bi, bok := new(big.Int).SetString(b, 10)
	if aok && bok {
		return ai.Cmp(bi)
	}
	return strings.Compare(a, b)
}
