package subaccount

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

type ID struct {
	Owner  string
	Number uint32
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%d", id.Owner, id.Number)
}

// ParseID parses the "owner/number" form produced by String.
func ParseID(s string) (ID, error) {
	owner, num, ok := strings.Cut(s, "/")
	if !ok || owner == "" {
		return ID{}, fmt.Errorf("subaccount id %q is not owner/number", s)
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("subaccount id %q: %w", s, err)
	}
	return ID{Owner: owner, Number: uint32(n)}, nil
}

// Subaccount holds signed position sizes in quantums, keyed by perpetual
// and asset id.
type Subaccount struct {
	ID                 ID
	PerpetualPositions map[uint32]int64
	AssetPositions     map[uint32]int64
}

func New(id ID) Subaccount {
	return Subaccount{
		ID:                 id,
		PerpetualPositions: make(map[uint32]int64),
		AssetPositions:     make(map[uint32]int64),
	}
}

// Clone returns a deep copy.
func (s Subaccount) Clone() Subaccount {
	return Subaccount{
		ID:                 s.ID,
		PerpetualPositions: maps.Clone(s.PerpetualPositions),
		AssetPositions:     maps.Clone(s.AssetPositions),
	}
}
