package subaccount

import "maps"

type Result uint8

const (
	Installed Result = iota
	DuplicateSnapshot
	Merged
	MissingBase
)

func (r Result) String() string {
	switch r {
	case Installed:
		return "installed"
	case DuplicateSnapshot:
		return "duplicate_snapshot"
	case Merged:
		return "merged"
	case MissingBase:
		return "missing_base"
	default:
		return "unknown"
	}
}

// Applied reports whether the store changed.
func (r Result) Applied() bool {
	return r == Installed || r == Merged
}

// Store accepts at most one snapshot per subaccount and merges deltas
// entry by entry on top of it.
type Store struct {
	accounts map[ID]*Subaccount
}

func NewStore() *Store {
	return &Store{accounts: make(map[ID]*Subaccount)}
}

func (s *Store) Apply(update Subaccount, snapshot bool) Result {
	existing, ok := s.accounts[update.ID]

	if snapshot {
		if ok {
			return DuplicateSnapshot
		}
		installed := update.Clone()
		if installed.PerpetualPositions == nil {
			installed.PerpetualPositions = make(map[uint32]int64)
		}
		if installed.AssetPositions == nil {
			installed.AssetPositions = make(map[uint32]int64)
		}
		s.accounts[update.ID] = &installed
		return Installed
	}

	if !ok {
		return MissingBase
	}
	maps.Copy(existing.PerpetualPositions, update.PerpetualPositions)
	maps.Copy(existing.AssetPositions, update.AssetPositions)
	return Merged
}

// Get returns a copy of the subaccount.
func (s *Store) Get(id ID) (Subaccount, bool) {
	a, ok := s.accounts[id]
	if !ok {
		return Subaccount{}, false
	}
	return a.Clone(), true
}

// All returns copies of every known subaccount.
func (s *Store) All() map[ID]Subaccount {
	out := make(map[ID]Subaccount, len(s.accounts))
	for id, a := range s.accounts {
		out[id] = a.Clone()
	}
	return out
}

func (s *Store) Len() int {
	return len(s.accounts)
}
