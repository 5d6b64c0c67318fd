package flow

import (
	"bytes"
	"sort"
)

// EpochID identifies an epoch. The genesis epoch has the zero id; every later
// epoch is named after the hash of a block of the epoch two before it.
type EpochID Identifier

// ZeroEpochID is the id of the genesis epoch.
var ZeroEpochID = EpochID{}

func (e EpochID) String() string {
	return Identifier(e).String()
}

// EpochInfo records what the node knows about an epoch.
type EpochInfo struct {
	EpochID     EpochID
	EpochHeight uint64
	PrevEpochID EpochID
	ShardLayout ShardLayout
	// Assignments lists, for every validator account, the shards it tracks.
	Assignments map[AccountID][]ShardID
}

// AssignedShards returns the shards assigned to the account in the epoch.
func (e *EpochInfo) AssignedShards(account AccountID) []ShardID {
	return e.Assignments[account]
}

// EpochStart records the first block of an epoch once it has been produced.
type EpochStart struct {
	BlockHash Identifier
	Height    uint64
}

// BlockInfo is the epoch bookkeeping kept per block.
type BlockInfo struct {
	Hash            Identifier
	PrevHash        Identifier
	Height          uint64
	EpochID         EpochID
	NextEpochID     EpochID
	EpochFirstBlock Identifier
	LastFinalHeight uint64
}

func sortEpochIDs(ids []EpochID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}

func sortedIDs(set map[Identifier]struct{}) []Identifier {
	ids := make([]Identifier, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}
