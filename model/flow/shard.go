package flow

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// ShardID identifies a shard within a shard layout.
type ShardID uint64

// ShardUID is a layout-versioned shard identifier. It is used as a key prefix
// for shard-partitioned trie state, so the same shard id under two layout
// versions never shares storage.
type ShardUID struct {
	Version uint32
	ShardID uint32
}

// ShardUIDLen is the length of the byte encoding of a ShardUID.
const ShardUIDLen = 8

// Bytes encodes the shard uid as version (LE u32) followed by shard id (LE u32).
func (u ShardUID) Bytes() []byte {
	b := make([]byte, ShardUIDLen)
	binary.LittleEndian.PutUint32(b[0:4], u.Version)
	binary.LittleEndian.PutUint32(b[4:8], u.ShardID)
	return b
}

func (u ShardUID) String() string {
	return fmt.Sprintf("s%d.v%d", u.ShardID, u.Version)
}

// ShardIDValue returns the shard id of the uid.
func (u ShardUID) ShardIDValue() ShardID {
	return ShardID(u.ShardID)
}

// ShardUIDFromBytes decodes a shard uid from its byte encoding.
func ShardUIDFromBytes(b []byte) (ShardUID, error) {
	if len(b) != ShardUIDLen {
		return ShardUID{}, fmt.Errorf("invalid shard uid length %d", len(b))
	}
	return ShardUID{
		Version: binary.LittleEndian.Uint32(b[0:4]),
		ShardID: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// ShardLayout describes the shards of an epoch. Accounts are assigned to shards
// by boundary accounts: shard i holds the accounts in
// [BoundaryAccounts[i-1], BoundaryAccounts[i]).
//
// At a resharding boundary SplitMap maps each parent shard id (of the layout with
// version PrevVersion) to the children shard ids of this layout.
type ShardLayout struct {
	Version          uint32
	PrevVersion      uint32
	ShardIDs         []ShardID
	BoundaryAccounts []AccountID
	SplitMap         map[ShardID][]ShardID
}

// NewSingleShardLayout returns a layout with only shard 0.
func NewSingleShardLayout(version uint32) ShardLayout {
	return ShardLayout{Version: version, PrevVersion: version, ShardIDs: []ShardID{0}}
}

// NewMultiShardLayout returns a layout with shards 0..n-1 and the given boundaries.
// len(boundaries) must be n-1.
func NewMultiShardLayout(version uint32, boundaries []AccountID) ShardLayout {
	ids := make([]ShardID, len(boundaries)+1)
	for i := range ids {
		ids[i] = ShardID(i)
	}
	return ShardLayout{Version: version, PrevVersion: version, ShardIDs: ids, BoundaryAccounts: boundaries}
}

// NumShards returns the number of shards in the layout.
func (l ShardLayout) NumShards() int {
	return len(l.ShardIDs)
}

// ShardUID returns the uid of the given shard id under this layout.
func (l ShardLayout) ShardUID(shardID ShardID) ShardUID {
	return ShardUID{Version: l.Version, ShardID: uint32(shardID)}
}

// ShardUIDs returns the uids of all shards of the layout, in layout order.
func (l ShardLayout) ShardUIDs() []ShardUID {
	uids := make([]ShardUID, 0, len(l.ShardIDs))
	for _, id := range l.ShardIDs {
		uids = append(uids, l.ShardUID(id))
	}
	return uids
}

// ShardIndex returns the position of the shard id in the layout.
func (l ShardLayout) ShardIndex(shardID ShardID) (int, error) {
	for i, id := range l.ShardIDs {
		if id == shardID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("shard %d not in layout v%d", shardID, l.Version)
}

// AccountIDToShardID returns the shard hosting the account.
func (l ShardLayout) AccountIDToShardID(account AccountID) ShardID {
	idx := sort.Search(len(l.BoundaryAccounts), func(i int) bool {
		return account < l.BoundaryAccounts[i]
	})
	return l.ShardIDs[idx]
}

// SplitParentShardUIDs returns the uids of the parent shards split by this layout.
func (l ShardLayout) SplitParentShardUIDs() []ShardUID {
	parents := make([]ShardID, 0, len(l.SplitMap))
	for parent := range l.SplitMap {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })
	uids := make([]ShardUID, 0, len(parents))
	for _, parent := range parents {
		uids = append(uids, ShardUID{Version: l.PrevVersion, ShardID: uint32(parent)})
	}
	return uids
}

// ChildrenShardUIDs returns the uids of the children of the given parent shard.
func (l ShardLayout) ChildrenShardUIDs(parent ShardID) ([]ShardUID, error) {
	children, ok := l.SplitMap[parent]
	if !ok {
		return nil, fmt.Errorf("shard %d is not split in layout v%d", parent, l.Version)
	}
	uids := make([]ShardUID, 0, len(children))
	for _, child := range children {
		uids = append(uids, l.ShardUID(child))
	}
	return uids, nil
}

// Equal reports whether two layouts describe the same shards.
func (l ShardLayout) Equal(other ShardLayout) bool {
	if l.Version != other.Version || len(l.ShardIDs) != len(other.ShardIDs) {
		return false
	}
	for i := range l.ShardIDs {
		if l.ShardIDs[i] != other.ShardIDs[i] {
			return false
		}
	}
	return true
}
