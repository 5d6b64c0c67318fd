package epochs

import (
	"github.com/shardchain/node/model/flow"
)

// DefaultEpochLength is the number of heights of an epoch.
const DefaultEpochLength = 43200

// LayoutChange makes a shard layout effective from an epoch height on.
type LayoutChange struct {
	FromEpochHeight uint64
	Layout          flow.ShardLayout
}

// LayoutSchedule lists the shard layouts of the chain in ascending order of
// the epoch height they take effect at.
type LayoutSchedule []LayoutChange

// LayoutAt returns the shard layout in effect at the epoch height. Before the
// first change the chain has a single shard.
func (s LayoutSchedule) LayoutAt(epochHeight uint64) flow.ShardLayout {
	layout := flow.NewSingleShardLayout(0)
	for _, change := range s {
		if change.FromEpochHeight > epochHeight {
			break
		}
		layout = change.Layout
	}
	return layout
}

// Config describes the epoch structure of the chain.
type Config struct {
	// EpochLength is the number of heights of every epoch.
	EpochLength uint64
	// NumEpochsToKeep is the number of most recent epochs garbage collection
	// retains.
	NumEpochsToKeep uint64
	Layouts         LayoutSchedule
	// Validators lists, per validator account, the shards it tracks. The
	// schedule cycles by epoch height.
	Validators map[flow.AccountID][][]flow.ShardID
}

func (c Config) assignments(epochHeight uint64) map[flow.AccountID][]flow.ShardID {
	out := make(map[flow.AccountID][]flow.ShardID, len(c.Validators))
	for account, schedule := range c.Validators {
		if len(schedule) == 0 {
			continue
		}
		out[account] = schedule[epochHeight%uint64(len(schedule))]
	}
	return out
}
