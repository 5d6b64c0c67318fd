package tracker

import (
	"github.com/shardchain/node/model/flow"
)

// TrackedConfig selects the shards a node tracks in addition to the ones its
// validator duties assign it. It is one of Accounts, AllShards, Schedule or
// ShadowValidator.
type TrackedConfig interface {
	isTrackedConfig()
}

// Accounts tracks the shards hosting any of the accounts.
type Accounts []flow.AccountID

// AllShards tracks every shard.
type AllShards struct{}

// Schedule rotates through sets of shards by epoch height.
type Schedule [][]flow.ShardID

// ShadowValidator tracks the shards assigned to the validator account.
type ShadowValidator flow.AccountID

func (Accounts) isTrackedConfig()        {}
func (AllShards) isTrackedConfig()       {}
func (Schedule) isTrackedConfig()        {}
func (ShadowValidator) isTrackedConfig() {}

// Flags are the node options shard tracking is configured from.
type Flags struct {
	// TrackedShards makes the node track all shards when not empty.
	TrackedShards   []flow.ShardID   `mapstructure:"tracked-shards"`
	Schedule        [][]flow.ShardID `mapstructure:"tracked-shard-schedule"`
	ShadowValidator flow.AccountID   `mapstructure:"tracked-shadow-validator"`
	Accounts        []flow.AccountID `mapstructure:"tracked-accounts"`
}

// TrackedConfigFromFlags picks the tracking mode. All shards win over a
// schedule, a schedule over a shadow validator, and tracked accounts are the
// fallback.
func TrackedConfigFromFlags(flags Flags) TrackedConfig {
	switch {
	case len(flags.TrackedShards) > 0:
		return AllShards{}
	case len(flags.Schedule) > 0:
		return Schedule(flags.Schedule)
	case flags.ShadowValidator != "":
		return ShadowValidator(flags.ShadowValidator)
	default:
		return Accounts(flags.Accounts)
	}
}
