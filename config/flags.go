package config

import (
	"github.com/spf13/pflag"
)

const (
	// All constant strings are used for CLI flag names and corresponding keys for config values.
	// garbage collection
	gcBlocksLimit     = "gc-blocks-limit"
	gcForkCleanStep   = "gc-fork-clean-step"
	gcNumEpochsToKeep = "gc-num-epochs-to-keep"
	gcStepPeriod      = "gc-step-period"
	// shard tracking
	trackedShards          = "tracked-shards"
	trackedShardSchedule   = "tracked-shard-schedule"
	trackedShadowValidator = "tracked-shadow-validator"
	trackedAccounts        = "tracked-accounts"
	// node mode
	archive = "archive"
)

func AllFlagNames() []string {
	return []string{
		gcBlocksLimit, gcForkCleanStep, gcNumEpochsToKeep, gcStepPeriod,
		trackedShards, trackedShardSchedule, trackedShadowValidator, trackedAccounts,
		archive,
	}
}

// InitializeFlags initializes all CLI flags of the node config on the provided pflag set.
// Args:
//
//	*pflag.FlagSet: the pflag set of the node.
//	*Config: the default config used to set default values on the flags
func InitializeFlags(flags *pflag.FlagSet, config *Config) {
	InitializeGCFlags(flags, &config.GC)
	initTrackerFlags(flags)
	flags.Bool(archive, config.Archive, "keep all blocks and state, only drop chunk data that can be rebuilt")
}

// InitializeGCFlags initializes the garbage collection flags on the provided pflag set.
func InitializeGCFlags(flags *pflag.FlagSet, config *GCConfig) {
	flags.Uint64(gcBlocksLimit, config.GCBlocksLimit, "maximum number of blocks garbage collected in one pass")
	flags.Uint64(gcForkCleanStep, config.GCForkCleanStep, "number of heights below the fork tail scanned for forks in one pass")
	flags.Uint64(gcNumEpochsToKeep, config.GCNumEpochsToKeep, "number of most recent epochs kept, at least 3")
	flags.Duration(gcStepPeriod, config.GCStepPeriod, "interval between two garbage collection passes")
}

func initTrackerFlags(flags *pflag.FlagSet) {
	flags.StringSlice(trackedShards, nil, "track all shards if any shard id is given")
	flags.String(trackedShardSchedule, "", "shards tracked by epoch height, e.g. \"0,1;2\" rotates between {0,1} and {2}")
	flags.String(trackedShadowValidator, "", "track the shards assigned to this validator account")
	flags.StringSlice(trackedAccounts, nil, "track the shards hosting these accounts")
}
