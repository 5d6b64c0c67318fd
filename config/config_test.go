package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/config"
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module/tracker"
)

func newFlagSet(t *testing.T) *pflag.FlagSet {
	flags := pflag.NewFlagSet(t.Name(), pflag.ContinueOnError)
	config.InitializeFlags(flags, config.DefaultConfig())
	return flags
}

func TestDefaultGCConfig(t *testing.T) {
	cfg := config.DefaultGCConfig()
	assert.Equal(t, uint64(2), cfg.GCBlocksLimit)
	assert.Equal(t, uint64(100), cfg.GCForkCleanStep)
	assert.Equal(t, uint64(5), cfg.GCNumEpochsToKeep)
	assert.Equal(t, 500*time.Millisecond, cfg.GCStepPeriod)
	require.NoError(t, cfg.Validate())
}

func TestNumEpochsToKeepFloor(t *testing.T) {
	cfg := config.DefaultGCConfig()
	for configured, expected := range map[uint64]uint64{0: 3, 1: 3, 3: 3, 4: 4, 10: 10} {
		cfg.GCNumEpochsToKeep = configured
		assert.Equal(t, expected, cfg.NumEpochsToKeep(), "configured %d", configured)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.DefaultGCConfig()
	cfg.GCStepPeriod = 0
	assert.Error(t, cfg.Validate())

	cfg = config.DefaultGCConfig()
	cfg.GCForkCleanStep = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(newFlagSet(t), "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultGCConfig(), cfg.GC)
	assert.False(t, cfg.Archive)
	tracked := tracker.TrackedConfigFromFlags(cfg.Tracking)
	require.IsType(t, tracker.Accounts{}, tracked)
	assert.Empty(t, tracked)
}

func TestLoadFromFlags(t *testing.T) {
	flags := newFlagSet(t)
	require.NoError(t, flags.Parse([]string{
		"--gc-blocks-limit=7",
		"--gc-step-period=2s",
		"--tracked-shard-schedule=0,1;2",
		"--tracked-accounts=alice,bob",
		"--archive",
	}))

	cfg, err := config.Load(flags, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.GC.GCBlocksLimit)
	assert.Equal(t, 2*time.Second, cfg.GC.GCStepPeriod)
	assert.Equal(t, uint64(100), cfg.GC.GCForkCleanStep)
	assert.True(t, cfg.Archive)
	assert.Equal(t, [][]flow.ShardID{{0, 1}, {2}}, cfg.Tracking.Schedule)
	assert.Equal(t, []flow.AccountID{"alice", "bob"}, cfg.Tracking.Accounts)
	assert.Equal(t, tracker.Schedule{{0, 1}, {2}}, tracker.TrackedConfigFromFlags(cfg.Tracking))
}

func TestLoadTrackAllShards(t *testing.T) {
	flags := newFlagSet(t)
	require.NoError(t, flags.Parse([]string{"--tracked-shards=0"}))

	cfg, err := config.Load(flags, "")
	require.NoError(t, err)
	assert.Equal(t, []flow.ShardID{0}, cfg.Tracking.TrackedShards)
	assert.Equal(t, tracker.AllShards{}, tracker.TrackedConfigFromFlags(cfg.Tracking))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NODE_GC_FORK_CLEAN_STEP", "10")

	cfg, err := config.Load(newFlagSet(t), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cfg.GC.GCForkCleanStep)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gc-num-epochs-to-keep: 8\ntracked-shadow-validator: val\n"), 0o600))

	cfg, err := config.Load(newFlagSet(t), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), cfg.GC.GCNumEpochsToKeep)
	assert.Equal(t, tracker.ShadowValidator("val"), tracker.TrackedConfigFromFlags(cfg.Tracking))
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	flags := newFlagSet(t)
	require.NoError(t, flags.Parse([]string{"--gc-step-period=0s"}))

	_, err := config.Load(flags, "")
	assert.Error(t, err)
}

func TestParseShardSchedule(t *testing.T) {
	schedule, err := config.ParseShardSchedule(" 0, 1 ; 2 ;")
	require.NoError(t, err)
	assert.Equal(t, [][]flow.ShardID{{0, 1}, {2}, {}}, schedule)

	schedule, err = config.ParseShardSchedule("")
	require.NoError(t, err)
	assert.Nil(t, schedule)

	_, err = config.ParseShardSchedule("0;x")
	assert.Error(t, err)
}
