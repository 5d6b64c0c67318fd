package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shardchain/node/config"
	"github.com/shardchain/node/module/epochs"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

// flags shared by all commands
type rootFlags struct {
	dataDir     string
	backend     string
	configFile  string
	epochLength uint64
	metricsFile string
	logLevel    string
	compress    bool

	// resolved from the backend flag and the data directory
	storageBackend storage.Backend
}

// resolveBackend picks the backend of the data directory. An explicit backend
// must match what the directory holds; an empty one is detected, and a new
// database is created with pebble.
func (f *rootFlags) resolveBackend() error {
	detected, err := storage.DetectBackend(f.dataDir)
	if err != nil {
		return err
	}
	if f.backend == "" {
		f.storageBackend = detected
		if detected == storage.BackendNone {
			f.storageBackend = storage.BackendPebble
		}
		return nil
	}
	backend, err := storage.ParseBackend(f.backend)
	if err != nil {
		return err
	}
	if detected != storage.BackendNone && detected != backend {
		return fmt.Errorf("data directory %s holds a %s database, not %s", f.dataDir, detected, backend)
	}
	f.storageBackend = backend
	return nil
}

// NewRootCmd builds the command tree of the node utility.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "util",
		Short:         "Maintain the chain database of a node",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := zerolog.ParseLevel(flags.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", flags.logLevel, err)
			}
			zerolog.SetGlobalLevel(level)
			operation.SetCompression(flags.compress)
			return flags.resolveBackend()
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&flags.dataDir, "datadir", "", "directory of the chain database")
	_ = rootCmd.MarkPersistentFlagRequired("datadir")
	persistent.StringVar(&flags.backend, "backend", "", "storage backend of the chain database, pebble or badger; detected from the data directory if empty")
	persistent.StringVar(&flags.configFile, "config", "", "node config file, overridden by flags and NODE_* environment variables")
	persistent.Uint64Var(&flags.epochLength, "epoch-length", epochs.DefaultEpochLength, "number of heights of an epoch")
	persistent.StringVar(&flags.metricsFile, "metrics-file", "", "write the collected metrics to this file in the prometheus text format")
	persistent.StringVar(&flags.logLevel, "loglevel", "info", "level for logging output")
	persistent.BoolVar(&flags.compress, "compress-values", true, "whether the database stores snappy compressed values; must match the node")
	config.InitializeFlags(persistent, config.DefaultConfig())

	rootCmd.AddCommand(
		newGCCmd(flags),
		newUndoBlockCmd(flags),
		newResetStateSyncCmd(flags),
	)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
