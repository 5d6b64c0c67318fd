package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shardchain/node/config"
	"github.com/shardchain/node/module/epochs"
	"github.com/shardchain/node/module/metrics"
	"github.com/shardchain/node/module/tracker"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/badger"
	"github.com/shardchain/node/storage/gc"
	"github.com/shardchain/node/storage/operation/badgerimpl"
	"github.com/shardchain/node/storage/operation/pebbleimpl"
	"github.com/shardchain/node/storage/pebble"
	"github.com/shardchain/node/storage/store"
	"github.com/shardchain/node/storage/trie"
	"github.com/shardchain/node/utils/merr"
)

// chain bundles the storage modules a command runs against.
type chain struct {
	config    *config.Config
	db        storage.DB
	store     *store.ChainStore
	epochs    *epochs.Manager
	tries     *trie.ShardTries
	collector *gc.Collector
	registry  *prometheus.Registry

	metricsFile string
}

func openDB(flags *rootFlags) (storage.DB, error) {
	logger := log.Logger.With().Str("backend", string(flags.storageBackend)).Logger()
	switch flags.storageBackend {
	case storage.BackendBadger:
		db, err := badger.OpenBadgerDB(logger, flags.dataDir)
		if err != nil {
			return nil, err
		}
		return badgerimpl.ToDB(db), nil
	default:
		db, err := pebble.OpenPebbleDB(logger, flags.dataDir)
		if err != nil {
			return nil, err
		}
		return pebbleimpl.ToDB(db), nil
	}
}

// openChain loads the node config and opens the chain database. The caller
// must close the returned chain.
func openChain(cmd *cobra.Command, flags *rootFlags) (*chain, error) {
	cfg, err := config.Load(cmd.Flags(), flags.configFile)
	if err != nil {
		return nil, err
	}

	db, err := openDB(flags)
	if err != nil {
		return nil, fmt.Errorf("could not open chain database at %s: %w", flags.dataDir, err)
	}

	em, err := epochs.NewManager(log.Logger, db, epochs.Config{
		EpochLength:     flags.epochLength,
		NumEpochsToKeep: cfg.GC.NumEpochsToKeep(),
	})
	if err != nil {
		return nil, merr.CloseAndMergeError(db, fmt.Errorf("could not create epoch manager: %w", err))
	}

	registry := prometheus.NewRegistry()
	chainStore := store.NewChainStore(log.Logger, metrics.NewCacheCollector(registry), db)
	return &chain{
		config:      cfg,
		db:          db,
		store:       chainStore,
		epochs:      em,
		tries:       trie.NewShardTries(log.Logger),
		collector:   gc.NewCollector(log.Logger, chainStore, metrics.NewGCCollector(registry)),
		registry:    registry,
		metricsFile: flags.metricsFile,
	}, nil
}

func (c *chain) shardTracker() (*tracker.ShardTracker, error) {
	return tracker.NewShardTracker(log.Logger, tracker.TrackedConfigFromFlags(c.config.Tracking), c.epochs)
}

// logTails reports the tail heights after a command changed them.
func (c *chain) logTails(msg string) error {
	head, err := c.store.Head()
	if err != nil {
		return err
	}
	tail, err := c.store.Tail()
	if err != nil {
		return err
	}
	forkTail, err := c.store.ForkTail()
	if err != nil {
		return err
	}
	chunkTail, err := c.store.ChunkTail()
	if err != nil {
		return err
	}
	log.Info().
		Uint64("head", head.Height).
		Uint64("tail", tail).
		Uint64("fork_tail", forkTail).
		Uint64("chunk_tail", chunkTail).
		Msg(msg)
	return nil
}

// Close writes the metrics file, if one was requested, and closes the database.
func (c *chain) Close() error {
	var err error
	if c.metricsFile != "" {
		err = prometheus.WriteToTextfile(c.metricsFile, c.registry)
		if err != nil {
			err = fmt.Errorf("could not write metrics to %s: %w", c.metricsFile, err)
		}
	}
	return merr.CloseAndMergeError(c.db, err)
}
