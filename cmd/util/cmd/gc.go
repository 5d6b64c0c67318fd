package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newGCCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Run one garbage collection pass on a stopped node's database",
		Long: `Run one garbage collection pass with the node's gc config. Regular nodes
delete blocks of abandoned forks and canonical blocks below the gc stop height.
Archival nodes (--archive) only delete chunk data that can be rebuilt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (errToReturn error) {
			c, err := openChain(cmd, flags)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil && errToReturn == nil {
					errToReturn = err
				}
			}()

			log.Info().
				Str("datadir", flags.dataDir).
				Bool("archive", c.config.Archive).
				Uint64("gc_blocks_limit", c.config.GC.GCBlocksLimit).
				Uint64("gc_fork_clean_step", c.config.GC.GCForkCleanStep).
				Msg("running garbage collection pass")

			if c.config.Archive {
				err = c.collector.ClearArchiveData(c.config.GC.GCBlocksLimit, c.epochs)
			} else {
				st, trackerErr := c.shardTracker()
				if trackerErr != nil {
					return fmt.Errorf("could not create shard tracker: %w", trackerErr)
				}
				err = c.collector.ClearData(c.config.GC, c.epochs, st, c.tries)
			}
			if err != nil {
				return fmt.Errorf("garbage collection pass failed: %w", err)
			}
			return c.logTails("garbage collection pass done")
		},
	}
}
