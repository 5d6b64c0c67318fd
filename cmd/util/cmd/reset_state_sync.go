package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shardchain/node/model/flow"
)

func newResetStateSyncCmd(flags *rootFlags) *cobra.Command {
	var syncHashHex string
	cmd := &cobra.Command{
		Use:   "reset-state-sync",
		Short: "Delete the chain below a state sync block and drop all trie state",
		Long: `Prepare the database for a state sync to the given block: blocks and chunks
below it are deleted, the trie state is dropped and the tails are reset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (errToReturn error) {
			syncHash, err := flow.HexStringToIdentifier(syncHashHex)
			if err != nil {
				return fmt.Errorf("invalid sync hash %q: %w", syncHashHex, err)
			}
			c, err := openChain(cmd, flags)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil && errToReturn == nil {
					errToReturn = err
				}
			}()

			log.Info().Str("sync_hash", syncHash.String()).Msg("resetting data before state sync")
			err = c.collector.ResetDataPreStateSync(syncHash, c.epochs, c.tries)
			if err != nil {
				return fmt.Errorf("could not reset data before state sync to %v: %w", syncHash, err)
			}
			return c.logTails("reset done")
		},
	}
	cmd.Flags().StringVar(&syncHashHex, "sync-hash", "", "hex hash of the block the node state syncs to")
	_ = cmd.MarkFlagRequired("sync-hash")
	return cmd
}
