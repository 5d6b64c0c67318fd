package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newUndoBlockCmd(flags *rootFlags) *cobra.Command {
	var count uint64
	cmd := &cobra.Command{
		Use:   "undo-block",
		Short: "Delete the head block and move the head back to its parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (errToReturn error) {
			if count == 0 {
				return fmt.Errorf("count must be above 0")
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

			for i := uint64(0); i < count; i++ {
				head, err := c.collector.UndoHeadBlock(c.epochs)
				if err != nil {
					return fmt.Errorf("could not undo block %d of %d: %w", i+1, count, err)
				}
				log.Info().
					Uint64("height", head.Height).
					Str("block_hash", head.LastBlockHash.String()).
					Msg("head moved back")
			}
			return c.logTails("undo done")
		},
	}
	cmd.Flags().Uint64Var(&count, "count", 1, "number of head blocks to undo")
	return cmd
}
