package gc

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shardchain/node/module"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/store"
	"github.com/shardchain/node/utils/merr"
)

// ChainStoreUpdate stages the deletions of one atomic garbage collection step.
// Reads through the embedded Access observe the staged writes, so a step sees
// its own refcount decrements and pointer updates.
type ChainStoreUpdate struct {
	*store.Access
	chain   *store.ChainStore
	batch   storage.Batch
	metrics module.GCMetrics
	log     zerolog.Logger
	closed  bool
}

func newChainStoreUpdate(log zerolog.Logger, chain *store.ChainStore, metrics module.GCMetrics) *ChainStoreUpdate {
	batch := chain.DB().NewBatch()
	return &ChainStoreUpdate{
		Access:  chain.ReadsFrom(batch.BatchReader()),
		chain:   chain,
		batch:   batch,
		metrics: metrics,
		log:     log,
	}
}

// Commit applies the staged step and releases the batch.
// No errors are expected during normal operation.
func (u *ChainStoreUpdate) Commit() error {
	err := u.batch.Commit()
	if err != nil {
		err = fmt.Errorf("could not commit gc step: %w", err)
	}
	return merr.CloseAndMergeError(u, err)
}

// Close releases the batch. Closing an uncommitted update discards it;
// closing twice is a no-op.
func (u *ChainStoreUpdate) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.batch.Close()
}

func (u *ChainStoreUpdate) writer() storage.Writer {
	return u.batch.Writer()
}

func (u *ChainStoreUpdate) onCommit(fn func()) {
	storage.OnCommitSucceed(u.batch, fn)
}

// updateTail moves the tail and lifts the fork tail to it when it lags
// behind.
func (u *ChainStoreUpdate) updateTail(height uint64) error {
	if err := u.chain.SetTail(u.writer(), height); err != nil {
		return err
	}
	forkTail, err := u.ForkTail()
	if err != nil {
		return err
	}
	if forkTail < height {
		if err := u.updateForkTail(height); err != nil {
			return err
		}
	}
	u.onCommit(func() { u.metrics.TailHeight(height) })
	return nil
}

func (u *ChainStoreUpdate) updateForkTail(height uint64) error {
	if err := u.chain.SetForkTail(u.writer(), height); err != nil {
		return err
	}
	u.onCommit(func() { u.metrics.ForkTailHeight(height) })
	return nil
}

func (u *ChainStoreUpdate) updateChunkTail(height uint64) error {
	if err := u.chain.SetChunkTail(u.writer(), height); err != nil {
		return err
	}
	u.onCommit(func() { u.metrics.ChunkTailHeight(height) })
	return nil
}

func (u *ChainStoreUpdate) updateGCStopHeight(height uint64) error {
	if err := u.chain.SetGCStopHeight(u.writer(), height); err != nil {
		return err
	}
	u.onCommit(func() { u.metrics.GCStopHeight(height) })
	return nil
}

// resetTail forgets the tail and fork tail, so both read as the genesis
// height again. The chunk tail is kept: chunk data below it is gone.
func (u *ChainStoreUpdate) resetTail() error {
	w := u.writer()
	for _, name := range [][]byte{operation.KeyTail, operation.KeyForkTail} {
		if err := operation.RemoveByKey(w, operation.ColBlockMisc.Key(name)); err != nil {
			return fmt.Errorf("could not reset %s: %w", name, err)
		}
	}
	return nil
}
