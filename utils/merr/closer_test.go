package merr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/utils/merr"
)

type closer struct {
	err error
}

func (c closer) Close() error {
	return c.err
}

func TestCloseAndMergeError(t *testing.T) {
	closeErr := errors.New("close error")
	otherErr := errors.New("other error")

	t.Run("no errors", func(t *testing.T) {
		require.NoError(t, merr.CloseAndMergeError(closer{}, nil))
	})

	t.Run("close error only", func(t *testing.T) {
		err := merr.CloseAndMergeError(closer{err: closeErr}, nil)
		require.ErrorIs(t, err, closeErr)
	})

	t.Run("wrapped sentinel survives merging", func(t *testing.T) {
		err := merr.CloseAndMergeError(closer{err: closeErr}, fmt.Errorf("lookup: %w", storage.ErrNotFound))
		require.ErrorIs(t, err, storage.ErrNotFound)
		require.ErrorIs(t, err, closeErr)
	})

	t.Run("both errors", func(t *testing.T) {
		err := merr.CloseAndMergeError(closer{err: closeErr}, otherErr)
		require.ErrorIs(t, err, otherErr)
		require.ErrorIs(t, err, closeErr)
	})
}
