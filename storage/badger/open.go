package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
)

// DefaultOptions returns the badger options a node database is opened with.
// Conflict detection is disabled: all writers of the chain database go through
// batches whose keys are partitioned by block, and GC is a single writer.
func DefaultOptions(logger zerolog.Logger, dir string) badger.Options {
	return badger.DefaultOptions(dir).
		WithKeepL0InMemory(true).
		WithDetectConflicts(false).
		WithLogger(NewLogger(logger))
}

// OpenBadgerDB opens the node database in dir, creating it when missing.
func OpenBadgerDB(logger zerolog.Logger, dir string) (*badger.DB, error) {
	db, err := badger.Open(DefaultOptions(logger, dir))
	if err != nil {
		return nil, fmt.Errorf("could not open badger db at %s: %w", dir, err)
	}
	return db, nil
}
