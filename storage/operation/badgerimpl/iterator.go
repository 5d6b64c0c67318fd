package badgerimpl

import (
	"bytes"

	"github.com/dgraph-io/badger/v2"

	"github.com/shardchain/node/storage"
)

type badgerIterator struct {
	tx            *badger.Txn
	ownsTx        bool
	iter          *badger.Iterator
	lowerBound    []byte
	upperBound    []byte
	hasUpperBound bool
}

var _ storage.Iterator = (*badgerIterator)(nil)

func newBadgerIterator(tx *badger.Txn, ownsTx bool, startPrefix, endPrefix []byte, ops storage.IteratorOption) *badgerIterator {
	options := badger.DefaultIteratorOptions
	if ops.BadgerIterateKeyOnly {
		options.PrefetchValues = false
	}

	iter := tx.NewIterator(options)

	lowerBound, upperBound, hasUpperBound := storage.StartEndPrefixToLowerUpperBound(startPrefix, endPrefix)

	return &badgerIterator{
		tx:            tx,
		ownsTx:        ownsTx,
		iter:          iter,
		lowerBound:    lowerBound,
		upperBound:    upperBound,
		hasUpperBound: hasUpperBound,
	}
}

// First seeks to the smallest key greater than or equal to the given key.
func (i *badgerIterator) First() bool {
	i.iter.Seek(i.lowerBound)
	return i.Valid()
}

// Valid returns whether the iterator is positioned at a valid key-value pair.
func (i *badgerIterator) Valid() bool {
	// badger's iterator has no upper bound, check it here
	if !i.iter.Valid() {
		return false
	}

	if !i.hasUpperBound {
		return true
	}

	key := i.iter.Item().Key()
	return bytes.Compare(key, i.upperBound) < 0
}

// Next advances the iterator to the next key-value pair.
func (i *badgerIterator) Next() {
	i.iter.Next()
}

// IterItem returns the current key-value pair, or nil if done.
func (i *badgerIterator) IterItem() storage.IterItem {
	return i.iter.Item()
}

var _ storage.IterItem = (*badger.Item)(nil)

// Close closes the iterator. Iterator must be closed, otherwise it causes memory leak.
// No errors expected during normal operation
func (i *badgerIterator) Close() error {
	i.iter.Close()
	if i.ownsTx {
		i.tx.Discard()
	}
	return nil
}
