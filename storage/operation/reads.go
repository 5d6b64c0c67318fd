package operation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shardchain/node/module/irrecoverable"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/utils/merr"
)

// IterationFunc is called for every entry an iteration visits. keyCopy is
// owned by the callee. getValue decodes the entry's value into destVal and is
// only valid during the call. Returning bail stops the iteration without error.
type IterationFunc func(keyCopy []byte, getValue func(destVal any) error) (bail bool, err error)

// KeyOnlyIterateFunc adapts a key visitor to an IterationFunc. An error from
// fn stops the iteration.
func KeyOnlyIterateFunc(fn func(key []byte) error) IterationFunc {
	return func(key []byte, _ func(destVal any) error) (bool, error) {
		if err := fn(key); err != nil {
			return true, err
		}
		return false, nil
	}
}

func checkPrefixRange(startPrefix, endPrefix []byte) error {
	switch {
	case len(startPrefix) == 0:
		return fmt.Errorf("start prefix is empty")
	case len(endPrefix) == 0:
		return fmt.Errorf("end prefix is empty")
	case bytes.Compare(startPrefix, endPrefix) > 0:
		return fmt.Errorf("start prefix %x is above end prefix %x", startPrefix, endPrefix)
	}
	return nil
}

// IterateKeys visits, in key order, every entry whose key starts with a prefix
// in [startPrefix, endPrefix].
// No errors are expected during normal operation.
func IterateKeys(r storage.Reader, startPrefix []byte, endPrefix []byte, iterFunc IterationFunc, opt storage.IteratorOption) (errToReturn error) {
	if err := checkPrefixRange(startPrefix, endPrefix); err != nil {
		return err
	}
	it, err := r.NewIter(startPrefix, endPrefix, opt)
	if err != nil {
		return fmt.Errorf("could not create iterator: %w", err)
	}
	defer func() {
		errToReturn = merr.CloseAndMergeError(it, errToReturn)
	}()

	for it.First(); it.Valid(); it.Next() {
		item := it.IterItem()
		// backends reuse the key buffer across steps
		keyCopy := bytes.Clone(item.Key())
		bail, err := iterFunc(keyCopy, func(destVal any) error {
			return item.Value(func(val []byte) error {
				return decodeValue(val, destVal)
			})
		})
		if err != nil || bail {
			return err
		}
	}
	return nil
}

// IterateKeysByPrefixRange visits the keys in [startPrefix, endPrefix] without
// loading values.
func IterateKeysByPrefixRange(r storage.Reader, startPrefix []byte, endPrefix []byte, check func(key []byte) error) error {
	return IterateKeys(r, startPrefix, endPrefix, KeyOnlyIterateFunc(check), storage.IteratorOption{BadgerIterateKeyOnly: true})
}

// TraverseByPrefix visits every entry under the prefix.
func TraverseByPrefix(r storage.Reader, prefix []byte, iterFunc IterationFunc, opt storage.IteratorOption) error {
	return IterateKeys(r, prefix, prefix, iterFunc, opt)
}

// CollectKeysByPrefix returns a copy of every key starting with the prefix. Keys
// are collected before the caller deletes them, since iterators must not be
// open while the same batch is written.
func CollectKeysByPrefix(r storage.Reader, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := IterateKeysByPrefixRange(r, prefix, prefix, func(key []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// withValue runs fn on the value stored under key. The value must not be
// retained after fn returns.
func withValue(r storage.Reader, key []byte, fn func(val []byte) error) (errToReturn error) {
	val, closer, err := r.Get(key)
	if err != nil {
		return err
	}
	defer func() {
		errToReturn = merr.CloseAndMergeError(closer, errToReturn)
	}()
	return fn(val)
}

// KeyExists reports whether a value is stored under the key.
// No errors are expected during normal operation.
func KeyExists(r storage.Reader, key []byte) (bool, error) {
	err := withValue(r, key, func([]byte) error { return nil })
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, irrecoverable.NewExceptionf("could not load data: %w", err)
	}
	return true, nil
}

// RetrieveByKey decodes the value stored under the key into entity, which must
// be a pointer.
// Expected errors during normal operations:
//   - storage.ErrNotFound if nothing is stored under the key
func RetrieveByKey(r storage.Reader, key []byte, entity any) error {
	return withValue(r, key, func(val []byte) error {
		return decodeValue(val, entity)
	})
}

// RetrieveRawByKey returns a copy of the raw value stored under the key.
// Expected errors during normal operations:
//   - storage.ErrNotFound if nothing is stored under the key
func RetrieveRawByKey(r storage.Reader, key []byte) ([]byte, error) {
	var value []byte
	err := withValue(r, key, func(val []byte) error {
		value = bytes.Clone(val)
		return nil
	})
	return value, err
}
