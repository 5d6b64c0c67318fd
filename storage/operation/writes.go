package operation

import (
	"fmt"

	"github.com/shardchain/node/module/irrecoverable"
	"github.com/shardchain/node/storage"
)

// UpsertByKey will encode the given entity using msgpack and will insert the resulting
// binary data under the provided key.
// If the key already exists, the value will be overwritten.
// Error returns:
//   - generic error in case of unexpected failure from the database layer or
//     encoding failure.
func UpsertByKey(w storage.Writer, key []byte, val interface{}) error {
	value, err := encodeEntity(val)
	if err != nil {
		return err
	}

	err = w.Set(key, value)
	if err != nil {
		return irrecoverable.NewExceptionf("failed to store data: %w", err)
	}

	return nil
}

// UpsertRawByKey stores an already encoded value under the key.
func UpsertRawByKey(w storage.Writer, key []byte, value []byte) error {
	err := w.Set(key, value)
	if err != nil {
		return irrecoverable.NewExceptionf("failed to store data: %w", err)
	}
	return nil
}

// RemoveByKey removes the entity with the given key, if it exists. If it doesn't
// exist, this is a no-op.
// Error returns:
// * generic error in case of unexpected database error
func RemoveByKey(w storage.Writer, key []byte) error {
	err := w.Delete(key)
	if err != nil {
		return irrecoverable.NewExceptionf("could not delete item: %w", err)
	}
	return nil
}

// RemoveByKeyPrefix removes all keys with the given prefix
// Error returns:
// * generic error in case of unexpected database error
func RemoveByKeyPrefix(reader storage.Reader, w storage.Writer, prefix []byte) error {
	return RemoveByKeyRange(reader, w, prefix, prefix)
}

// RemoveByKeyRange removes all keys with a prefix that falls within the range [start, end], both inclusive.
// It returns error if endPrefix < startPrefix
// no other errors are expected during normal operation
func RemoveByKeyRange(reader storage.Reader, w storage.Writer, startPrefix []byte, endPrefix []byte) error {
	err := w.DeleteByRange(reader, startPrefix, endPrefix)
	if err != nil {
		return fmt.Errorf("could not delete range [%x, %x]: %w", startPrefix, endPrefix, err)
	}
	return nil
}
