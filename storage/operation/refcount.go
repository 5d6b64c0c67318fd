package operation

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shardchain/node/module/irrecoverable"
	"github.com/shardchain/node/storage"
)

// refcountSuffixLen is the size of the little-endian int64 reference count
// appended to every value of a refcounted column.
const refcountSuffixLen = 8

// EncodeRefcounted appends the refcount to the value.
func EncodeRefcounted(value []byte, rc int64) []byte {
	out := make([]byte, len(value)+refcountSuffixLen)
	copy(out, value)
	binary.LittleEndian.PutUint64(out[len(value):], uint64(rc))
	return out
}

// DecodeRefcounted splits a stored value into payload and refcount.
func DecodeRefcounted(stored []byte) ([]byte, int64, error) {
	if len(stored) < refcountSuffixLen {
		return nil, 0, irrecoverable.NewExceptionf("refcounted value too short: %d bytes", len(stored))
	}
	split := len(stored) - refcountSuffixLen
	rc := int64(binary.LittleEndian.Uint64(stored[split:]))
	return stored[:split], rc, nil
}

// RetrieveRefcountedByKey returns the payload and refcount stored under the key.
// Error returns:
//   - [storage.ErrNotFound] if the key does not exist in the database
func RetrieveRefcountedByKey(r storage.Reader, key []byte) ([]byte, int64, error) {
	stored, err := RetrieveRawByKey(r, key)
	if err != nil {
		return nil, 0, err
	}
	return DecodeRefcounted(stored)
}

// UpdateRefcountByKey adds delta to the refcount of the key. The payload is
// written when the key is absent and delta is positive. A row whose count
// drops to zero or below is removed. Decrementing an absent key is a no-op, so
// repeating a decrement after the row is gone has no further effect.
//
// The reader must observe the writes pending in w, otherwise two updates of
// the same key within one batch lose one of the deltas.
// No errors are expected during normal operation.
func UpdateRefcountByKey(r storage.Reader, w storage.Writer, key []byte, value []byte, delta int64) error {
	if delta == 0 {
		return nil
	}

	payload, rc, err := RetrieveRefcountedByKey(r, key)
	if errors.Is(err, storage.ErrNotFound) {
		if delta < 0 {
			return nil
		}
		return UpsertRawByKey(w, key, EncodeRefcounted(value, delta))
	}
	if err != nil {
		return fmt.Errorf("could not read refcount of %x: %w", key, err)
	}

	rc += delta
	if rc <= 0 {
		return RemoveByKey(w, key)
	}
	if len(payload) == 0 {
		payload = value
	}
	return UpsertRawByKey(w, key, EncodeRefcounted(payload, rc))
}

// IncrementRefcountByKey increments the refcount of an entity, encoding it on
// first insertion.
func IncrementRefcountByKey(r storage.Reader, w storage.Writer, key []byte, entity interface{}, delta uint32) error {
	value, err := encodeEntity(entity)
	if err != nil {
		return err
	}
	return UpdateRefcountByKey(r, w, key, value, int64(delta))
}

// DecrementRefcountByKey decrements the refcount stored under the key.
func DecrementRefcountByKey(r storage.Reader, w storage.Writer, key []byte, delta uint32) error {
	return UpdateRefcountByKey(r, w, key, nil, -int64(delta))
}

// RetrieveRefcountedEntity decodes the payload of a refcounted row.
func RetrieveRefcountedEntity(r storage.Reader, key []byte, entity interface{}) (int64, error) {
	payload, rc, err := RetrieveRefcountedByKey(r, key)
	if err != nil {
		return 0, err
	}
	return rc, decodeValue(payload, entity)
}
