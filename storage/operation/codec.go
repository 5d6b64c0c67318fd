package operation

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/shardchain/node/module/irrecoverable"
)

var errUncompressedValue = errors.New("could not uncompress data")

var compressDisabled atomic.Bool

// SetCompression switches snappy compression of stored values on or off. It
// must be set before the database is written to, and kept for its lifetime.
func SetCompression(enabled bool) {
	compressDisabled.Store(!enabled)
}

// encodeEntity encodes the given entity using msgpack and then compress the
// value depending on the global flag.
// possible error to return is irrecoverable.exception
func encodeEntity(entity interface{}) ([]byte, error) {
	if !compressDisabled.Load() {
		return encodeAndCompress(entity)
	}
	return encodeEntityRaw(entity)
}

// decodeValue decodes the given value into the given entity using msgpack.
// possible error to return is irrecoverable.exception
func decodeValue(val []byte, entity interface{}) error {
	if !compressDisabled.Load() {
		return decodeCompressed(val, entity)
	}
	return decodeValRaw(val, entity)
}

func encodeEntityRaw(entity interface{}) ([]byte, error) {
	val, err := msgpack.Marshal(entity)
	if err != nil {
		return nil, irrecoverable.NewExceptionf("could not encode entity: %w", err)
	}
	return val, nil
}

func decodeValRaw(val []byte, entity interface{}) error {
	err := msgpack.Unmarshal(val, entity)
	if err != nil {
		return irrecoverable.NewExceptionf("could not decode entity: %w", err)
	}
	return nil
}

func encodeAndCompress(entity interface{}) ([]byte, error) {
	val, err := encodeEntityRaw(entity)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, val), nil
}

func decodeCompressed(val []byte, entity interface{}) error {
	uncompressedVal, err := snappy.Decode(nil, val)
	if err != nil {
		return irrecoverable.NewException(fmt.Errorf("%s: %w", err, errUncompressedValue))
	}
	return decodeValRaw(uncompressedVal, entity)
}

// EncodeValue exposes the column value codec to packages that write raw
// refcounted values.
func EncodeValue(entity interface{}) ([]byte, error) {
	return encodeEntity(entity)
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(val []byte, entity interface{}) error {
	return decodeValue(val, entity)
}
