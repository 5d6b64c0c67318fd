package operation

import (
	"errors"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
)

// Keys of the scalars stored in the BlockMisc column.
var (
	KeyHead          = []byte("HEAD")
	KeyTail          = []byte("TAIL")
	KeyChunkTail     = []byte("CHUNK_TAIL")
	KeyForkTail      = []byte("FORK_TAIL")
	KeyHeaderHead    = []byte("HEADER_HEAD")
	KeyFinalHead     = []byte("FINAL_HEAD")
	KeyGCStopHeight  = []byte("GC_STOP_HEIGHT")
	KeyGenesisHeight = []byte("GENESIS_HEIGHT")
	KeyGenesisHash   = []byte("GENESIS_HASH")
)

func miscKey(name []byte) []byte {
	return ColBlockMisc.Key(name)
}

func UpsertTip(w storage.Writer, name []byte, tip *flow.Tip) error {
	return UpsertByKey(w, miscKey(name), tip)
}

func RetrieveTip(r storage.Reader, name []byte, tip *flow.Tip) error {
	return RetrieveByKey(r, miscKey(name), tip)
}

func UpsertHeight(w storage.Writer, name []byte, height uint64) error {
	return UpsertByKey(w, miscKey(name), height)
}

func RetrieveHeight(r storage.Reader, name []byte, height *uint64) error {
	return RetrieveByKey(r, miscKey(name), height)
}

// RetrieveHeightOr reads a height scalar, returning def when it was never written.
func RetrieveHeightOr(r storage.Reader, name []byte, def uint64) (uint64, error) {
	var height uint64
	err := RetrieveHeight(r, name, &height)
	if errors.Is(err, storage.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	return height, nil
}

func UpsertGenesisHash(w storage.Writer, hash flow.Identifier) error {
	return UpsertByKey(w, miscKey(KeyGenesisHash), hash)
}

func RetrieveGenesisHash(r storage.Reader, hash *flow.Identifier) error {
	return RetrieveByKey(r, miscKey(KeyGenesisHash), hash)
}
