package store

import (
	"errors"
	"fmt"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

// ChainStoreAccess is the read API over the chain columns. It is served both by
// the committed database and by pending updates, which observe their own
// writes.
type ChainStoreAccess interface {
	Head() (*flow.Tip, error)
	HeaderHead() (*flow.Tip, error)
	FinalHead() (*flow.Tip, error)
	GenesisHeight() (uint64, error)
	Tail() (uint64, error)
	ChunkTail() (uint64, error)
	ForkTail() (uint64, error)
	GCStopHeight() (uint64, error)

	BlockHeader(blockHash flow.Identifier) (*flow.Header, error)
	Block(blockHash flow.Identifier) (*flow.Block, error)
	BlockExists(blockHash flow.Identifier) (bool, error)
	BlockHashByHeight(height uint64) (flow.Identifier, error)
	AllBlockHashesByHeight(height uint64) (flow.BlockHashesByEpoch, error)
	AllChunkHashesByHeight(height uint64) ([]flow.Identifier, error)
	AllHeaderHashesByHeight(height uint64) ([]flow.Identifier, error)
	BlockRefcount(blockHash flow.Identifier) (uint64, error)
	NextBlockHash(blockHash flow.Identifier) (flow.Identifier, error)

	Chunk(chunkHash flow.Identifier) (*flow.Chunk, error)
	PartialChunk(chunkHash flow.Identifier) (*flow.PartialChunk, error)
	StateHeader(shardID flow.ShardID, syncHash flow.Identifier) (*flow.StateHeader, error)
	OutcomeIDs(blockHash flow.Identifier, shardID flow.ShardID) ([]flow.Identifier, error)
}

// Access implements ChainStoreAccess on top of a storage reader.
type Access struct {
	r       storage.Reader
	headers *Cache[flow.Identifier, *flow.Header]
}

var _ ChainStoreAccess = (*Access)(nil)

// Reader returns the reader the access reads through.
func (a *Access) Reader() storage.Reader {
	return a.r
}

// Head returns the tip of the canonical chain.
// Error returns:
//   - [storage.ErrNotFound] if no head was written yet
func (a *Access) Head() (*flow.Tip, error) {
	return a.tip(operation.KeyHead)
}

func (a *Access) HeaderHead() (*flow.Tip, error) {
	return a.tip(operation.KeyHeaderHead)
}

func (a *Access) FinalHead() (*flow.Tip, error) {
	return a.tip(operation.KeyFinalHead)
}

func (a *Access) tip(name []byte) (*flow.Tip, error) {
	var tip flow.Tip
	err := operation.RetrieveTip(a.r, name, &tip)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", name, err)
	}
	return &tip, nil
}

func (a *Access) GenesisHeight() (uint64, error) {
	var height uint64
	err := operation.RetrieveHeight(a.r, operation.KeyGenesisHeight, &height)
	if err != nil {
		return 0, storage.RequirePresent(err, "could not read genesis height")
	}
	return height, nil
}

// heightOrGenesis reads a height scalar that defaults to the genesis height.
func (a *Access) heightOrGenesis(name []byte) (uint64, error) {
	genesisHeight, err := a.GenesisHeight()
	if err != nil {
		return 0, err
	}
	height, err := operation.RetrieveHeightOr(a.r, name, genesisHeight)
	if err != nil {
		return 0, fmt.Errorf("could not read %s: %w", name, err)
	}
	return height, nil
}

func (a *Access) Tail() (uint64, error) {
	return a.heightOrGenesis(operation.KeyTail)
}

func (a *Access) ChunkTail() (uint64, error) {
	return a.heightOrGenesis(operation.KeyChunkTail)
}

func (a *Access) ForkTail() (uint64, error) {
	return a.heightOrGenesis(operation.KeyForkTail)
}

func (a *Access) GCStopHeight() (uint64, error) {
	return a.heightOrGenesis(operation.KeyGCStopHeight)
}

// BlockHeader returns the header of the block. Headers are never deleted, so
// they are cached.
// Error returns:
//   - [storage.ErrNotFound] if the header is unknown
func (a *Access) BlockHeader(blockHash flow.Identifier) (*flow.Header, error) {
	return a.headers.Get(a.r, blockHash)
}

// Block returns the block body.
// Error returns:
//   - [storage.ErrNotFound] if the block is unknown or was garbage collected
func (a *Access) Block(blockHash flow.Identifier) (*flow.Block, error) {
	var block flow.Block
	err := operation.RetrieveBlock(a.r, blockHash, &block)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve block %v: %w", blockHash, err)
	}
	return &block, nil
}

func (a *Access) BlockExists(blockHash flow.Identifier) (bool, error) {
	return operation.KeyExists(a.r, operation.MakePrefix(operation.ColBlock, blockHash))
}

// BlockHashByHeight returns the hash of the canonical block at the height.
// Error returns:
//   - [storage.ErrNotFound] if no canonical block is indexed at the height
func (a *Access) BlockHashByHeight(height uint64) (flow.Identifier, error) {
	var blockHash flow.Identifier
	err := operation.LookupCanonicalHeight(a.r, height, &blockHash)
	if err != nil {
		return flow.ZeroID, fmt.Errorf("could not look up block at height %d: %w", height, err)
	}
	return blockHash, nil
}

// AllBlockHashesByHeight returns every block at the height grouped by epoch.
// An empty index is returned for heights without blocks.
func (a *Access) AllBlockHashesByHeight(height uint64) (flow.BlockHashesByEpoch, error) {
	index, err := operation.RetrieveBlocksPerHeight(a.r, height)
	if errors.Is(err, storage.ErrNotFound) {
		return flow.BlockHashesByEpoch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read blocks at height %d: %w", height, err)
	}
	return index, nil
}

// AllChunkHashesByHeight returns the hashes of the chunks created at the height.
func (a *Access) AllChunkHashesByHeight(height uint64) ([]flow.Identifier, error) {
	var hashes []flow.Identifier
	err := operation.RetrieveChunkHashesByHeight(a.r, height, &hashes)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read chunks at height %d: %w", height, err)
	}
	return hashes, nil
}

// AllHeaderHashesByHeight returns the hashes of the headers at the height.
func (a *Access) AllHeaderHashesByHeight(height uint64) ([]flow.Identifier, error) {
	var hashes []flow.Identifier
	err := operation.RetrieveHeaderHashesByHeight(a.r, height, &hashes)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read headers at height %d: %w", height, err)
	}
	return hashes, nil
}

// BlockRefcount returns the number of stored children of the block.
// Error returns:
//   - [storage.ErrNotFound] if the block has no refcount row
func (a *Access) BlockRefcount(blockHash flow.Identifier) (uint64, error) {
	var refcount uint64
	err := operation.RetrieveBlockRefcount(a.r, blockHash, &refcount)
	if err != nil {
		return 0, fmt.Errorf("could not read refcount of %v: %w", blockHash, err)
	}
	return refcount, nil
}

// NextBlockHash returns the canonical successor of the block.
// Error returns:
//   - [storage.ErrNotFound] if the block has no canonical successor
func (a *Access) NextBlockHash(blockHash flow.Identifier) (flow.Identifier, error) {
	var next flow.Identifier
	err := operation.RetrieveNextBlockHash(a.r, blockHash, &next)
	if err != nil {
		return flow.ZeroID, fmt.Errorf("could not read next block of %v: %w", blockHash, err)
	}
	return next, nil
}

func (a *Access) Chunk(chunkHash flow.Identifier) (*flow.Chunk, error) {
	var chunk flow.Chunk
	err := operation.RetrieveChunk(a.r, chunkHash, &chunk)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve chunk %v: %w", chunkHash, err)
	}
	return &chunk, nil
}

func (a *Access) PartialChunk(chunkHash flow.Identifier) (*flow.PartialChunk, error) {
	var partial flow.PartialChunk
	err := operation.RetrievePartialChunk(a.r, chunkHash, &partial)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve partial chunk %v: %w", chunkHash, err)
	}
	return &partial, nil
}

func (a *Access) StateHeader(shardID flow.ShardID, syncHash flow.Identifier) (*flow.StateHeader, error) {
	var header flow.StateHeader
	err := operation.RetrieveStateHeader(a.r, shardID, syncHash, &header)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve state header of shard %d at %v: %w", shardID, syncHash, err)
	}
	return &header, nil
}

// OutcomeIDs returns the ids of the outcomes of the shard in the block. An
// empty list is returned if none were stored.
func (a *Access) OutcomeIDs(blockHash flow.Identifier, shardID flow.ShardID) ([]flow.Identifier, error) {
	var ids []flow.Identifier
	err := operation.RetrieveOutcomeIDs(a.r, blockHash, shardID, &ids)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read outcome ids of shard %d in %v: %w", shardID, blockHash, err)
	}
	return ids, nil
}
