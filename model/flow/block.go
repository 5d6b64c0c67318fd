package flow

// Block is a header plus one chunk header per shard of the block's epoch layout.
type Block struct {
	Header *Header
	Chunks []*ChunkHeader
}

// NewBlock creates a block and commits the header to the chunk headers.
func NewBlock(header *Header, chunks []*ChunkHeader) *Block {
	header.ChunksHash = MakeID(chunks)
	return &Block{Header: header, Chunks: chunks}
}

// ID returns the ID of the header.
func (b *Block) ID() Identifier {
	return b.Header.ID()
}

// NewChunks returns the chunk headers that were produced for this block, i.e.
// those included at the block's own height.
func (b *Block) NewChunks() []*ChunkHeader {
	chunks := make([]*ChunkHeader, 0, len(b.Chunks))
	for _, chunk := range b.Chunks {
		if chunk.HeightIncluded == b.Header.Height {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// BlockHashesByEpoch is the per-height fan-out index: for every epoch, the set of
// block hashes at one height.
type BlockHashesByEpoch map[EpochID]map[Identifier]struct{}

// Clone returns a deep copy of the map.
func (m BlockHashesByEpoch) Clone() BlockHashesByEpoch {
	out := make(BlockHashesByEpoch, len(m))
	for epoch, hashes := range m {
		set := make(map[Identifier]struct{}, len(hashes))
		for h := range hashes {
			set[h] = struct{}{}
		}
		out[epoch] = set
	}
	return out
}

// All returns every hash in the index, ordered by epoch and then by hash.
func (m BlockHashesByEpoch) All() []Identifier {
	epochs := make([]EpochID, 0, len(m))
	for epoch := range m {
		epochs = append(epochs, epoch)
	}
	sortEpochIDs(epochs)
	var out []Identifier
	for _, epoch := range epochs {
		out = append(out, sortedIDs(m[epoch])...)
	}
	return out
}
