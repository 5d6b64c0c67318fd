package flow

// Header contains all meta-data for a block. The ID of a block is the hash of
// its header.
type Header struct {
	Height         uint64
	PrevHash       Identifier
	EpochID        EpochID
	NextEpochID    EpochID
	LastFinalBlock Identifier
	// ChunksHash commits to the chunk headers carried by the block body.
	ChunksHash Identifier
	// Nonce distinguishes otherwise identical headers, e.g. competing forks.
	Nonce uint64
}

// ID returns the content hash of the header.
func (h *Header) ID() Identifier {
	return MakeID(h)
}

// IsGenesis returns whether the header has the zero previous hash.
func (h *Header) IsGenesis() bool {
	return h.PrevHash == ZeroID
}

// Tip is a pointer into the chain: HEAD, HEADER_HEAD and similar.
type Tip struct {
	Height        uint64
	LastBlockHash Identifier
	PrevBlockHash Identifier
	EpochID       EpochID
	NextEpochID   EpochID
}

// TipFromHeader creates a tip pointing at the given header.
func TipFromHeader(header *Header) *Tip {
	return &Tip{
		Height:        header.Height,
		LastBlockHash: header.ID(),
		PrevBlockHash: header.PrevHash,
		EpochID:       header.EpochID,
		NextEpochID:   header.NextEpochID,
	}
}
