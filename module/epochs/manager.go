package epochs

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

const (
	blockInfoCacheSize = 1000
	epochInfoCacheSize = 100
)

// Manager is a store-backed EpochManager for chains with fixed-length epochs.
//
// The genesis epoch has the zero id and the genesis block names the next
// epoch after itself (see GenesisNextEpochID). When block c starts a new
// epoch after block b, c's epoch is b's next epoch, and c's next epoch is
// named after b. The info of the epoch named after b is recorded together
// with b, so the epochs a child of the head will carry are always known.
type Manager struct {
	log        zerolog.Logger
	db         storage.DB
	config     Config
	blockInfos *lru.Cache[flow.Identifier, *flow.BlockInfo]
	epochInfos *lru.Cache[flow.EpochID, *flow.EpochInfo]
}

var _ module.EpochManager = (*Manager)(nil)
var _ module.BlockInfoEvictor = (*Manager)(nil)

func NewManager(log zerolog.Logger, db storage.DB, config Config) (*Manager, error) {
	if config.EpochLength == 0 {
		return nil, fmt.Errorf("epoch length must be positive")
	}
	if config.NumEpochsToKeep == 0 {
		return nil, fmt.Errorf("number of epochs to keep must be positive")
	}
	blockInfos, err := lru.New[flow.Identifier, *flow.BlockInfo](blockInfoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create block info cache: %w", err)
	}
	epochInfos, err := lru.New[flow.EpochID, *flow.EpochInfo](epochInfoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create epoch info cache: %w", err)
	}
	return &Manager{
		log:        log.With().Str("module", "epoch_manager").Logger(),
		db:         db,
		config:     config,
		blockInfos: blockInfos,
		epochInfos: epochInfos,
	}, nil
}

// GenesisNextEpochID names the epoch following genesis. It is the hash of the
// genesis header with the next epoch id unset.
func GenesisNextEpochID(genesis *flow.Header) flow.EpochID {
	header := *genesis
	header.NextEpochID = flow.ZeroEpochID
	return flow.EpochID(header.ID())
}

// InitGenesis records the genesis epoch and the epoch that follows it.
func (m *Manager) InitGenesis(rw storage.ReaderBatchWriter, genesis *flow.Header) error {
	if !genesis.IsGenesis() {
		return fmt.Errorf("block at height %d is not a genesis block", genesis.Height)
	}
	genesisHash := genesis.ID()
	if genesis.EpochID != flow.ZeroEpochID || genesis.NextEpochID != GenesisNextEpochID(genesis) {
		return fmt.Errorf("genesis block must be in the zero epoch and name the next epoch after itself")
	}
	w := rw.Writer()

	err := operation.UpsertEpochStart(w, flow.ZeroEpochID, &flow.EpochStart{BlockHash: genesisHash, Height: genesis.Height})
	if err != nil {
		return err
	}
	err = m.insertEpochInfo(w, flow.ZeroEpochID, 0, flow.ZeroEpochID)
	if err != nil {
		return err
	}
	err = m.insertEpochInfo(w, genesis.NextEpochID, 1, flow.ZeroEpochID)
	if err != nil {
		return err
	}
	if m.config.EpochLength == 1 {
		err = m.insertEpochInfo(w, flow.EpochID(genesisHash), 2, genesis.NextEpochID)
		if err != nil {
			return err
		}
	}
	return operation.UpsertBlockInfo(w, genesisHash, &flow.BlockInfo{
		Hash:            genesisHash,
		PrevHash:        flow.ZeroID,
		Height:          genesis.Height,
		EpochID:         genesis.EpochID,
		NextEpochID:     genesis.NextEpochID,
		EpochFirstBlock: genesisHash,
		LastFinalHeight: genesis.Height,
	})
}

func (m *Manager) insertEpochInfo(w storage.Writer, epochID flow.EpochID, epochHeight uint64, prev flow.EpochID) error {
	info := &flow.EpochInfo{
		EpochID:     epochID,
		EpochHeight: epochHeight,
		PrevEpochID: prev,
		ShardLayout: m.config.Layouts.LayoutAt(epochHeight),
		Assignments: m.config.assignments(epochHeight),
	}
	err := operation.UpsertEpochInfo(w, info)
	if err != nil {
		return fmt.Errorf("could not store epoch info of %v: %w", epochID, err)
	}
	return nil
}

// insertFollowingEpochInfo records the epoch named after the last block of an
// epoch. It follows the block's next epoch.
func (m *Manager) insertFollowingEpochInfo(r storage.Reader, w storage.Writer, lastBlock flow.Identifier, nextEpochID flow.EpochID) error {
	next, err := m.readEpochInfo(r, nextEpochID)
	if err != nil {
		return fmt.Errorf("epoch %v ends before its next epoch is known: %w", nextEpochID, err)
	}
	return m.insertEpochInfo(w, flow.EpochID(lastBlock), next.EpochHeight+1, nextEpochID)
}

// NextBlockEpochs returns the epoch and next epoch a child of the parent must
// carry in its header.
func (m *Manager) NextBlockEpochs(parentHash flow.Identifier) (flow.EpochID, flow.EpochID, error) {
	return m.nextBlockEpochs(m.db.Reader(), parentHash)
}

func (m *Manager) nextBlockEpochs(r storage.Reader, parentHash flow.Identifier) (flow.EpochID, flow.EpochID, error) {
	parent, err := m.readBlockInfo(r, parentHash)
	if err != nil {
		return flow.EpochID{}, flow.EpochID{}, err
	}
	start, err := m.isNextBlockEpochStart(r, parent)
	if err != nil {
		return flow.EpochID{}, flow.EpochID{}, err
	}
	if start {
		return parent.NextEpochID, flow.EpochID(parentHash), nil
	}
	return parent.EpochID, parent.NextEpochID, nil
}

// AddBlock records the epoch bookkeeping of a new block. The header's epoch
// ids must match NextBlockEpochs of its parent.
func (m *Manager) AddBlock(rw storage.ReaderBatchWriter, header *flow.Header) error {
	r := rw.BatchReader()
	w := rw.Writer()
	blockHash := header.ID()

	parent, err := m.readBlockInfo(r, header.PrevHash)
	if err != nil {
		return fmt.Errorf("could not read parent of %v: %w", blockHash, err)
	}
	epochID, nextEpochID, err := m.nextBlockEpochs(r, header.PrevHash)
	if err != nil {
		return err
	}
	if header.EpochID != epochID || header.NextEpochID != nextEpochID {
		return fmt.Errorf("block %v carries epochs (%v, %v), expected (%v, %v)",
			blockHash, header.EpochID, header.NextEpochID, epochID, nextEpochID)
	}

	info := &flow.BlockInfo{
		Hash:            blockHash,
		PrevHash:        header.PrevHash,
		Height:          header.Height,
		EpochID:         epochID,
		NextEpochID:     nextEpochID,
		EpochFirstBlock: parent.EpochFirstBlock,
		LastFinalHeight: parent.LastFinalHeight,
	}

	epochStartHeight := header.Height
	if epochID != parent.EpochID {
		info.EpochFirstBlock = blockHash
		err = operation.UpsertEpochStart(w, epochID, &flow.EpochStart{BlockHash: blockHash, Height: header.Height})
		if err != nil {
			return err
		}
		current, err := m.readEpochInfo(r, epochID)
		if err != nil {
			return fmt.Errorf("epoch %v started without epoch info: %w", epochID, err)
		}
		m.log.Debug().
			Uint64("height", header.Height).
			Str("epoch_id", epochID.String()).
			Uint64("epoch_height", current.EpochHeight).
			Msg("new epoch started")
	} else {
		var start flow.EpochStart
		err = operation.RetrieveEpochStart(r, epochID, &start)
		if err != nil {
			return fmt.Errorf("could not read start of epoch %v: %w", epochID, err)
		}
		epochStartHeight = start.Height
	}

	// the last block of an epoch names the epoch after next, whose info must
	// exist as soon as the block is the head
	if header.Height+1 >= epochStartHeight+m.config.EpochLength {
		err = m.insertFollowingEpochInfo(r, w, blockHash, nextEpochID)
		if err != nil {
			return err
		}
	}

	if !header.LastFinalBlock.IsZero() {
		final, err := m.readBlockInfo(r, header.LastFinalBlock)
		if err == nil {
			info.LastFinalHeight = final.Height
		}
	}

	return operation.UpsertBlockInfo(w, blockHash, info)
}

func (m *Manager) isNextBlockEpochStart(r storage.Reader, info *flow.BlockInfo) (bool, error) {
	var start flow.EpochStart
	err := operation.RetrieveEpochStart(r, info.EpochID, &start)
	if err != nil {
		return false, fmt.Errorf("could not read start of epoch %v: %w", info.EpochID, err)
	}
	return info.Height+1 >= start.Height+m.config.EpochLength, nil
}

func (m *Manager) readBlockInfo(r storage.Reader, blockHash flow.Identifier) (*flow.BlockInfo, error) {
	var info flow.BlockInfo
	err := operation.RetrieveBlockInfo(r, blockHash, &info)
	if err != nil {
		return nil, fmt.Errorf("could not read block info of %v: %w", blockHash, err)
	}
	return &info, nil
}

func (m *Manager) readEpochInfo(r storage.Reader, epochID flow.EpochID) (*flow.EpochInfo, error) {
	var info flow.EpochInfo
	err := operation.RetrieveEpochInfo(r, epochID, &info)
	if err != nil {
		return nil, fmt.Errorf("could not read epoch info of %v: %w", epochID, err)
	}
	return &info, nil
}

// BlockInfo returns the epoch bookkeeping of a committed block.
func (m *Manager) BlockInfo(blockHash flow.Identifier) (*flow.BlockInfo, error) {
	if info, ok := m.blockInfos.Get(blockHash); ok {
		return info, nil
	}
	info, err := m.readBlockInfo(m.db.Reader(), blockHash)
	if err != nil {
		return nil, err
	}
	m.blockInfos.Add(blockHash, info)
	return info, nil
}

// EvictBlockInfo drops a cached block info. Garbage collection calls it once
// the deletion of the info committed.
func (m *Manager) EvictBlockInfo(blockHash flow.Identifier) {
	m.blockInfos.Remove(blockHash)
}

func (m *Manager) EpochInfo(epochID flow.EpochID) (*flow.EpochInfo, error) {
	if info, ok := m.epochInfos.Get(epochID); ok {
		return info, nil
	}
	info, err := m.readEpochInfo(m.db.Reader(), epochID)
	if err != nil {
		return nil, err
	}
	m.epochInfos.Add(epochID, info)
	return info, nil
}

func (m *Manager) ShardLayout(epochID flow.EpochID) (flow.ShardLayout, error) {
	info, err := m.EpochInfo(epochID)
	if err != nil {
		return flow.ShardLayout{}, err
	}
	return info.ShardLayout, nil
}

// ShardLayoutFromPrevBlock returns the layout of a block whose parent is given.
func (m *Manager) ShardLayoutFromPrevBlock(parentHash flow.Identifier) (flow.ShardLayout, error) {
	epochID, err := m.EpochIDFromPrevBlock(parentHash)
	if err != nil {
		return flow.ShardLayout{}, err
	}
	return m.ShardLayout(epochID)
}

func (m *Manager) EpochID(blockHash flow.Identifier) (flow.EpochID, error) {
	info, err := m.BlockInfo(blockHash)
	if err != nil {
		return flow.EpochID{}, err
	}
	return info.EpochID, nil
}

func (m *Manager) EpochIDFromPrevBlock(parentHash flow.Identifier) (flow.EpochID, error) {
	epochID, _, err := m.NextBlockEpochs(parentHash)
	return epochID, err
}

func (m *Manager) NextEpochIDFromPrevBlock(parentHash flow.Identifier) (flow.EpochID, error) {
	_, nextEpochID, err := m.NextBlockEpochs(parentHash)
	return nextEpochID, err
}

func (m *Manager) PrevEpochIDFromPrevBlock(parentHash flow.Identifier) (flow.EpochID, error) {
	epochID, err := m.EpochIDFromPrevBlock(parentHash)
	if err != nil {
		return flow.EpochID{}, err
	}
	info, err := m.EpochInfo(epochID)
	if err != nil {
		return flow.EpochID{}, err
	}
	return info.PrevEpochID, nil
}

func (m *Manager) IsNextBlockEpochStart(blockHash flow.Identifier) (bool, error) {
	info, err := m.BlockInfo(blockHash)
	if err != nil {
		return false, err
	}
	return m.isNextBlockEpochStart(m.db.Reader(), info)
}

func (m *Manager) IsLastBlockInFinishedEpoch(blockHash flow.Identifier) (bool, error) {
	info, err := m.BlockInfo(blockHash)
	if err != nil {
		return false, err
	}
	last, err := m.isNextBlockEpochStart(m.db.Reader(), info)
	if err != nil || !last {
		return false, err
	}
	var start flow.EpochStart
	err = operation.RetrieveEpochStart(m.db.Reader(), info.NextEpochID, &start)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not read start of epoch %v: %w", info.NextEpochID, err)
	}
	return true, nil
}

func (m *Manager) CaresAboutShardInEpoch(epochID flow.EpochID, account flow.AccountID, shardID flow.ShardID) (bool, error) {
	info, err := m.EpochInfo(epochID)
	if err != nil {
		return false, err
	}
	for _, assigned := range info.AssignedShards(account) {
		if assigned == shardID {
			return true, nil
		}
	}
	return false, nil
}

// GCStopHeight returns the first height of the oldest epoch to keep: the
// epoch NumEpochsToKeep-1 epochs before the head's. While the chain has fewer
// epochs, or the walk reaches data that is gone, the genesis height is
// returned and nothing is collected.
func (m *Manager) GCStopHeight(head flow.Identifier) uint64 {
	height, err := m.gcStopHeight(head)
	if err == nil {
		return height
	}
	m.log.Debug().Err(err).Str("head", head.String()).Msg("gc stop height falls back to genesis")
	var genesisHeight uint64
	err = operation.RetrieveHeight(m.db.Reader(), operation.KeyGenesisHeight, &genesisHeight)
	if err != nil {
		m.log.Error().Err(err).Msg("could not read genesis height")
	}
	return genesisHeight
}

func (m *Manager) gcStopHeight(head flow.Identifier) (uint64, error) {
	info, err := m.BlockInfo(head)
	if err != nil {
		return 0, err
	}
	epochFirstBlock := info.EpochFirstBlock
	for i := uint64(0); i < m.config.NumEpochsToKeep-1; i++ {
		first, err := m.BlockInfo(epochFirstBlock)
		if err != nil {
			return 0, err
		}
		if first.PrevHash.IsZero() {
			return 0, fmt.Errorf("fewer than %d epochs behind head", m.config.NumEpochsToKeep)
		}
		prev, err := m.BlockInfo(first.PrevHash)
		if err != nil {
			return 0, err
		}
		epochFirstBlock = prev.EpochFirstBlock
	}
	first, err := m.BlockInfo(epochFirstBlock)
	if err != nil {
		return 0, err
	}
	return first.Height, nil
}
