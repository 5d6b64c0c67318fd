package operation

import (
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
)

func UpsertEpochInfo(w storage.Writer, info *flow.EpochInfo) error {
	return UpsertByKey(w, MakePrefix(ColEpochInfo, info.EpochID), info)
}

func RetrieveEpochInfo(r storage.Reader, epochID flow.EpochID, info *flow.EpochInfo) error {
	return RetrieveByKey(r, MakePrefix(ColEpochInfo, epochID), info)
}

func UpsertEpochStart(w storage.Writer, epochID flow.EpochID, start *flow.EpochStart) error {
	return UpsertByKey(w, MakePrefix(ColEpochStart, epochID), start)
}

func RetrieveEpochStart(r storage.Reader, epochID flow.EpochID, start *flow.EpochStart) error {
	return RetrieveByKey(r, MakePrefix(ColEpochStart, epochID), start)
}
