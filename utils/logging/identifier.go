package logging

import (
	"encoding/hex"

	"github.com/shardchain/node/model/flow"
)

// IDs renders identifiers for a zerolog string array field.
func IDs(ids []flow.Identifier) []string {
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, hex.EncodeToString(id[:]))
	}
	return ss
}
