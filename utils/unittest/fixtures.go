package unittest

import (
	crand "crypto/rand"
	"math/rand"

	"github.com/shardchain/node/model/flow"
)

func IdentifierFixture() flow.Identifier {
	var id flow.Identifier
	_, _ = crand.Read(id[:])
	return id
}

func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = crand.Read(b)
	return b
}

func TransactionFixture() flow.Transaction {
	return flow.Transaction{
		SignerID: flow.AccountID("alice"),
		Nonce:    rand.Uint64(),
		Payload:  RandomBytes(16),
	}
}

func ReceiptFixture() flow.Receipt {
	return flow.Receipt{
		ReceiptID:     IdentifierFixture(),
		PredecessorID: flow.AccountID("alice"),
		ReceiverID:    flow.AccountID("bob"),
		Payload:       RandomBytes(16),
	}
}

// TrieNodeFixture returns a trie node value and its content hash.
func TrieNodeFixture() (flow.Identifier, []byte) {
	value := RandomBytes(32)
	return flow.HashBytes(value), value
}

// TrieChangesFixture returns changes inserting n fresh nodes with refcount 1
// and deleting nothing.
func TrieChangesFixture(n int) *flow.TrieChanges {
	changes := &flow.TrieChanges{
		OldRoot: IdentifierFixture(),
		NewRoot: IdentifierFixture(),
	}
	for i := 0; i < n; i++ {
		hash, value := TrieNodeFixture()
		changes.Insertions = append(changes.Insertions, flow.TrieRefcountChange{Hash: hash, Value: value, RC: 1})
	}
	return changes
}

func StateTransitionDataFixture() *flow.StateTransitionData {
	return &flow.StateTransitionData{
		BaseState:    [][]byte{RandomBytes(8)},
		ReceiptsHash: IdentifierFixture(),
	}
}
