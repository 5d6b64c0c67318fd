package flow

import (
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
	"golang.org/x/crypto/sha3"
)

// Identifier represents a 32-byte content hash. Blocks, chunks, transactions,
// receipts and trie nodes are all addressed by an Identifier.
type Identifier [32]byte

// IdentifierLen is the length of an Identifier in bytes.
const IdentifierLen = 32

// ZeroID is the lowest value in the 32-byte ID space. It is used as the
// previous hash of the genesis block.
var ZeroID = Identifier{}

// HexStringToIdentifier converts a hex string to an identifier.
func HexStringToIdentifier(hexString string) (Identifier, error) {
	var identifier Identifier
	i, err := hex.Decode(identifier[:], []byte(hexString))
	if err != nil {
		return identifier, err
	}
	if i != IdentifierLen {
		return identifier, fmt.Errorf("malformed input, expected %d bytes (%d hex chars), decoded %d", IdentifierLen, 2*IdentifierLen, i)
	}
	return identifier, nil
}

// ByteSliceToId converts a byte slice to an Identifier.
func ByteSliceToId(b []byte) (Identifier, error) {
	var id Identifier
	if len(b) != IdentifierLen {
		return id, fmt.Errorf("illegal length for a flow identifier %x: got: %d, expected: %d", b, len(b), IdentifierLen)
	}
	copy(id[:], b)
	return id, nil
}

// String returns the hex string representation of the identifier.
func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

// TerminalString returns a short, loggable form of the identifier.
func (id Identifier) TerminalString() string {
	return hex.EncodeToString(id[:4])
}

func (id Identifier) IsZero() bool {
	return id == ZeroID
}

// MakeID creates an ID from the hash of the encoded entity.
func MakeID(entity interface{}) Identifier {
	data, err := msgpack.Marshal(entity)
	if err != nil {
		panic(fmt.Sprintf("could not encode entity %T for hashing: %v", entity, err))
	}
	return HashBytes(data)
}

// HashBytes hashes raw bytes into an Identifier using SHA3-256.
func HashBytes(data []byte) Identifier {
	return Identifier(sha3.Sum256(data))
}

// IdentifierList is a list of identifiers.
type IdentifierList []Identifier

// Contains returns whether the list contains the given identifier.
func (il IdentifierList) Contains(target Identifier) bool {
	for _, id := range il {
		if id == target {
			return true
		}
	}
	return false
}

// Remove returns a copy of the list without the given identifier.
func (il IdentifierList) Remove(target Identifier) IdentifierList {
	out := make(IdentifierList, 0, len(il))
	for _, id := range il {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
