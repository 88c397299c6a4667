// Package crypto provides the hashing and BLS12-381 primitives the light
// client verifies with.
package crypto

// Domain-separated SHA3-256 hashing.
//
// Every structure the light client hashes is hashed under its own salt so a
// value of one kind can never be reinterpreted as a value of another kind.
// The salt of a domain is SHA3-256("ATOMICA::" || name) and the hash of data
// under that domain is SHA3-256(salt || data...).

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// hashDomainPrefix is prepended to every domain name before deriving its salt.
const hashDomainPrefix = "ATOMICA::"

// Hash domains used by the verification engine.
var (
	// AccumulatorInternalHasher hashes internal nodes of the transaction
	// accumulator.
	AccumulatorInternalHasher = NewHasher("TransactionAccumulator")

	// SparseMerkleInternalHasher hashes internal nodes of the state tree.
	SparseMerkleInternalHasher = NewHasher("SparseMerkleInternal")

	// SparseMerkleLeafHasher hashes (key, value hash) leaves of the state tree.
	SparseMerkleLeafHasher = NewHasher("SparseMerkleLeafNode")

	// LedgerInfoHasher produces the digest signed by the validator set.
	LedgerInfoHasher = NewHasher("LedgerInfo")

	// EpochStateHasher commits to a validator set and its quorum.
	EpochStateHasher = NewHasher("EpochState")
)

// Hasher computes SHA3-256 digests within a single hash domain.
type Hasher struct {
	name string
	salt common.Hash
}

// NewHasher creates a Hasher for the named domain.
func NewHasher(name string) *Hasher {
	return &Hasher{
		name: name,
		salt: SHA3([]byte(hashDomainPrefix + name)),
	}
}

// Name returns the domain name.
func (h *Hasher) Name() string { return h.name }

// Salt returns the 32-byte domain salt.
func (h *Hasher) Salt() common.Hash { return h.salt }

// Hash returns SHA3-256(salt || data...).
func (h *Hasher) Hash(data ...[]byte) common.Hash {
	d := sha3.New256()
	d.Write(h.salt[:])
	for _, b := range data {
		d.Write(b)
	}
	var out common.Hash
	d.Sum(out[:0])
	return out
}

// HashPair hashes the concatenation of two 32-byte children.
func (h *Hasher) HashPair(left, right common.Hash) common.Hash {
	return h.Hash(left[:], right[:])
}

// SHA3 calculates the plain SHA3-256 hash of the given data.
func SHA3(data ...[]byte) common.Hash {
	d := sha3.New256()
	for _, b := range data {
		d.Write(b)
	}
	var out common.Hash
	d.Sum(out[:0])
	return out
}
