// Package smt verifies inclusion and non-inclusion proofs against the root
// of a 256-level sparse Merkle tree keyed by 32-byte hashes.
//
// Subtrees holding a single leaf collapse into that leaf and empty subtrees
// hash to the all-zero placeholder, so a proof only carries siblings down to
// the depth where the key's path ends. Siblings are ordered from the leaf
// level upwards; the last sibling pairs with the most significant key bit.
package smt

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// MaxDepth is the height of the tree.
const MaxDepth = 256

// PlaceholderHash is the hash of an empty subtree.
var PlaceholderHash = common.Hash{}

var (
	ErrMalformedProof = errors.New("smt: malformed proof")
	ErrRootMismatch   = errors.New("smt: root mismatch")
)

// Leaf is a (key, value hash) pair stored in the tree.
type Leaf struct {
	Key       common.Hash `json:"key"`
	ValueHash common.Hash `json:"valueHash"`
}

// Hash returns the leaf node hash.
func (l *Leaf) Hash() common.Hash {
	return crypto.SparseMerkleLeafHasher.HashPair(l.Key, l.ValueHash)
}

// Proof is a sparse Merkle proof. Leaf is the leaf found at the end of the
// key's path, or nil when the path ends in an empty subtree.
type Proof struct {
	Siblings []common.Hash `json:"siblings"`
	Leaf     *Leaf         `json:"leaf,omitempty" rlp:"nil"`
}

// VerifyInclusion checks that key maps to valueHash under root.
func (p *Proof) VerifyInclusion(root, key, valueHash common.Hash) error {
	if p == nil {
		return fmt.Errorf("%w: nil proof", ErrMalformedProof)
	}
	if p.Leaf == nil {
		return fmt.Errorf("%w: inclusion proof without leaf", ErrMalformedProof)
	}
	if p.Leaf.Key != key {
		return fmt.Errorf("%w: leaf key %x does not match %x", ErrMalformedProof, p.Leaf.Key, key)
	}
	if p.Leaf.ValueHash != valueHash {
		return fmt.Errorf("%w: leaf value hash mismatch", ErrMalformedProof)
	}
	return p.verify(root, key, p.Leaf.Hash())
}

// VerifyNonInclusion checks that key is absent under root. The proof either
// ends in an empty subtree, or in a leaf for another key sharing at least
// as many leading bits with key as the proof has siblings.
func (p *Proof) VerifyNonInclusion(root, key common.Hash) error {
	if p == nil {
		return fmt.Errorf("%w: nil proof", ErrMalformedProof)
	}
	if p.Leaf == nil {
		return p.verify(root, key, PlaceholderHash)
	}
	if p.Leaf.Key == key {
		return fmt.Errorf("%w: non-inclusion proof holds the queried key", ErrMalformedProof)
	}
	if CommonPrefixBits(key, p.Leaf.Key) < len(p.Siblings) {
		return fmt.Errorf("%w: leaf %x is not on the path of %x", ErrMalformedProof, p.Leaf.Key, key)
	}
	return p.verify(root, key, p.Leaf.Hash())
}

func (p *Proof) verify(root, key, current common.Hash) error {
	n := len(p.Siblings)
	if n > MaxDepth {
		return fmt.Errorf("%w: %d siblings exceeds depth %d", ErrMalformedProof, n, MaxDepth)
	}
	for i, sibling := range p.Siblings {
		if bit(key, n-1-i) == 1 {
			current = crypto.SparseMerkleInternalHasher.HashPair(sibling, current)
		} else {
			current = crypto.SparseMerkleInternalHasher.HashPair(current, sibling)
		}
	}
	if current != root {
		return ErrRootMismatch
	}
	return nil
}

// Verify checks a proof for key. A non-nil valueHash asks for inclusion of
// that value, nil asks for non-inclusion of key.
func Verify(root, key common.Hash, valueHash *common.Hash, proof *Proof) bool {
	if valueHash == nil {
		return proof.VerifyNonInclusion(root, key) == nil
	}
	return proof.VerifyInclusion(root, key, *valueHash) == nil
}

// CommonPrefixBits returns the number of leading bits a and b share.
func CommonPrefixBits(a, b common.Hash) int {
	for i := 0; i < len(a); i++ {
		if x := a[i] ^ b[i]; x != 0 {
			return i*8 + bits.LeadingZeros8(x)
		}
	}
	return MaxDepth
}

// bit returns the bit of h at pos, MSB first: pos 0 is the top bit of h[0].
func bit(h common.Hash, pos int) byte {
	return (h[pos/8] >> uint(7-pos%8)) & 1
}
