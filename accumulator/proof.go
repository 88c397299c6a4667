// Package accumulator verifies inclusion proofs against the root of an
// append-only Merkle accumulator.
//
// Leaves sit at the bottom of a complete binary tree whose width is the
// next power of two of the leaf count. Missing leaves and subtrees made only
// of missing leaves are the placeholder hash. Internal nodes are
// SHA3-256(salt || left || right) under the TransactionAccumulator domain.
package accumulator

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// MaxProofDepth is the deepest accumulator a proof may describe.
const MaxProofDepth = 63

// PlaceholderHash stands in for absent leaves and empty subtrees.
var PlaceholderHash = placeholder()

var (
	ErrMalformedProof = errors.New("accumulator: malformed proof")
	ErrRootMismatch   = errors.New("accumulator: root mismatch")
)

func placeholder() common.Hash {
	var h common.Hash
	copy(h[:], "ACCUMULATOR_PLACEHOLDER_HASH")
	return h
}

// Proof is a leaf position plus the sibling hashes on the path to the root,
// ordered from the leaf level upwards.
type Proof struct {
	LeafIndex uint64        `json:"leafIndex"`
	Siblings  []common.Hash `json:"siblings"`
}

// Verify checks that leaf is at p.LeafIndex in the accumulator with the
// given root.
func (p *Proof) Verify(root, leaf common.Hash) error {
	if p == nil {
		return fmt.Errorf("%w: nil proof", ErrMalformedProof)
	}
	if len(p.Siblings) > MaxProofDepth {
		return fmt.Errorf("%w: %d siblings exceeds depth %d", ErrMalformedProof, len(p.Siblings), MaxProofDepth)
	}
	current, index := leaf, p.LeafIndex
	for _, sibling := range p.Siblings {
		if index%2 == 0 {
			current = crypto.AccumulatorInternalHasher.HashPair(current, sibling)
		} else {
			current = crypto.AccumulatorInternalHasher.HashPair(sibling, current)
		}
		index /= 2
	}
	if index != 0 {
		return fmt.Errorf("%w: leaf index %d out of range for %d siblings", ErrMalformedProof, p.LeafIndex, len(p.Siblings))
	}
	if current != root {
		return ErrRootMismatch
	}
	return nil
}

// Verify reports whether leaf sits at index under root given the siblings.
// It never panics on malformed input.
func Verify(root, leaf common.Hash, index uint64, siblings []common.Hash) bool {
	p := Proof{LeafIndex: index, Siblings: siblings}
	return p.Verify(root, leaf) == nil
}
