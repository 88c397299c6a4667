package accumulator

import (
	"errors"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// ErrLeafNotFound is returned by Accumulator.Proof for an index past the end.
var ErrLeafNotFound = errors.New("accumulator: leaf index out of range")

// Accumulator is an in-memory append-only accumulator. It recomputes the
// tree on each Root or Proof call and is intended for fixtures and tooling,
// not for large ledgers.
type Accumulator struct {
	leaves []common.Hash
}

// New returns an accumulator holding the given leaves in order.
func New(leaves ...common.Hash) *Accumulator {
	a := &Accumulator{}
	a.Append(leaves...)
	return a
}

// Append adds leaves and returns the index of the last one appended.
func (a *Accumulator) Append(leaves ...common.Hash) uint64 {
	a.leaves = append(a.leaves, leaves...)
	return uint64(len(a.leaves)) - 1
}

// Len returns the number of leaves.
func (a *Accumulator) Len() int { return len(a.leaves) }

// Leaf returns the leaf hash at index.
func (a *Accumulator) Leaf(index uint64) (common.Hash, bool) {
	if index >= uint64(len(a.leaves)) {
		return common.Hash{}, false
	}
	return a.leaves[index], true
}

// Root returns the accumulator root. An empty accumulator has the
// placeholder root and a single leaf is its own root.
func (a *Accumulator) Root() common.Hash {
	levels := a.levels()
	return levels[len(levels)-1][0]
}

// Proof returns the inclusion proof for the leaf at index.
func (a *Accumulator) Proof(index uint64) (*Proof, error) {
	if index >= uint64(len(a.leaves)) {
		return nil, ErrLeafNotFound
	}
	levels := a.levels()
	siblings := make([]common.Hash, 0, len(levels)-1)
	pos := index
	for _, level := range levels[:len(levels)-1] {
		siblings = append(siblings, level[pos^1])
		pos /= 2
	}
	return &Proof{LeafIndex: index, Siblings: siblings}, nil
}

// levels returns every tree level from the padded leaves up to the root.
func (a *Accumulator) levels() [][]common.Hash {
	if len(a.leaves) == 0 {
		return [][]common.Hash{{PlaceholderHash}}
	}
	width := 1
	if len(a.leaves) > 1 {
		width = 1 << bits.Len(uint(len(a.leaves)-1))
	}
	level := make([]common.Hash, width)
	copy(level, a.leaves)
	for i := len(a.leaves); i < width; i++ {
		level[i] = PlaceholderHash
	}
	out := [][]common.Hash{level}
	for len(level) > 1 {
		next := make([]common.Hash, len(level)/2)
		for i := range next {
			next[i] = parent(level[2*i], level[2*i+1])
		}
		out = append(out, next)
		level = next
	}
	return out
}

func parent(left, right common.Hash) common.Hash {
	if left == PlaceholderHash && right == PlaceholderHash {
		return PlaceholderHash
	}
	return crypto.AccumulatorInternalHasher.HashPair(left, right)
}
