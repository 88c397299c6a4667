package smt

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/bomba-atomica/atomica-sub003/crypto"
)

// node is either a leaf or a branch. A branch has at least two leaves below
// it; a subtree holding one leaf is stored as that leaf.
type node struct {
	left  *node
	right *node

	isLeaf    bool
	key       common.Hash
	valueHash common.Hash

	hash  common.Hash
	dirty bool
}

// Tree is an in-memory sparse Merkle tree. Paths walk key bits MSB first
// (0 = left, 1 = right). It is used to build roots and proofs for fixtures
// and tooling; it is not safe for concurrent use.
type Tree struct {
	root *node
	size int
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Len returns the number of leaves.
func (t *Tree) Len() int { return t.size }

// Get returns the value hash stored under key.
func (t *Tree) Get(key common.Hash) (common.Hash, bool) {
	n := t.root
	for depth := 0; n != nil; depth++ {
		if n.isLeaf {
			if n.key == key {
				return n.valueHash, true
			}
			return common.Hash{}, false
		}
		n = n.child(bit(key, depth))
	}
	return common.Hash{}, false
}

// Put stores valueHash under key, replacing any previous value.
func (t *Tree) Put(key, valueHash common.Hash) {
	if _, ok := t.Get(key); !ok {
		t.size++
	}
	t.root = insert(t.root, key, valueHash, 0)
}

// PutValue stores the SHA3-256 hash of value under key.
func (t *Tree) PutValue(key common.Hash, value []byte) {
	t.Put(key, crypto.SHA3(value))
}

func insert(n *node, key, valueHash common.Hash, depth int) *node {
	if n == nil {
		return newLeaf(key, valueHash)
	}
	if n.isLeaf {
		if n.key == key {
			n.valueHash = valueHash
			n.dirty = true
			return n
		}
		return split(n, newLeaf(key, valueHash), depth)
	}
	n.dirty = true
	if bit(key, depth) == 0 {
		n.left = insert(n.left, key, valueHash, depth+1)
	} else {
		n.right = insert(n.right, key, valueHash, depth+1)
	}
	return n
}

// split pushes two leaves down until their keys diverge.
func split(existing, leaf *node, depth int) *node {
	eb, nb := bit(existing.key, depth), bit(leaf.key, depth)
	branch := &node{dirty: true}
	switch {
	case eb == nb && eb == 0:
		branch.left = split(existing, leaf, depth+1)
	case eb == nb:
		branch.right = split(existing, leaf, depth+1)
	case eb == 0:
		branch.left, branch.right = existing, leaf
	default:
		branch.left, branch.right = leaf, existing
	}
	return branch
}

// Delete removes key. It is a no-op when key is absent.
func (t *Tree) Delete(key common.Hash) {
	if _, ok := t.Get(key); !ok {
		return
	}
	t.size--
	t.root = remove(t.root, key, 0)
}

func remove(n *node, key common.Hash, depth int) *node {
	if n == nil {
		return nil
	}
	if n.isLeaf {
		if n.key == key {
			return nil
		}
		return n
	}
	if bit(key, depth) == 0 {
		n.left = remove(n.left, key, depth+1)
	} else {
		n.right = remove(n.right, key, depth+1)
	}
	n.dirty = true

	// Collapse a branch left with a single leaf below it.
	switch {
	case n.left == nil && n.right == nil:
		return nil
	case n.left == nil && n.right.isLeaf:
		return n.right
	case n.right == nil && n.left.isLeaf:
		return n.left
	}
	return n
}

// Root returns the tree root. An empty tree has the placeholder root.
func (t *Tree) Root() common.Hash {
	return t.root.hashNode()
}

// Prove returns a proof for key. The proof shows inclusion when key is
// present and non-inclusion otherwise.
func (t *Tree) Prove(key common.Hash) *Proof {
	t.Root()

	var path []common.Hash
	n := t.root
	for depth := 0; n != nil && !n.isLeaf; depth++ {
		if bit(key, depth) == 0 {
			path = append(path, n.right.hashNode())
			n = n.left
		} else {
			path = append(path, n.left.hashNode())
			n = n.right
		}
	}
	proof := &Proof{Siblings: make([]common.Hash, len(path))}
	for i, h := range path {
		proof.Siblings[len(path)-1-i] = h
	}
	if n != nil {
		proof.Leaf = &Leaf{Key: n.key, ValueHash: n.valueHash}
	}
	return proof
}

func newLeaf(key, valueHash common.Hash) *node {
	return &node{isLeaf: true, key: key, valueHash: valueHash, dirty: true}
}

func (n *node) child(b byte) *node {
	if b == 0 {
		return n.left
	}
	return n.right
}

func (n *node) hashNode() common.Hash {
	if n == nil {
		return PlaceholderHash
	}
	if !n.dirty {
		return n.hash
	}
	if n.isLeaf {
		n.hash = crypto.SparseMerkleLeafHasher.HashPair(n.key, n.valueHash)
	} else {
		n.hash = crypto.SparseMerkleInternalHasher.HashPair(n.left.hashNode(), n.right.hashNode())
	}
	n.dirty = false
	return n.hash
}
