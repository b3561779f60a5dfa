// Package merkle provides an implementation of a merkle tree for validation
// support for the blockchain.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
)

// ErrNotFound is returned when a proof is requested for a value that is not
// part of the tree.
var ErrNotFound = errors.New("unable to find data in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint. Levels are stored bottom up, the
// first level holds the leaf hashes and the last level holds the root.
type Tree[T Hashable[T]] struct {
	MerkleRoot   []byte
	values       []T
	levels       [][][]byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface. An empty set of
// values produces the hash of no data as the root.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the levels of the tree from the specified data. If the
// tree has been generated previously, the tree is re-generated from scratch.
func (t *Tree[T]) Generate(values []T) error {
	t.values = make([]T, len(values))
	copy(t.values, values)

	if len(values) == 0 {
		t.levels = nil
		t.MerkleRoot = t.hashStrategy().Sum(nil)
		return nil
	}

	leafs := make([][]byte, len(values))
	for i, value := range values {
		h, err := value.Hash()
		if err != nil {
			return err
		}
		leafs[i] = h
	}

	levels := [][][]byte{leafs}
	for level := leafs; len(level) > 1; {
		next, err := t.parents(level)
		if err != nil {
			return err
		}
		levels = append(levels, next)
		level = next
	}

	t.levels = levels
	t.MerkleRoot = levels[len(levels)-1][0]

	return nil
}

// Values returns a copy of the values stored in the tree in insertion order.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.values))
	copy(values, t.values)
	return values
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.MerkleRoot)
}

// Verify recomputes the root from the stored values and compares it against
// the recorded merkle root.
func (t *Tree[T]) Verify() error {
	cpy := Tree[T]{hashStrategy: t.hashStrategy}
	if err := cpy.Generate(t.values); err != nil {
		return err
	}

	if !bytes.Equal(cpy.MerkleRoot, t.MerkleRoot) {
		return errors.New("root hash invalid")
	}

	return nil
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash is concatenated first, an order of 1 means it is concatenated second.
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	idx := -1
	for i, value := range t.values {
		if value.Equals(data) {
			idx = i
			break
		}
	}

	if idx == -1 {
		return nil, nil, ErrNotFound
	}

	var proof [][]byte
	var order []int64
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling >= len(level) {
			sibling = idx
		}

		proof = append(proof, level[sibling])
		if idx%2 == 0 {
			order = append(order, 1)
		} else {
			order = append(order, 0)
		}

		idx /= 2
	}

	return proof, order, nil
}

// VerifyProof validates the value hash can be walked up to the specified root
// using the proof produced by Proof.
func VerifyProof(root []byte, valueHash []byte, proof [][]byte, order []int64, hashStrategy func() hash.Hash) (bool, error) {
	if len(proof) != len(order) {
		return false, errors.New("proof and order length mismatch")
	}

	current := valueHash
	for i, p := range proof {
		h := hashStrategy()

		var err error
		switch order[i] {
		case 0:
			_, err = h.Write(append(append([]byte{}, p...), current...))
		default:
			_, err = h.Write(append(append([]byte{}, current...), p...))
		}
		if err != nil {
			return false, err
		}

		current = h.Sum(nil)
	}

	return bytes.Equal(current, root), nil
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the merkle tree. Use the Values function to
// return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// =============================================================================

// parents hashes each pair of nodes into the next level up. An odd node at
// the end of a level is paired with itself.
func (t *Tree[T]) parents(level [][]byte) ([][]byte, error) {
	next := make([][]byte, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		left, right := level[i], level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}

		h := t.hashStrategy()
		if _, err := h.Write(append(append([]byte{}, left...), right...)); err != nil {
			return nil, err
		}

		next = append(next, h.Sum(nil))
	}

	return next, nil
}
