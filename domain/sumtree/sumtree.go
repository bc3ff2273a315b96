// Package sumtree implements the weighted selection structure used to
// pick draw winners: a map from account id to non-negative integer
// weight supporting O(log n) weight updates and O(log n) weighted
// random selection.
//
// Nodes live in a flat arena and link by index, not pointer. The tree
// is a treap ordered by account id with priorities derived from a
// stable hash of the account id, so the shape, and therefore every
// Draw result, depends only on the (account, weight) set and never on
// the order entries were inserted.
package sumtree

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"
)

// ErrNegativeWeight is returned by Set for weights below zero.
var ErrNegativeWeight = errors.New("negative weight")

// NoAccount is the account id returned by Draw when no participant is
// eligible. Account id 0 is reserved and may not hold weight.
const NoAccount = int64(0)

const nilIdx = int32(-1)

// Stake is one participant's entry as reported by Entries.
type Stake struct {
	Account int64
	Weight  int64
}

type node struct {
	account  int64
	priority uint64
	weight   int64
	subtotal int64 // weight plus both children's subtotals
	left     int32
	right    int32
}

// Tree is a weighted selection tree. The zero value is not usable;
// construct with New. Not safe for concurrent use.
type Tree struct {
	nodes        []node
	slots        map[int64]int32
	root         int32
	participants int // entries with weight > 0
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{
		slots: make(map[int64]int32),
		root:  nilIdx,
	}
}

// priorityFor derives a stable heap priority from the account id.
// Hashing decorrelates priorities from id ordering so the expected
// depth stays logarithmic for adversarially chosen account ids.
func priorityFor(account int64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(account))
	sum := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(sum[:8])
}

// Set replaces the account's weight. A weight of zero logically removes
// the participant; the node is retained so repeated deposit/withdraw
// cycles do not churn the arena.
func (t *Tree) Set(account, weight int64) error {
	if weight < 0 {
		return ErrNegativeWeight
	}
	if account == NoAccount {
		return errors.New("account id 0 is reserved")
	}

	if idx, ok := t.slots[account]; ok {
		prev := t.nodes[idx].weight
		if prev == weight {
			return nil
		}
		if prev == 0 && weight > 0 {
			t.participants++
		} else if prev > 0 && weight == 0 {
			t.participants--
		}
		t.update(t.root, account, weight)
		return nil
	}

	if weight > 0 {
		t.participants++
	}
	t.root = t.insert(t.root, account, weight)
	return nil
}

// update walks the existing path to account, replaces its weight and
// refreshes subtotals on unwind. The account must be present.
func (t *Tree) update(at int32, account, weight int64) {
	n := &t.nodes[at]
	switch {
	case account < n.account:
		t.update(n.left, account, weight)
	case account > n.account:
		t.update(n.right, account, weight)
	default:
		n.weight = weight
	}
	t.refresh(at)
}

// insert adds a new node below at, returning the new subtree root.
func (t *Tree) insert(at int32, account, weight int64) int32 {
	if at == nilIdx {
		idx := int32(len(t.nodes))
		t.nodes = append(t.nodes, node{
			account:  account,
			priority: priorityFor(account),
			weight:   weight,
			subtotal: weight,
			left:     nilIdx,
			right:    nilIdx,
		})
		t.slots[account] = idx
		return idx
	}

	if account < t.nodes[at].account {
		t.nodes[at].left = t.insert(t.nodes[at].left, account, weight)
		if t.nodes[t.nodes[at].left].priority > t.nodes[at].priority {
			at = t.rotateRight(at)
		}
	} else {
		t.nodes[at].right = t.insert(t.nodes[at].right, account, weight)
		if t.nodes[t.nodes[at].right].priority > t.nodes[at].priority {
			at = t.rotateLeft(at)
		}
	}
	t.refresh(at)
	return at
}

func (t *Tree) rotateRight(at int32) int32 {
	l := t.nodes[at].left
	t.nodes[at].left = t.nodes[l].right
	t.nodes[l].right = at
	t.refresh(at)
	t.refresh(l)
	return l
}

func (t *Tree) rotateLeft(at int32) int32 {
	r := t.nodes[at].right
	t.nodes[at].right = t.nodes[r].left
	t.nodes[r].left = at
	t.refresh(at)
	t.refresh(r)
	return r
}

func (t *Tree) refresh(at int32) {
	n := &t.nodes[at]
	n.subtotal = n.weight
	if n.left != nilIdx {
		n.subtotal += t.nodes[n.left].subtotal
	}
	if n.right != nilIdx {
		n.subtotal += t.nodes[n.right].subtotal
	}
}

// WeightOf returns the account's current weight, zero if absent.
func (t *Tree) WeightOf(account int64) int64 {
	idx, ok := t.slots[account]
	if !ok {
		return 0
	}
	return t.nodes[idx].weight
}

// TotalWeight returns the sum of all weights.
func (t *Tree) TotalWeight() int64 {
	if t.root == nilIdx {
		return 0
	}
	return t.nodes[t.root].subtotal
}

// Len returns the number of participants with positive weight.
func (t *Tree) Len() int {
	return t.participants
}

// Draw maps entropy to a participant with probability proportional to
// weight. The entropy is reduced modulo the total weight and the tree
// is descended comparing the running rank against left-subtree sums.
// Returns NoAccount when no participant holds positive weight.
func (t *Tree) Draw(entropy [32]byte) int64 {
	total := t.TotalWeight()
	if total == 0 {
		return NoAccount
	}

	rank := new(big.Int).Mod(
		new(big.Int).SetBytes(entropy[:]),
		big.NewInt(total),
	).Int64()

	at := t.root
	for at != nilIdx {
		n := t.nodes[at]
		if n.left != nilIdx {
			leftSum := t.nodes[n.left].subtotal
			if rank < leftSum {
				at = n.left
				continue
			}
			rank -= leftSum
		}
		if rank < n.weight {
			return n.account
		}
		rank -= n.weight
		at = n.right
	}

	// Unreachable when subtotals are consistent.
	return NoAccount
}

// Entries returns all positive-weight stakes in ascending account
// order. Used by the draw promotion step to bulk-merge trees.
func (t *Tree) Entries() []Stake {
	out := make([]Stake, 0, t.participants)
	var walk func(at int32)
	walk = func(at int32) {
		if at == nilIdx {
			return
		}
		n := t.nodes[at]
		walk(n.left)
		if n.weight > 0 {
			out = append(out, Stake{Account: n.account, Weight: n.weight})
		}
		walk(n.right)
	}
	walk(t.root)
	return out
}
