package repository

import (
	"math"
	"math/rand/v2"
)

// ranking orders job IDs by probability desc, then job ID asc, using a treap so
// inserts and top-N reads stay O(log n + n) as results stream in.

// scoreScale controls fixed-point scaling so equal probabilities compare exactly.
const scoreScale = 1_000_000_000_000

// failedScore ranks jobs without a probability after every real result.
const failedScore = -1.0

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return scoreFP(failedScore * scoreScale)
	}
	return scoreFP(math.Round(x * scoreScale))
}

type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aScore, aID) ranks before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: rand.Uint64(), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collectTop appends up to limit IDs in rank order.
func collectTop(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTop(n.right, limit, out)
	}
}

// ranking is not safe for concurrent use; callers hold the batch lock.
type ranking struct {
	root   *node
	scores map[string]scoreFP
}

func newRanking() *ranking {
	return &ranking{scores: make(map[string]scoreFP)}
}

// upsert places id at score, replacing any previous position.
func (r *ranking) upsert(id string, score float64) {
	fp := toFixedPoint(score)
	if old, ok := r.scores[id]; ok {
		r.root = deleteNode(r.root, id, old)
	}
	r.scores[id] = fp
	r.root = insert(r.root, id, fp)
}

func (r *ranking) len() int { return nsize(r.root) }

func (r *ranking) top(limit int) []string {
	if limit > r.len() {
		limit = r.len()
	}
	out := make([]string, 0, limit)
	collectTop(r.root, limit, &out)
	return out
}
