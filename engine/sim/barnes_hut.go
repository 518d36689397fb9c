package sim

import (
	"math"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// DefaultTheta is the default Barnes-Hut opening angle.
const DefaultTheta = 0.5

// maxDepth stops subdividing when bodies are closer than float precision can separate.
const maxDepth = 64

type octNode struct {
	min, max common.Vec3
	// center is the center of mass of everything below the node.
	center common.Vec3
	mass   float64
	sizeSq float64

	internal bool
	children [8]int32 // 0 means no child; the root is never a child
}

// BarnesHut approximates distant groups of bodies by their center of mass using an octree.
//
// The tree is rebuilt from the committed state in Prepare; Accel only walks it.
type BarnesHut struct {
	Theta float64

	nodes []octNode
}

var _ Solver = &BarnesHut{}

// NewBarnesHut creates a Barnes-Hut solver.
//
// Parameters:
//   - theta: the opening angle; a node is treated as one body when size/distance <= theta.
//     Non-positive values fall back to DefaultTheta.
//
// Returns:
//   - *BarnesHut: the solver
func NewBarnesHut(theta float64) *BarnesHut {
	if theta <= 0 || math.IsNaN(theta) {
		theta = DefaultTheta
	}
	return &BarnesHut{Theta: theta}
}

func (b *BarnesHut) Prepare(read *State, mass []float64) {
	b.nodes = b.nodes[:0]
	if len(read.Pos) == 0 {
		return
	}

	lo, hi := read.Pos[0], read.Pos[0]
	for _, p := range read.Pos[1:] {
		for k := range 3 {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	// square the box so size means the same along every axis
	side := math.Max(hi[0]-lo[0], math.Max(hi[1]-lo[1], hi[2]-lo[2]))
	hi = lo.Add(common.Vec3{side, side, side})

	b.nodes = append(b.nodes, newOctNode(lo, hi))
	for i, p := range read.Pos {
		if mass[i] == 0 {
			continue
		}
		b.insert(p, mass[i])
	}
}

func newOctNode(lo, hi common.Vec3) octNode {
	size := hi[0] - lo[0]
	return octNode{min: lo, max: hi, sizeSq: size * size}
}

func (b *BarnesHut) insert(p common.Vec3, m float64) {
	idx := int32(0)
	for depth := 0; ; depth++ {
		n := &b.nodes[idx]
		if n.mass == 0 && !n.internal {
			n.center, n.mass = p, m
			return
		}
		if !n.internal {
			if n.center == p || depth >= maxDepth {
				n.center = n.center.Scale(n.mass).Add(p.Scale(m)).Scale(1 / (n.mass + m))
				n.mass += m
				return
			}
			// push the resident body one level down before descending with the new one
			oldCenter, oldMass := n.center, n.mass
			n.internal = true
			child := b.child(idx, oldCenter)
			b.nodes[child].center, b.nodes[child].mass = oldCenter, oldMass
			n = &b.nodes[idx]
		}

		total := n.mass + m
		n.center = n.center.Scale(n.mass).Add(p.Scale(m)).Scale(1 / total)
		n.mass = total
		idx = b.child(idx, p)
	}
}

// child returns the child of node idx whose octant contains p, creating it if needed.
func (b *BarnesHut) child(idx int32, p common.Vec3) int32 {
	n := &b.nodes[idx]
	mid := n.min.Add(n.max).Scale(0.5)
	oct := 0
	for k := range 3 {
		if p[k] < mid[k] {
			oct |= 1 << k
		}
	}
	if c := n.children[oct]; c != 0 {
		return c
	}

	lo, hi := mid, n.max
	for k := range 3 {
		if oct&(1<<k) != 0 {
			lo[k], hi[k] = n.min[k], mid[k]
		}
	}
	c := int32(len(b.nodes))
	b.nodes[idx].children[oct] = c
	b.nodes = append(b.nodes, newOctNode(lo, hi))
	return c
}

func (b *BarnesHut) Accel(i int, read *State, _ []float64) common.Vec3 {
	var acc common.Vec3
	if len(b.nodes) == 0 || b.nodes[0].mass == 0 {
		return acc
	}

	p := read.Pos[i]
	theta2 := b.Theta * b.Theta
	var buf [8 * maxDepth]int32
	stack := append(buf[:0], 0)
	for len(stack) > 0 {
		n := &b.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		rel := n.center.Sub(p)
		d2 := rel.Norm2()
		if n.internal && theta2*d2 < n.sizeSq {
			for _, c := range n.children {
				if c != 0 {
					stack = append(stack, c)
				}
			}
			continue
		}
		if d2 == 0 {
			continue
		}
		acc = acc.Add(rel.Scale(n.mass * G / (d2*math.Sqrt(d2) + CollisionEpsilon)))
	}
	return acc
}

// Nodes returns the number of octree nodes built by the last Prepare.
func (b *BarnesHut) Nodes() int {
	return len(b.nodes)
}
