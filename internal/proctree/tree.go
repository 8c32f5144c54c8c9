// Package proctree links a flat process list into a parent/child forest.
//
// The forest is an arena: nodes live in one slice and refer to their
// children by index. It is built per call and thrown away afterwards.
package proctree

import (
	"sort"

	"github.com/Dicklesworthstone/aerotop/internal/model"
)

// Branch glyphs used in flattened prefixes.
const (
	Tee    = "├─ "
	Corner = "└─ "
	Pipe   = "│  "
	Blank  = "   "
)

type node struct {
	proc     model.Process
	children []int
}

// Forest is a pid-indexed arena of process nodes.
type Forest struct {
	nodes []node
	roots []int
}

// Entry is one row of a depth-first flatten.
type Entry struct {
	Process model.Process
	Depth   int
	Prefix  string
}

// Build links every process to its parent. A process whose parent pid is not
// in the list, or equals its own pid, becomes a root. Duplicate pids keep the
// first occurrence. Children and roots are ordered by CPU descending; equal
// CPU keeps list order.
//
// Indirect cycles (a -> b -> a) are not detected; their members are nobody's
// descendant and so never show up in Roots or Flatten.
func Build(list []model.Process) *Forest {
	f := &Forest{nodes: make([]node, 0, len(list))}
	index := make(map[int32]int, len(list))
	for _, p := range list {
		if _, dup := index[p.PID]; dup {
			continue
		}
		index[p.PID] = len(f.nodes)
		f.nodes = append(f.nodes, node{proc: p})
	}

	for i := range f.nodes {
		parent, ok := index[f.nodes[i].proc.ParentPID]
		if !ok || parent == i {
			f.roots = append(f.roots, i)
			continue
		}
		f.nodes[parent].children = append(f.nodes[parent].children, i)
	}

	f.sortByCPU(f.roots)
	for i := range f.nodes {
		f.sortByCPU(f.nodes[i].children)
	}
	return f
}

func (f *Forest) sortByCPU(idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return f.nodes[idx[a]].proc.CPU > f.nodes[idx[b]].proc.CPU
	})
}

// Len reports the number of distinct processes in the arena.
func (f *Forest) Len() int { return len(f.nodes) }

// Roots materializes the forest as nested nodes.
func (f *Forest) Roots() []model.ProcessTreeNode {
	return f.materialize(f.roots)
}

func (f *Forest) materialize(idx []int) []model.ProcessTreeNode {
	if len(idx) == 0 {
		return nil
	}
	out := make([]model.ProcessTreeNode, len(idx))
	for i, n := range idx {
		out[i] = model.ProcessTreeNode{
			Process:  f.nodes[n].proc,
			Children: f.materialize(f.nodes[n].children),
		}
	}
	return out
}

// Flatten walks the forest depth first. Roots carry no prefix; below them
// the last child at a level gets Corner, the others Tee, and each ancestor
// level contributes Pipe (more siblings follow) or Blank.
func (f *Forest) Flatten() []Entry {
	out := make([]Entry, 0, len(f.nodes))
	var walk func(idx []int, depth int, parentPrefix string)
	walk = func(idx []int, depth int, parentPrefix string) {
		for i, n := range idx {
			last := i == len(idx)-1
			var branch, childPrefix string
			if depth > 0 {
				if last {
					branch, childPrefix = parentPrefix+Corner, parentPrefix+Blank
				} else {
					branch, childPrefix = parentPrefix+Tee, parentPrefix+Pipe
				}
			}
			out = append(out, Entry{Process: f.nodes[n].proc, Depth: depth, Prefix: branch})
			walk(f.nodes[n].children, depth+1, childPrefix)
		}
	}
	walk(f.roots, 0, "")
	return out
}
