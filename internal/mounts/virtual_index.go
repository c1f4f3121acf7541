// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mounts

import (
	"fmt"

	"github.com/google/btree"

	"vmount/internal/common"
)

// btreeDegree is the branching factor of both indices
const btreeDegree = 16

// mountNode is one mounted virtual path.
// up holds the key of the deepest mounted proper ancestor, not a pointer,
// so removing unrelated nodes never leaves it dangling.
type mountNode struct {
	virtualPath string
	target      string
	up          string
}

func lessMountNode(a, b mountNode) bool {
	return a.virtualPath < b.virtualPath
}

// virtualIndex orders mount nodes by virtual path
type virtualIndex struct {
	tree *btree.BTreeG[mountNode]
}

func newVirtualIndex() *virtualIndex {
	return &virtualIndex{tree: btree.NewG(btreeDegree, lessMountNode)}
}

func (vi *virtualIndex) clone() *virtualIndex {
	return &virtualIndex{tree: vi.tree.Clone()}
}

func (vi *virtualIndex) len() int {
	return vi.tree.Len()
}

func (vi *virtualIndex) get(virtualPath string) (mountNode, bool) {
	return vi.tree.Get(mountNode{virtualPath: virtualPath})
}

// deepestAncestor returns the mounted node that is equal to or the deepest
// ancestor of virtualPath.
//
// The greatest key <= virtualPath+"/" is the deepest candidate, but it may be
// a sibling sharing a prefix:
//
//	keys: "", /a, /a/b, /a/ba, /a-x
//	deepestAncestor("/a/b/c") -> "/a/b"                        -> match
//	deepestAncestor("/a/bb")  -> "/a/ba" -> up "/a"            -> match
//	deepestAncestor("/a/a")   -> "/a-x"  -> floor("/a") "/a"   -> match
//
// On a miss the search continues from the path the candidate shares with
// virtualPath: through the candidate's up keys when that path is one of its
// ancestors, otherwise by a new lookup on it. Each step is strictly shorter.
// Returns false only for paths the root does not contain (relative paths).
func (vi *virtualIndex) deepestAncestor(virtualPath string) (mountNode, bool) {
	node := vi.floor(virtualPath + string(common.Separator))
	for !common.IsPathEqualOrContained(virtualPath, node.virtualPath) {
		shared, ok := sharedAncestor(virtualPath, node.virtualPath)
		if !ok {
			return mountNode{}, false
		}
		if !common.IsPathContained(node.virtualPath, shared) {
			node = vi.floor(shared)
			continue
		}
		// Every mounted ancestor of shared is on node's up chain
		for !common.IsPathEqualOrContained(shared, node.virtualPath) {
			node = vi.parent(node)
		}
		return node, true
	}
	return node, true
}

// floor returns the node with the greatest key <= key
func (vi *virtualIndex) floor(key string) mountNode {
	var node mountNode
	found := false
	vi.tree.DescendLessOrEqual(mountNode{virtualPath: key}, func(n mountNode) bool {
		node, found = n, true
		return false
	})
	if !found {
		panic("mounts: virtual root is not mounted")
	}
	return node
}

func (vi *virtualIndex) parent(n mountNode) mountNode {
	up, ok := vi.get(n.up)
	if !ok {
		panic(fmt.Sprintf("mounts: %q references unmounted ancestor %q", n.virtualPath, n.up))
	}
	return up
}

// sharedAncestor returns the longest path that is equal to or an ancestor
// of virtualPath and a byte prefix of key. False if there is none, which
// only happens for relative paths.
func sharedAncestor(virtualPath, key string) (string, bool) {
	n := 0
	for n < len(virtualPath) && n < len(key) && virtualPath[n] == key[n] {
		n++
	}
	for ; n >= 0; n-- {
		if n == len(virtualPath) || virtualPath[n] == common.Separator {
			return virtualPath[:n], true
		}
	}
	return "", false
}

// insert adds a node for virtualPath. The caller guarantees virtualPath is
// not mounted yet. Existing descendants whose up skipped over virtualPath are
// re-pointed to it.
func (vi *virtualIndex) insert(virtualPath, target string) mountNode {
	node := mountNode{virtualPath: virtualPath, target: target}
	if virtualPath != "" {
		up, ok := vi.deepestAncestor(virtualPath)
		if !ok {
			panic(fmt.Sprintf("mounts: %q is outside the virtual namespace", virtualPath))
		}
		node.up = up.virtualPath
	}
	vi.tree.ReplaceOrInsert(node)

	for _, d := range vi.descendants(virtualPath) {
		if common.IsPathContained(d.up, virtualPath) {
			continue
		}
		d.up = virtualPath
		vi.tree.ReplaceOrInsert(d)
	}
	return node
}

func (vi *virtualIndex) remove(virtualPath string) {
	vi.tree.Delete(mountNode{virtualPath: virtualPath})
}

// descendants returns all nodes strictly below virtualPath in key order.
// They are contiguous starting at virtualPath+"/".
func (vi *virtualIndex) descendants(virtualPath string) []mountNode {
	var nodes []mountNode
	vi.tree.AscendGreaterOrEqual(mountNode{virtualPath: virtualPath + string(common.Separator)}, func(n mountNode) bool {
		if !common.IsPathContained(n.virtualPath, virtualPath) {
			return false
		}
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// subtree returns the node at virtualPath, if mounted, followed by its descendants
func (vi *virtualIndex) subtree(virtualPath string) []mountNode {
	var nodes []mountNode
	if n, ok := vi.get(virtualPath); ok {
		nodes = append(nodes, n)
	}
	return append(nodes, vi.descendants(virtualPath)...)
}

func (vi *virtualIndex) all() []mountNode {
	nodes := make([]mountNode, 0, vi.tree.Len())
	vi.tree.Ascend(func(n mountNode) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}
