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

// Package mounts implements the virtual mount table: a bidirectional mapping
// between virtual paths and the target paths they are mounted on.
//
// Two ordered indices are kept in lockstep:
//   - the virtual index, virtual path -> target, with a cached key of each
//     node's nearest mounted ancestor so resolution is a single ordered probe
//     followed by a few hops instead of a per-segment walk;
//   - the alias index, target -> virtual paths, which answers reverse lookups
//     and enforces that mounted targets are never nested in one another.
//
// A Table is not safe for concurrent use; see SyncTable.
package mounts

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"vmount/internal/common"
)

// MountPoint is a single mount declaration
type MountPoint struct {
	VirtualPath string `json:"virtual_path" yaml:"virtual"`
	Target      string `json:"target" yaml:"target"`
}

// Table maps virtual paths to targets. The virtual root ("") is mounted on
// the base target for the whole lifetime of the table.
type Table struct {
	virtual *virtualIndex
	aliases *aliasIndex
}

// New creates a table with basePath mounted at the virtual root
func New(basePath string) *Table {
	t := &Table{
		virtual: newVirtualIndex(),
		aliases: newAliasIndex(),
	}
	t.virtual.insert("", basePath)
	t.aliases.insert(basePath, "")
	return t
}

// Clone returns an independent copy of the table.
// The copy is lazy; both tables stay cheap to read and modify afterwards.
func (t *Table) Clone() *Table {
	return &Table{
		virtual: t.virtual.clone(),
		aliases: t.aliases.clone(),
	}
}

// Base returns the target mounted at the virtual root
func (t *Table) Base() string {
	root, ok := t.virtual.get("")
	if !ok {
		panic("mounts: virtual root is not mounted")
	}
	return root.target
}

// Len returns the number of mount points, including the root
func (t *Table) Len() int {
	return t.virtual.len()
}

// Mount mounts target at virtualPath.
//
// The same target may be mounted under several virtual paths (aliasing), but
// a target nested inside, or containing, an already mounted target is
// rejected with common.ErrNestedMount. On any error the table is unchanged.
func (t *Table) Mount(virtualPath, target string) error {
	if !common.IsValidMountPath(virtualPath) || !common.IsValidTargetPath(target) {
		return fmt.Errorf("mount %q -> %q: %w", virtualPath, target, common.ErrInvalidPath)
	}
	if existing, ok := t.virtual.get(virtualPath); ok {
		return fmt.Errorf("mount %q -> %q: %w on %q", virtualPath, target, common.ErrMountExists, existing.target)
	}
	if t.aliases.nestedConflict(target) {
		log.Debugf("[Mounts] Mount rejected: virtual=%q target=%q nests with a mounted target", virtualPath, target)
		return fmt.Errorf("mount %q -> %q: %w", virtualPath, target, common.ErrNestedMount)
	}

	node := t.virtual.insert(virtualPath, target)
	t.aliases.insert(target, virtualPath)
	log.Debugf("[Mounts] Mount: virtual=%q target=%q up=%q", virtualPath, target, node.up)
	return nil
}

// UnmountIn removes the mount at virtualPath and every mount below it.
// orphaned, if not nil, is called once for every target that no longer has
// any virtual path after the removal. Returns the number of removed mounts.
//
// The virtual root itself is never removed: UnmountIn("", …) clears every
// other mount and keeps the base target.
func (t *Table) UnmountIn(virtualPath string, orphaned func(target string)) int {
	targets := t.unmountSubtree(virtualPath)
	t.reportOrphans(targets, orphaned)
	return len(targets)
}

// UnmountAbsolute removes every virtual path mounted exactly on target,
// together with the mounts below each of them. The root alias of the base
// target is kept. orphaned behaves as in UnmountIn.
func (t *Table) UnmountAbsolute(target string, orphaned func(target string)) int {
	var targets []string
	for _, virtualPath := range t.aliases.virtualPaths(target) {
		if virtualPath == "" {
			continue
		}
		targets = append(targets, t.unmountSubtree(virtualPath)...)
	}
	t.reportOrphans(targets, orphaned)
	return len(targets)
}

// unmountSubtree removes the subtree rooted at virtualPath from both indices
// and returns the targets of the removed nodes in removal order.
// Keys are collected before anything is removed.
func (t *Table) unmountSubtree(virtualPath string) []string {
	nodes := t.virtual.subtree(virtualPath)
	targets := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.virtualPath == "" {
			continue
		}
		t.virtual.remove(n.virtualPath)
		t.aliases.remove(n.target, n.virtualPath)
		targets = append(targets, n.target)
		log.Debugf("[Mounts] Unmount: virtual=%q target=%q", n.virtualPath, n.target)
	}
	return targets
}

// reportOrphans calls fn once for each distinct target with no alias left
func (t *Table) reportOrphans(targets []string, fn func(target string)) {
	if fn == nil {
		return
	}
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true
		if !t.aliases.has(target) {
			fn(target)
		}
	}
}

// Resolve returns the target path for virtualPath, rewritten from its
// deepest mounted ancestor. It fails only for paths outside the virtual
// namespace, i.e. non-empty paths that do not start with "/".
func (t *Table) Resolve(virtualPath string) (string, bool) {
	node, ok := t.virtual.deepestAncestor(virtualPath)
	if !ok {
		return "", false
	}
	return common.RewritePath(virtualPath, node.virtualPath, node.target)
}

// ReverseResolve returns every virtual path under which target is visible
func (t *Table) ReverseResolve(target string) []string {
	var paths []string
	t.ForEachMount(target, func(virtualPath string) {
		paths = append(paths, virtualPath)
	})
	return paths
}

// ForEachMount calls fn for every virtual path under which target is
// visible: the mounted target containing it is found and target is
// rewritten into each of that mount's aliases.
//
//	/work/kunde1/documents -> /documents
//	/work/kunde2/documents -> /documents
//	ForEachMount("/documents/a.txt") -> /work/kunde1/documents/a.txt
//	                                    /work/kunde2/documents/a.txt
func (t *Table) ForEachMount(target string, fn func(virtualPath string)) {
	entry, ok := t.aliases.containing(target)
	if !ok {
		return
	}
	paths := make([]string, 0, len(entry.virtualPaths))
	for _, alias := range entry.virtualPaths {
		if p, ok := common.RewritePath(target, entry.target, alias); ok {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		fn(p)
	}
}

// VirtualPath returns one virtual path mounted exactly on target.
// With several aliases the lexicographically smallest one wins.
func (t *Table) VirtualPath(target string) (string, bool) {
	paths := t.aliases.virtualPaths(target)
	if len(paths) == 0 {
		return "", false
	}
	return paths[0], true
}

// MountPointsIn returns the mount at virtualPath, if any, and every mount
// below it, ordered by virtual path. Targets are the declared ones, not
// rewritten.
func (t *Table) MountPointsIn(virtualPath string) []MountPoint {
	var points []MountPoint
	t.ForEachMountIn(virtualPath, func(mp MountPoint) {
		points = append(points, mp)
	})
	return points
}

// ForEachMountIn calls fn for every mount returned by MountPointsIn.
// fn may modify the table.
func (t *Table) ForEachMountIn(virtualPath string, fn func(MountPoint)) {
	for _, n := range t.virtual.subtree(virtualPath) {
		fn(MountPoint{VirtualPath: n.virtualPath, Target: n.target})
	}
}

// MountPointsBelow is MountPointsIn without the mount at virtualPath itself
func (t *Table) MountPointsBelow(virtualPath string) []MountPoint {
	var points []MountPoint
	t.ForEachMountBelow(virtualPath, func(mp MountPoint) {
		points = append(points, mp)
	})
	return points
}

// ForEachMountBelow calls fn for every mount strictly below virtualPath.
// fn may modify the table.
func (t *Table) ForEachMountBelow(virtualPath string, fn func(MountPoint)) {
	for _, n := range t.virtual.descendants(virtualPath) {
		fn(MountPoint{VirtualPath: n.virtualPath, Target: n.target})
	}
}

// MountPoints returns every mount of the table, root first
func (t *Table) MountPoints() []MountPoint {
	nodes := t.virtual.all()
	points := make([]MountPoint, len(nodes))
	for i, n := range nodes {
		points[i] = MountPoint{VirtualPath: n.virtualPath, Target: n.target}
	}
	return points
}
