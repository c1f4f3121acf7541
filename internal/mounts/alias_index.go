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
	"slices"

	"github.com/google/btree"

	"vmount/internal/common"
)

// aliasEntry lists the virtual paths mounted on one target, sorted.
// Slices are never mutated in place so cloned indices stay independent.
type aliasEntry struct {
	target       string
	virtualPaths []string
}

func lessAliasEntry(a, b aliasEntry) bool {
	return a.target < b.target
}

// aliasIndex orders alias entries by target
type aliasIndex struct {
	tree *btree.BTreeG[aliasEntry]
}

func newAliasIndex() *aliasIndex {
	return &aliasIndex{tree: btree.NewG(btreeDegree, lessAliasEntry)}
}

func (ai *aliasIndex) clone() *aliasIndex {
	return &aliasIndex{tree: ai.tree.Clone()}
}

func (ai *aliasIndex) get(target string) (aliasEntry, bool) {
	return ai.tree.Get(aliasEntry{target: target})
}

func (ai *aliasIndex) has(target string) bool {
	_, ok := ai.get(target)
	return ok
}

func (ai *aliasIndex) insert(target, virtualPath string) {
	entry, _ := ai.get(target)
	entry.target = target
	i, found := slices.BinarySearch(entry.virtualPaths, virtualPath)
	if found {
		return
	}
	entry.virtualPaths = slices.Insert(slices.Clone(entry.virtualPaths), i, virtualPath)
	ai.tree.ReplaceOrInsert(entry)
}

// remove drops virtualPath from target's aliases.
// Returns true if that was the last alias and the entry is gone.
func (ai *aliasIndex) remove(target, virtualPath string) bool {
	entry, ok := ai.get(target)
	if !ok {
		return false
	}
	i, found := slices.BinarySearch(entry.virtualPaths, virtualPath)
	if !found {
		return false
	}
	if len(entry.virtualPaths) == 1 {
		ai.tree.Delete(entry)
		return true
	}
	entry.virtualPaths = slices.Delete(slices.Clone(entry.virtualPaths), i, i+1)
	ai.tree.ReplaceOrInsert(entry)
	return false
}

// virtualPaths returns a copy of the exact aliases of target
func (ai *aliasIndex) virtualPaths(target string) []string {
	entry, ok := ai.get(target)
	if !ok {
		return nil
	}
	return slices.Clone(entry.virtualPaths)
}

// nestedConflict reports whether a mounted target is a proper ancestor or a
// proper descendant of target. An equal target is an alias, not a conflict.
func (ai *aliasIndex) nestedConflict(target string) bool {
	// descendants sort contiguously from target+"/"
	conflict := false
	ai.tree.AscendGreaterOrEqual(aliasEntry{target: target + string(common.Separator)}, func(e aliasEntry) bool {
		conflict = common.IsPathContained(e.target, target)
		return false
	})
	if conflict {
		return true
	}

	for _, parent := range common.ParentPaths(target) {
		if ai.has(parent) {
			return true
		}
	}
	return false
}

// containing returns the mounted target equal to or an ancestor of path.
// Nested targets are rejected at mount time, so at most one can qualify.
func (ai *aliasIndex) containing(path string) (aliasEntry, bool) {
	if entry, ok := ai.get(path); ok {
		return entry, true
	}
	for _, parent := range common.ParentPaths(path) {
		if entry, ok := ai.get(parent); ok {
			return entry, true
		}
	}
	return aliasEntry{}, false
}
