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

package common

import "strings"

// Separator is the only segment separator understood by mount paths
const Separator = '/'

// IsPathContained reports whether path lies strictly inside container.
// Equal paths are not contained. container must not end with a separator.
//
//	IsPathContained("abc/def", "abc") == true
//	IsPathContained("abcd", "abc")    == false
func IsPathContained(path, container string) bool {
	if len(path) > len(container) {
		return path[len(container)] == Separator && strings.HasPrefix(path, container)
	}
	return false
}

// IsPathEqualOrContained reports whether path equals container or lies inside it
func IsPathEqualOrContained(path, container string) bool {
	if len(path) > len(container) {
		return path[len(container)] == Separator && strings.HasPrefix(path, container)
	}
	return path == container
}

// RewritePath moves path from container into newContainer, keeping the suffix.
// Returns false if path is neither equal to nor contained in container.
//
//	RewritePath("/a/b/c", "/a", "/mnt") == "/mnt/b/c", true
func RewritePath(path, container, newContainer string) (string, bool) {
	if path == container {
		return newContainer, true
	}
	if !IsPathContained(path, container) {
		return "", false
	}
	return newContainer + path[len(container):], true
}

// IsValidMountPath reports whether p can be used as a virtual mount point:
// the root ("") or an absolute path without a trailing separator.
func IsValidMountPath(p string) bool {
	if p == "" {
		return true
	}
	return p[0] == Separator && p[len(p)-1] != Separator
}

// IsValidTargetPath reports whether p can be used as a mount target.
// Targets are opaque ("C:/data" is fine) but must not end with a separator.
func IsValidTargetPath(p string) bool {
	return p == "" || p[len(p)-1] != Separator
}

// ParentPaths returns every proper ancestor of p, deepest first.
// The root ("") is included for any absolute path.
func ParentPaths(p string) []string {
	var parents []string
	for i := strings.LastIndexByte(p, Separator); i >= 0; i = strings.LastIndexByte(p[:i], Separator) {
		parents = append(parents, p[:i])
	}
	return parents
}
