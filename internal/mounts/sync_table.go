package mounts

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"vmount/internal/cache"
)

// SyncTable guards a Table for concurrent use.
// Mount and unmount take the write lock; queries share the read lock.
// Callbacks run after the lock is released and may call back into the table.
type SyncTable struct {
	mu       sync.RWMutex
	table    *Table
	resolved *cache.ResolveCache // nil disables caching
}

// NewSyncTable takes ownership of table. resolveCache may be nil.
func NewSyncTable(table *Table, resolveCache *cache.ResolveCache) *SyncTable {
	return &SyncTable{
		table:    table,
		resolved: resolveCache,
	}
}

// Mount is Table.Mount under the write lock
func (s *SyncTable) Mount(virtualPath, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.Mount(virtualPath, target); err != nil {
		return err
	}
	s.invalidate(virtualPath)
	return nil
}

// UnmountIn is Table.UnmountIn under the write lock
func (s *SyncTable) UnmountIn(virtualPath string, orphaned func(target string)) int {
	var orphans []string
	s.mu.Lock()
	n := s.table.UnmountIn(virtualPath, func(target string) {
		orphans = append(orphans, target)
	})
	if n > 0 {
		s.invalidate(virtualPath)
	}
	s.mu.Unlock()

	notify(orphans, orphaned)
	return n
}

// UnmountAbsolute is Table.UnmountAbsolute under the write lock
func (s *SyncTable) UnmountAbsolute(target string, orphaned func(target string)) int {
	var orphans []string
	s.mu.Lock()
	aliases := s.table.aliases.virtualPaths(target)
	n := s.table.UnmountAbsolute(target, func(t string) {
		orphans = append(orphans, t)
	})
	if n > 0 {
		for _, virtualPath := range aliases {
			if virtualPath != "" {
				s.invalidate(virtualPath)
			}
		}
	}
	s.mu.Unlock()

	notify(orphans, orphaned)
	return n
}

func notify(targets []string, fn func(target string)) {
	if fn == nil {
		return
	}
	for _, t := range targets {
		fn(t)
	}
}

// invalidate drops cached resolutions at or below virtualPath.
// Must be called with the write lock held.
func (s *SyncTable) invalidate(virtualPath string) {
	if s.resolved == nil {
		return
	}
	if virtualPath == "" {
		s.resolved.Invalidate()
		log.Tracef("[SyncTable] invalidated all resolutions")
		return
	}
	s.resolved.InvalidateSubtree(virtualPath)
	log.Tracef("[SyncTable] invalidated resolutions under %q", virtualPath)
}

// Resolve is Table.Resolve under the read lock, served from the cache when possible
func (s *SyncTable) Resolve(virtualPath string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.resolved != nil {
		if target, ok := s.resolved.Get(virtualPath); ok {
			return target, true
		}
	}
	target, ok := s.table.Resolve(virtualPath)
	if ok && s.resolved != nil {
		// Set under the read lock so no writer can invalidate in between
		s.resolved.Set(virtualPath, target)
	}
	return target, ok
}

func (s *SyncTable) ReverseResolve(target string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.ReverseResolve(target)
}

func (s *SyncTable) VirtualPath(target string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.VirtualPath(target)
}

func (s *SyncTable) MountPointsIn(virtualPath string) []MountPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.MountPointsIn(virtualPath)
}

func (s *SyncTable) MountPointsBelow(virtualPath string) []MountPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.MountPointsBelow(virtualPath)
}

func (s *SyncTable) MountPoints() []MountPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.MountPoints()
}

func (s *SyncTable) Base() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Base()
}

func (s *SyncTable) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Len()
}

// Snapshot returns an independent copy of the current table.
// Cloning marks the shared nodes copy-on-write, so it needs the write lock.
func (s *SyncTable) Snapshot() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone()
}
