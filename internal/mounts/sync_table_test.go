package mounts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"vmount/internal/cache"
	"vmount/internal/common"
)

func testSyncTable(t *testing.T) (*SyncTable, *cache.ResolveCache) {
	t.Helper()
	c, err := cache.NewResolveCache(128)
	require.NoError(t, err)
	return NewSyncTable(testTable(t), c), c
}

func TestSyncTableResolveUsesCache(t *testing.T) {
	t.Parallel()
	if cache.Disabled {
		t.Skip("caching disabled via VMOUNT_CACHE=0")
	}
	st, c := testSyncTable(t)

	got, ok := st.Resolve("/work/kunde1/a")
	require.True(t, ok)
	assert.Equal(t, "/customers/kunde1/a", got)
	assert.Equal(t, 1, c.Size())

	got, ok = st.Resolve("/work/kunde1/a")
	require.True(t, ok)
	assert.Equal(t, "/customers/kunde1/a", got)
	assert.Equal(t, uint64(1), c.Stats().Hits)

	_, ok = st.Resolve("relative")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size(), "failed resolutions are not cached")
}

func TestSyncTableInvalidation(t *testing.T) {
	t.Parallel()

	t.Run("mount", func(t *testing.T) {
		t.Parallel()
		st, _ := testSyncTable(t)
		before, _ := st.Resolve("/work/kunde1/new/x")
		assert.Equal(t, "/customers/kunde1/new/x", before)
		other, _ := st.Resolve("/work/kunde2/x")

		require.NoError(t, st.Mount("/work/kunde1/new", "/new"))

		after, _ := st.Resolve("/work/kunde1/new/x")
		assert.Equal(t, "/new/x", after)
		again, _ := st.Resolve("/work/kunde2/x")
		assert.Equal(t, other, again)
	})

	t.Run("rejected mount", func(t *testing.T) {
		t.Parallel()
		st, _ := testSyncTable(t)
		err := st.Mount("/x", "/documents/sub")
		assert.ErrorIs(t, err, common.ErrNestedMount)
	})

	t.Run("unmount in", func(t *testing.T) {
		t.Parallel()
		st, _ := testSyncTable(t)
		before, _ := st.Resolve("/work/kunde1/documents/d")
		assert.Equal(t, "/documents/d", before)

		var orphans []string
		n := st.UnmountIn("/work/kunde1", collectOrphans(&orphans))
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"/customers/kunde1"}, orphans)

		after, _ := st.Resolve("/work/kunde1/documents/d")
		assert.Equal(t, "/virtual/work/kunde1/documents/d", after)
	})

	t.Run("unmount absolute", func(t *testing.T) {
		t.Parallel()
		st, _ := testSyncTable(t)
		st.Resolve("/work/kunde1/documents/d")
		st.Resolve("/work/kunde2/documents/d")

		var orphans []string
		n := st.UnmountAbsolute("/documents", collectOrphans(&orphans))
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"/documents"}, orphans)

		got, _ := st.Resolve("/work/kunde1/documents/d")
		assert.Equal(t, "/customers/kunde1/documents/d", got)
		got, _ = st.Resolve("/work/kunde2/documents/d")
		assert.Equal(t, "/customers/kunde2/documents/d", got)
	})

	t.Run("unmount root purges everything", func(t *testing.T) {
		t.Parallel()
		st, c := testSyncTable(t)
		st.Resolve("/work/kunde1/a")
		st.Resolve("/other")

		n := st.UnmountIn("", nil)
		assert.Equal(t, 5, n)
		assert.Equal(t, 0, c.Size())

		got, _ := st.Resolve("/work/kunde1/a")
		assert.Equal(t, "/workspace/work/kunde1/a", got)
	})
}

func TestSyncTableMountPointsBelow(t *testing.T) {
	t.Parallel()
	st, _ := testSyncTable(t)
	assert.Len(t, st.MountPointsBelow("/work"), 4)
	assert.Len(t, st.MountPointsIn("/work"), 5)
}

func TestSyncTableCallbackReentry(t *testing.T) {
	t.Parallel()
	st, _ := testSyncTable(t)

	st.UnmountIn("/work/kunde2", func(target string) {
		// the lock is released before callbacks run
		require.NoError(t, st.Mount("/moved", target))
	})
	assert.Equal(t, []string{"/moved"}, st.ReverseResolve("/customers/kunde2"))
}

func TestSyncTableWithoutCache(t *testing.T) {
	t.Parallel()
	st := NewSyncTable(New("/root"), nil)
	require.NoError(t, st.Mount("/a", "/t/a"))

	got, ok := st.Resolve("/a/b")
	require.True(t, ok)
	assert.Equal(t, "/t/a/b", got)
	assert.Equal(t, "/root", st.Base())
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []MountPoint{{"", "/root"}, {"/a", "/t/a"}}, st.MountPoints())
	assert.Equal(t, []MountPoint{{"/a", "/t/a"}}, st.MountPointsIn("/a"))

	vp, ok := st.VirtualPath("/t/a")
	require.True(t, ok)
	assert.Equal(t, "/a", vp)
}

func TestSyncTableSnapshot(t *testing.T) {
	t.Parallel()
	st, _ := testSyncTable(t)

	snap := st.Snapshot()
	st.UnmountIn("", nil)

	assert.Equal(t, 1, st.Len())
	assert.Equal(t, 6, snap.Len())
}

func TestSyncTableConcurrentAccess(t *testing.T) {
	t.Parallel()
	st, _ := testSyncTable(t)

	var g errgroup.Group
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				v := fmt.Sprintf("/work/kunde1/w%d/m%d", w, i)
				if err := st.Mount(v, fmt.Sprintf("/targets/w%d/m%d", w, i)); err != nil {
					return err
				}
				if i%2 == 0 {
					st.UnmountIn(v, nil)
				}
			}
			return nil
		})
	}
	for r := 0; r < 8; r++ {
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				got, ok := st.Resolve("/work/kunde2/documents/file")
				if !ok || got != "/documents/file" {
					return fmt.Errorf("unexpected resolution %q", got)
				}
				if paths := st.ReverseResolve("/customers/kunde2/x"); len(paths) != 1 {
					return fmt.Errorf("unexpected reverse resolution %v", paths)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// 4 writers left every odd mount in place
	assert.Equal(t, 6+4*100, st.Len())
	got, _ := st.Resolve("/work/kunde1/w0/m1/f")
	assert.Equal(t, "/targets/w0/m1/f", got)
	got, _ = st.Resolve("/work/kunde1/w0/m0/f")
	assert.Equal(t, "/customers/kunde1/w0/m0/f", got)
}
