package bufferpool_test

import (
	"testing"

	"DexDB/bufferpool"
	"DexDB/diskmanager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPool(t *testing.T, capacity int) (*bufferpool.BufferPool, uint32) {
	t.Helper()
	dm := diskmanager.NewInMemDiskManager()
	pool := bufferpool.NewBufferPool(capacity, dm, zap.NewNop())
	fileID, err := pool.CreateFile("test.dat")
	require.NoError(t, err)
	return pool, fileID
}

func TestNewPagePinsAndDirties(t *testing.T) {
	pool, fileID := newPool(t, 4)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), pg.PageNo())
	assert.Equal(t, 1, pool.PinnedCount())

	stats := pool.GetStats()
	assert.Equal(t, 1, stats.DirtyPages, "fresh pages are dirty so they reach disk")

	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), false))
	assert.Zero(t, pool.PinnedCount())
}

func TestFetchPageRoundTrip(t *testing.T) {
	pool, fileID := newPool(t, 4)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	pg.Data()[0] = 0xAB
	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), true))
	require.NoError(t, pool.FlushFile(fileID))

	again, err := pool.FetchPage(fileID, pg.PageNo())
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), again.Data()[0])
	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), false))
}

func TestEvictionWritesBackDirtyFrames(t *testing.T) {
	pool, fileID := newPool(t, 2)

	// fill the pool with two dirty pages, then release them
	pages := make([]int32, 2)
	for i := range pages {
		pg, err := pool.NewPage(fileID)
		require.NoError(t, err)
		pg.Data()[0] = byte(i + 1)
		pages[i] = pg.PageNo()
		require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), true))
	}

	// a third page forces the LRU frame (page 0) out
	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), false))
	assert.Equal(t, 2, pool.Size())

	// the evicted page must have reached disk
	back, err := pool.FetchPage(fileID, pages[0])
	require.NoError(t, err)
	assert.Equal(t, byte(1), back.Data()[0])
	require.NoError(t, pool.UnpinPage(fileID, pages[0], false))
}

func TestAllPinnedFails(t *testing.T) {
	pool, fileID := newPool(t, 2)

	for i := 0; i < 2; i++ {
		_, err := pool.NewPage(fileID)
		require.NoError(t, err)
	}

	_, err := pool.NewPage(fileID)
	assert.Error(t, err, "no unpinned frame to evict")
}

func TestUnpinUnknownPage(t *testing.T) {
	pool, fileID := newPool(t, 2)
	assert.Error(t, pool.UnpinPage(fileID, 99, false))
}

func TestCloseFileDropsFrames(t *testing.T) {
	pool, fileID := newPool(t, 4)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	pg.Data()[0] = 0x7F
	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), true))

	require.NoError(t, pool.CloseFile(fileID))
	assert.Zero(t, pool.Size())

	// reopening sees the flushed bytes
	reopened, err := pool.OpenFile("test.dat")
	require.NoError(t, err)
	back, err := pool.FetchPage(reopened, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), back.Data()[0])
	require.NoError(t, pool.UnpinPage(reopened, 0, false))
}

func TestPinCountsAccumulate(t *testing.T) {
	pool, fileID := newPool(t, 4)

	pg, err := pool.NewPage(fileID)
	require.NoError(t, err)
	_, err = pool.FetchPage(fileID, pg.PageNo())
	require.NoError(t, err)
	assert.Equal(t, 2, pool.PinnedCount())

	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), false))
	require.NoError(t, pool.UnpinPage(fileID, pg.PageNo(), false))
	assert.Zero(t, pool.PinnedCount())

	assert.Error(t, pool.UnpinPage(fileID, pg.PageNo(), false), "unpinning below zero is refused")
}
