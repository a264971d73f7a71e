package diskmanager_test

import (
	"os"
	"path/filepath"
	"testing"

	"DexDB/diskmanager"
	"DexDB/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newManager(t *testing.T) *diskmanager.DiskManager {
	t.Helper()
	dm, err := diskmanager.NewDiskManager(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return dm
}

func TestOpenMissingFile(t *testing.T) {
	dm := newManager(t)
	_, err := dm.OpenFile(filepath.Join(t.TempDir(), "absent.dat"))
	assert.True(t, errors.Is(err, diskmanager.ErrFileNotFound))
}

func TestCreateExistingFileFails(t *testing.T) {
	dm := newManager(t)
	path := filepath.Join(t.TempDir(), "dup.dat")

	fileID, err := dm.CreateFile(path)
	require.NoError(t, err)
	require.NoError(t, dm.CloseFile(fileID))

	_, err = dm.CreateFile(path)
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dm := newManager(t)
	path := filepath.Join(t.TempDir(), "pages.dat")

	fileID, err := dm.CreateFile(path)
	require.NoError(t, err)

	data := make([]byte, types.PageSize)
	for i := 0; i < types.PayloadSize; i++ {
		data[i] = byte(i)
	}
	require.NoError(t, dm.WritePage(fileID, 0, data))

	back, err := dm.ReadPage(fileID, 0)
	require.NoError(t, err)
	assert.Equal(t, data[:types.PayloadSize], back[:types.PayloadSize])

	// the returned slice is a private copy
	back[0] ^= 0xFF
	again, err := dm.ReadPage(fileID, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), again[0])
}

func TestWriteRejectsWrongSize(t *testing.T) {
	dm := newManager(t)
	fileID, err := dm.CreateFile(filepath.Join(t.TempDir(), "short.dat"))
	require.NoError(t, err)

	assert.Error(t, dm.WritePage(fileID, 0, make([]byte, 100)))
}

func TestAllocatePageSequence(t *testing.T) {
	dm := newManager(t)
	fileID, err := dm.CreateFile(filepath.Join(t.TempDir(), "alloc.dat"))
	require.NoError(t, err)

	for want := int32(0); want < 3; want++ {
		got, err := dm.AllocatePage(fileID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	count, err := dm.PageCount(fileID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), count)

	// an allocated but never-written page reads back zeroed and unverified
	data, err := dm.ReadPage(fileID, 1)
	require.NoError(t, err)
	for _, b := range data {
		require.Zero(t, b)
	}
}

func TestReadPageOutOfRange(t *testing.T) {
	dm := newManager(t)
	fileID, err := dm.CreateFile(filepath.Join(t.TempDir(), "range.dat"))
	require.NoError(t, err)

	_, err = dm.ReadPage(fileID, 0)
	assert.Error(t, err)
	_, err = dm.ReadPage(fileID, -1)
	assert.Error(t, err)
}

func TestReopenSeesPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.dat")

	{
		dm := newManager(t)
		fileID, err := dm.CreateFile(path)
		require.NoError(t, err)
		data := make([]byte, types.PageSize)
		data[0] = 0x5A
		require.NoError(t, dm.WritePage(fileID, 0, data))
		require.NoError(t, dm.CloseFile(fileID))
	}

	{
		dm := newManager(t)
		fileID, err := dm.OpenFile(path)
		require.NoError(t, err)
		count, err := dm.PageCount(fileID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), count)
		data, err := dm.ReadPage(fileID, 0)
		require.NoError(t, err)
		assert.Equal(t, byte(0x5A), data[0])
	}
}

func TestCorruptionDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.dat")

	{
		dm := newManager(t)
		fileID, err := dm.CreateFile(path)
		require.NoError(t, err)
		data := make([]byte, types.PageSize)
		data[10] = 0x42
		require.NoError(t, dm.WritePage(fileID, 0, data))
		require.NoError(t, dm.CloseFile(fileID))
	}

	// flip a payload byte behind the manager's back
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0x43}, 10)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// a fresh manager has a cold cache and must hit the corrupted bytes
	dm := newManager(t)
	fileID, err := dm.OpenFile(path)
	require.NoError(t, err)
	_, err = dm.ReadPage(fileID, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestGlobalPageID(t *testing.T) {
	assert.Equal(t, int64(0), diskmanager.GlobalPageID(0, 0))
	assert.NotEqual(t,
		diskmanager.GlobalPageID(1, 0),
		diskmanager.GlobalPageID(0, 1))
	assert.Equal(t, int64(1)<<32|int64(7), diskmanager.GlobalPageID(1, 7))
}
