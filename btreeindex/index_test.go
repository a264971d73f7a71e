package btreeindex

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"DexDB/bufferpool"
	"DexDB/diskmanager"
	"DexDB/heapfile"
	"DexDB/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func newDiskPool(t *testing.T) (*diskmanager.DiskManager, *bufferpool.BufferPool) {
	t.Helper()
	dm, err := diskmanager.NewDiskManager(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return dm, bufferpool.NewBufferPool(32, dm, zap.NewNop())
}

func TestCreateRejectsNonIntAttribute(t *testing.T) {
	_, pool := newDiskPool(t)
	_, _, err := NewBTreeIndex(zap.NewNop(), "emp", 0, types.DoubleType, pool, nil)
	assert.ErrorIs(t, err, ErrBadIndexInfo)
}

func TestCreateRejectsLongRelationName(t *testing.T) {
	_, pool := newDiskPool(t)
	name := "a_relation_name_well_past_thirty_two_bytes"
	_, _, err := NewBTreeIndex(zap.NewNop(), name, 0, types.IntType, pool, nil)
	assert.ErrorIs(t, err, ErrBadIndexInfo)
}

func TestBulkBuildFromHeapFile(t *testing.T) {
	chdirTemp(t)
	dm, pool := newDiskPool(t)

	hf, err := heapfile.CreateHeapFile(dm, "emp.rel", zap.NewNop())
	require.NoError(t, err)

	// records carry the key at byte offset 4
	const n = 1200
	record := make([]byte, 24)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(record[0:], uint32(i+1000))
		binary.LittleEndian.PutUint32(record[4:], uint32(n-1-i))
		_, err := hf.Insert(record)
		require.NoError(t, err)
	}

	idx, fileName, err := NewBTreeIndex(zap.NewNop(), "emp", 4, types.IntType, pool, hf.NewFileScan())
	require.NoError(t, err)
	assert.Equal(t, "emp.4", fileName)

	require.NoError(t, idx.BeginScan(0, types.GTE, int32(n-1), types.LTE))
	count := 0
	for {
		_, err := idx.NextScan()
		if err == ErrScanCompleted {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, n, count)

	require.NoError(t, idx.Close())
	require.NoError(t, hf.Close())
}

func TestReopenPersistedIndex(t *testing.T) {
	chdirTemp(t)

	// build and close
	{
		_, pool := newDiskPool(t)
		idx, _, err := NewBTreeIndex(zap.NewNop(), "emp", 0, types.IntType, pool, nil)
		require.NoError(t, err)
		for i := 0; i < 2000; i++ {
			require.NoError(t, idx.Insert(int32(i), types.RecordID{PageNumber: int32(i + 1), SlotNumber: 0}))
		}
		require.NoError(t, idx.Close())
	}

	// reopen with a fresh manager and pool, contents must survive
	{
		_, pool := newDiskPool(t)
		idx, _, err := NewBTreeIndex(zap.NewNop(), "emp", 0, types.IntType, pool, nil)
		require.NoError(t, err)

		require.NoError(t, idx.BeginScan(100, types.GTE, 110, types.LTE))
		var keys []int32
		for {
			rid, err := idx.NextScan()
			if err == ErrScanCompleted {
				break
			}
			require.NoError(t, err)
			keys = append(keys, rid.PageNumber-1)
		}
		assert.Equal(t, []int32{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110}, keys)
		require.NoError(t, idx.Close())
	}
}

func TestOpenValidatesMeta(t *testing.T) {
	chdirTemp(t)

	{
		_, pool := newDiskPool(t)
		idx, _, err := NewBTreeIndex(zap.NewNop(), "emp", 0, types.IntType, pool, nil)
		require.NoError(t, err)
		require.NoError(t, idx.Close())
	}

	// rewrite the stored attribute offset so the meta no longer matches
	// the caller
	{
		dm, pool := newDiskPool(t)
		fileID, err := dm.OpenFile("emp.0")
		require.NoError(t, err)
		data, err := dm.ReadPage(fileID, 0)
		require.NoError(t, err)
		meta := metaView{data}
		meta.setAttrByteOffset(8)
		require.NoError(t, dm.WritePage(fileID, 0, data))
		require.NoError(t, dm.CloseFile(fileID))

		_, _, err = NewBTreeIndex(zap.NewNop(), "emp", 0, types.IntType, pool, nil)
		assert.ErrorIs(t, err, ErrBadIndexInfo)
	}
}

func TestInspectDump(t *testing.T) {
	chdirTemp(t)

	_, pool := newDiskPool(t)
	idx, fileName, err := NewBTreeIndex(zap.NewNop(), "emp", 0, types.IntType, pool, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, idx.Insert(int32(i), types.RecordID{PageNumber: int32(i + 1), SlotNumber: 0}))
	}
	require.NoError(t, idx.Close())

	var buf bytes.Buffer
	require.NoError(t, InspectIndexFileTo(&buf, fileName))
	assert.Contains(t, buf.String(), "LEAF")
	assert.Contains(t, buf.String(), "root=1")
}
