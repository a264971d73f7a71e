package btreeindex

import (
	"testing"

	"DexDB/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallIndex builds an index over keys 0,2,4,...,198 with rid page number
// key+1.
func smallIndex(t *testing.T) *BTreeIndex {
	t.Helper()
	idx, _ := newTestIndex(t)
	for i := 0; i < 100; i++ {
		key := int32(i * 2)
		require.NoError(t, idx.Insert(key, types.RecordID{PageNumber: key + 1, SlotNumber: 0}))
	}
	return idx
}

func collectKeys(t *testing.T, idx *BTreeIndex) []int32 {
	t.Helper()
	var out []int32
	for {
		rid, err := idx.NextScan()
		if err == ErrScanCompleted {
			break
		}
		require.NoError(t, err)
		out = append(out, rid.PageNumber-1)
	}
	return out
}

func TestScanInclusiveBounds(t *testing.T) {
	idx := smallIndex(t)

	require.NoError(t, idx.BeginScan(10, types.GTE, 20, types.LTE))
	keys := collectKeys(t, idx)
	assert.Equal(t, []int32{10, 12, 14, 16, 18, 20}, keys)
	require.NoError(t, idx.EndScan())
}

func TestScanStrictBounds(t *testing.T) {
	idx := smallIndex(t)

	require.NoError(t, idx.BeginScan(10, types.GT, 20, types.LT))
	keys := collectKeys(t, idx)
	assert.Equal(t, []int32{12, 14, 16, 18}, keys)
	require.NoError(t, idx.EndScan())
}

func TestScanBoundsBetweenKeys(t *testing.T) {
	idx := smallIndex(t)

	// no key equals either bound
	require.NoError(t, idx.BeginScan(9, types.GTE, 15, types.LTE))
	keys := collectKeys(t, idx)
	assert.Equal(t, []int32{10, 12, 14}, keys)
	require.NoError(t, idx.EndScan())
}

func TestScanDuplicatesStable(t *testing.T) {
	idx, _ := newTestIndex(t)

	require.NoError(t, idx.Insert(5, types.RecordID{PageNumber: 1, SlotNumber: 0}))
	require.NoError(t, idx.Insert(7, types.RecordID{PageNumber: 2, SlotNumber: 0}))
	require.NoError(t, idx.Insert(7, types.RecordID{PageNumber: 3, SlotNumber: 0}))
	require.NoError(t, idx.Insert(7, types.RecordID{PageNumber: 4, SlotNumber: 0}))
	require.NoError(t, idx.Insert(9, types.RecordID{PageNumber: 5, SlotNumber: 0}))

	require.NoError(t, idx.BeginScan(7, types.GTE, 7, types.LTE))
	var pages []int32
	for {
		rid, err := idx.NextScan()
		if err == ErrScanCompleted {
			break
		}
		require.NoError(t, err)
		pages = append(pages, rid.PageNumber)
	}
	assert.Equal(t, []int32{2, 3, 4}, pages, "duplicates emit in arrival order")
}

func TestScanBadParameters(t *testing.T) {
	idx := smallIndex(t)

	t.Run("bad opcodes", func(t *testing.T) {
		assert.ErrorIs(t, idx.BeginScan(10, types.LT, 20, types.LTE), ErrBadOpcodes)
		assert.ErrorIs(t, idx.BeginScan(10, types.GTE, 20, types.GT), ErrBadOpcodes)
	})

	t.Run("bad range", func(t *testing.T) {
		assert.ErrorIs(t, idx.BeginScan(20, types.GTE, 10, types.LTE), ErrBadScanRange)
	})

	t.Run("cursor reset to idle", func(t *testing.T) {
		_, err := idx.NextScan()
		assert.ErrorIs(t, err, ErrScanNotStarted)
	})
}

func TestScanNoMatch(t *testing.T) {
	idx := smallIndex(t)

	// keys are even, so nothing lies in (10, 12)
	assert.ErrorIs(t, idx.BeginScan(10, types.GT, 12, types.LT), ErrNoSuchKey)
	// beyond the last key
	assert.ErrorIs(t, idx.BeginScan(500, types.GTE, 600, types.LTE), ErrNoSuchKey)

	_, err := idx.NextScan()
	assert.ErrorIs(t, err, ErrScanNotStarted)
}

func TestScanExhaustion(t *testing.T) {
	idx := smallIndex(t)

	require.NoError(t, idx.BeginScan(0, types.GTE, 4, types.LTE))
	for i := 0; i < 3; i++ {
		_, err := idx.NextScan()
		require.NoError(t, err)
	}
	_, err := idx.NextScan()
	assert.ErrorIs(t, err, ErrScanCompleted)
	_, err = idx.NextScan()
	assert.ErrorIs(t, err, ErrScanCompleted, "stays completed on repeated calls")

	require.NoError(t, idx.EndScan())
	_, err = idx.NextScan()
	assert.ErrorIs(t, err, ErrScanNotStarted)
}

func TestEndScanFromIdle(t *testing.T) {
	idx := smallIndex(t)
	assert.ErrorIs(t, idx.EndScan(), ErrScanNotStarted)
}

func TestBeginScanEndsLiveScan(t *testing.T) {
	idx, pool := newTestIndex(t)
	for i := 0; i < 100; i++ {
		require.NoError(t, idx.Insert(int32(i), types.RecordID{PageNumber: int32(i + 1), SlotNumber: 0}))
	}

	require.NoError(t, idx.BeginScan(0, types.GTE, 99, types.LTE))
	_, err := idx.NextScan()
	require.NoError(t, err)
	assert.Equal(t, 1, pool.PinnedCount(), "a positioned scan pins exactly one leaf")

	// starting a new scan releases the old cursor's pin
	require.NoError(t, idx.BeginScan(50, types.GTE, 60, types.LTE))
	assert.Equal(t, 1, pool.PinnedCount())

	keys := collectKeys(t, idx)
	assert.Len(t, keys, 11)
	assert.Zero(t, pool.PinnedCount())
}

func TestScanAcrossLeaves(t *testing.T) {
	idx, pool := newTestIndex(t)

	const n = leafCapacity * 3
	for i := 0; i < n; i++ {
		require.NoError(t, idx.Insert(int32(i), types.RecordID{PageNumber: int32(i + 1), SlotNumber: 0}))
	}
	require.GreaterOrEqual(t, idx.Height(), int32(1))

	require.NoError(t, idx.BeginScan(0, types.GTE, int32(n-1), types.LTE))
	keys := collectKeys(t, idx)
	require.Len(t, keys, n)
	for i, k := range keys {
		require.Equal(t, int32(i), k)
	}
	assert.Zero(t, pool.PinnedCount(), "exhausted scan holds no pins")
}
