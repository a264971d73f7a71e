package btreeindex

import (
	"DexDB/bufferpool"
	"DexDB/types"

	"go.uber.org/zap"
)

/*
Range scans run through a cursor with three states. While Positioned the
cursor holds exactly one pinned leaf, Idle and Exhausted hold none.
Emission order is non-decreasing keys, duplicates in arrival order.
*/

type scanState int

const (
	scanIdle scanState = iota
	scanPositioned
	scanExhausted
)

type scanCursor struct {
	state scanState
	lo    int32
	hi    int32
	loOp  types.ScanOp
	hiOp  types.ScanOp

	// pinned leaf and slot while Positioned
	page *bufferpool.Page
	slot int
}

// BeginScan starts a range scan bounded by [lo, hi] under the given
// operators and positions the cursor on the first satisfying entry. A
// running scan is ended first. Parameter failures leave the cursor Idle.
func (idx *BTreeIndex) BeginScan(lo int32, loOp types.ScanOp, hi int32, hiOp types.ScanOp) error {
	idx.releaseScan()

	if (loOp != types.GT && loOp != types.GTE) || (hiOp != types.LT && hiOp != types.LTE) {
		return ErrBadOpcodes
	}
	if lo > hi {
		return ErrBadScanRange
	}

	idx.scan.lo, idx.scan.hi = lo, hi
	idx.scan.loOp, idx.scan.hiOp = loOp, hiOp

	pg, err := idx.descendToLeaf(lo)
	if err != nil {
		return err
	}

	leaf := leafView{pg.Data()}
	count := leaf.count()

	var pos int
	if loOp == types.GTE {
		pos = searchLeaf(leaf, lo, count)
	} else {
		pos = leafInsertPos(leaf, lo, count)
	}

	// The first satisfying entry may live further right.
	for pos >= count {
		sibling := leaf.rightSibling()
		if err := idx.pool.UnpinPage(idx.fileID, pg.PageNo(), false); err != nil {
			return ioErr(err, "unpin leaf page")
		}
		if sibling == 0 {
			return ErrNoSuchKey
		}
		pg, err = idx.pool.FetchPage(idx.fileID, sibling)
		if err != nil {
			return ioErr(err, "fetch leaf page")
		}
		leaf = leafView{pg.Data()}
		count = leaf.count()
		pos = 0
	}

	if !idx.satisfiesUpper(leaf.key(pos)) {
		if err := idx.pool.UnpinPage(idx.fileID, pg.PageNo(), false); err != nil {
			return ioErr(err, "unpin leaf page")
		}
		return ErrNoSuchKey
	}

	idx.scan.state = scanPositioned
	idx.scan.page = pg
	idx.scan.slot = pos

	idx.logger.Debug("scan started",
		zap.Int32("lo", lo),
		zap.Int32("hi", hi),
		zap.Int32("leaf", pg.PageNo()),
		zap.Int("slot", pos))

	return nil
}

// NextScan emits the record id under the cursor and advances to the next
// satisfying entry.
func (idx *BTreeIndex) NextScan() (types.RecordID, error) {
	switch idx.scan.state {
	case scanIdle:
		return types.RecordID{}, ErrScanNotStarted
	case scanExhausted:
		return types.RecordID{}, ErrScanCompleted
	}

	leaf := leafView{idx.scan.page.Data()}
	rid := leaf.rid(idx.scan.slot)

	if err := idx.advance(); err != nil {
		return types.RecordID{}, err
	}
	return rid, nil
}

// advance moves the cursor to the next satisfying slot, crossing sibling
// links and re-checking the upper predicate, or exhausts the scan.
func (idx *BTreeIndex) advance() error {
	leaf := leafView{idx.scan.page.Data()}
	idx.scan.slot++
	count := leaf.count()

	for idx.scan.slot >= count {
		sibling := leaf.rightSibling()
		if err := idx.pool.UnpinPage(idx.fileID, idx.scan.page.PageNo(), false); err != nil {
			idx.scan.state = scanExhausted
			idx.scan.page = nil
			return ioErr(err, "unpin leaf page")
		}
		if sibling == 0 {
			idx.scan.state = scanExhausted
			idx.scan.page = nil
			return nil
		}
		next, err := idx.pool.FetchPage(idx.fileID, sibling)
		if err != nil {
			idx.scan.state = scanExhausted
			idx.scan.page = nil
			return ioErr(err, "fetch leaf page")
		}
		idx.scan.page = next
		leaf = leafView{next.Data()}
		count = leaf.count()
		idx.scan.slot = 0
	}

	if !idx.satisfiesUpper(leaf.key(idx.scan.slot)) {
		if err := idx.pool.UnpinPage(idx.fileID, idx.scan.page.PageNo(), false); err != nil {
			idx.scan.state = scanExhausted
			idx.scan.page = nil
			return ioErr(err, "unpin leaf page")
		}
		idx.scan.state = scanExhausted
		idx.scan.page = nil
	}
	return nil
}

// EndScan terminates the scan and releases its pinned leaf.
func (idx *BTreeIndex) EndScan() error {
	if idx.scan.state == scanIdle {
		return ErrScanNotStarted
	}
	idx.releaseScan()
	return nil
}

// releaseScan drops the cursor back to Idle, unpinning its leaf if one is
// held.
func (idx *BTreeIndex) releaseScan() {
	if idx.scan.state == scanPositioned && idx.scan.page != nil {
		idx.pool.UnpinPage(idx.fileID, idx.scan.page.PageNo(), false)
	}
	idx.scan = scanCursor{}
}

func (idx *BTreeIndex) satisfiesUpper(key int32) bool {
	if idx.scan.hiOp == types.LT {
		return key < idx.scan.hi
	}
	return key <= idx.scan.hi
}

// descendToLeaf walks from the root to the leaf that would hold key,
// returning it pinned. Inner pages are unpinned as soon as the next level
// is known.
func (idx *BTreeIndex) descendToLeaf(key int32) (*bufferpool.Page, error) {
	pageNo := idx.rootPage
	for level := idx.rootLevel; level > 0; level-- {
		pg, err := idx.pool.FetchPage(idx.fileID, pageNo)
		if err != nil {
			return nil, ioErr(err, "fetch node page")
		}
		node := internalView{pg.Data()}
		childIdx := searchInternalScan(node, key, node.keyCount())
		child := node.child(childIdx)
		for child == 0 && childIdx > 0 {
			childIdx--
			child = node.child(childIdx)
		}
		if err := idx.pool.UnpinPage(idx.fileID, pageNo, false); err != nil {
			return nil, ioErr(err, "unpin node page")
		}
		if child == 0 {
			return nil, ioErr(errInternalNoChild, "descend")
		}
		pageNo = child
	}

	pg, err := idx.pool.FetchPage(idx.fileID, pageNo)
	if err != nil {
		return nil, ioErr(err, "fetch leaf page")
	}
	return pg, nil
}
