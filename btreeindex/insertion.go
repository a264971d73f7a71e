package btreeindex

import (
	"DexDB/bufferpool"
	"DexDB/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var errInternalNoChild = errors.New("internal node has no child to descend into")

/*
Insertion is a recursive descent from the root. A child that splits hands
a splitRecord back to its parent, which absorbs the new separator or
splits in turn. The parent's page stays pinned while the child works, so
at most height+1 pages are pinned at once. Root growth and the meta page
update happen last, after every node write succeeded.
*/

// Insert adds one key/rid entry to the index.
func (idx *BTreeIndex) Insert(key int32, rid types.RecordID) error {
	split, err := idx.insertNode(idx.rootPage, idx.rootLevel, key, rid)
	if err != nil {
		return err
	}
	if split == nil {
		return nil
	}
	return idx.growRoot(split)
}

// insertNode descends into the subtree rooted at pageNo. level counts down
// to 0 at the leaves. A non-nil splitRecord tells the caller its child
// split and which separator to absorb.
func (idx *BTreeIndex) insertNode(pageNo, level, key int32, rid types.RecordID) (*splitRecord, error) {
	pg, err := idx.pool.FetchPage(idx.fileID, pageNo)
	if err != nil {
		return nil, ioErr(err, "fetch node page")
	}

	if level == 0 {
		return idx.insertLeaf(pg, key, rid)
	}

	node := internalView{pg.Data()}
	keyCount := node.keyCount()

	childIdx := searchInternal(node, key, keyCount)
	child := node.child(childIdx)
	for child == 0 && childIdx > 0 {
		childIdx--
		child = node.child(childIdx)
	}
	if child == 0 {
		idx.pool.UnpinPage(idx.fileID, pageNo, false)
		return nil, ioErr(errInternalNoChild, "descend")
	}

	split, err := idx.insertNode(child, level-1, key, rid)
	if err != nil {
		idx.pool.UnpinPage(idx.fileID, pageNo, false)
		return nil, err
	}
	if split == nil {
		if err := idx.pool.UnpinPage(idx.fileID, pageNo, false); err != nil {
			return nil, ioErr(err, "unpin node page")
		}
		return nil, nil
	}

	if keyCount < internalCapacity {
		insertIntoInternal(node, split.sepKey, split.rightPageNo, keyCount)
		if err := idx.pool.UnpinPage(idx.fileID, pageNo, true); err != nil {
			return nil, ioErr(err, "unpin node page")
		}
		return nil, nil
	}

	rightPg, err := idx.pool.NewPage(idx.fileID)
	if err != nil {
		idx.pool.UnpinPage(idx.fileID, pageNo, false)
		return nil, ioErr(err, "allocate internal page")
	}

	pushed := splitInternal(node, internalView{rightPg.Data()}, split.sepKey, split.rightPageNo)

	idx.logger.Debug("internal split",
		zap.Int32("pageNo", pageNo),
		zap.Int32("rightPageNo", rightPg.PageNo()),
		zap.Int32("pushedKey", pushed))

	up := &splitRecord{sepKey: pushed, rightPageNo: rightPg.PageNo()}
	if err := idx.pool.UnpinPage(idx.fileID, rightPg.PageNo(), true); err != nil {
		idx.pool.UnpinPage(idx.fileID, pageNo, true)
		return nil, ioErr(err, "unpin internal page")
	}
	if err := idx.pool.UnpinPage(idx.fileID, pageNo, true); err != nil {
		return nil, ioErr(err, "unpin internal page")
	}
	return up, nil
}

// insertLeaf absorbs the entry into a pinned leaf or splits it.
func (idx *BTreeIndex) insertLeaf(pg *bufferpool.Page, key int32, rid types.RecordID) (*splitRecord, error) {
	leaf := leafView{pg.Data()}
	count := leaf.count()

	if count < leafCapacity {
		insertIntoLeaf(leaf, key, rid, count)
		if err := idx.pool.UnpinPage(idx.fileID, pg.PageNo(), true); err != nil {
			return nil, ioErr(err, "unpin leaf page")
		}
		return nil, nil
	}

	rightPg, err := idx.pool.NewPage(idx.fileID)
	if err != nil {
		idx.pool.UnpinPage(idx.fileID, pg.PageNo(), false)
		return nil, ioErr(err, "allocate leaf page")
	}

	sep := splitLeaf(leaf, leafView{rightPg.Data()}, key, rid)
	leaf.setRightSibling(rightPg.PageNo())

	idx.logger.Debug("leaf split",
		zap.Int32("pageNo", pg.PageNo()),
		zap.Int32("rightPageNo", rightPg.PageNo()),
		zap.Int32("sepKey", sep))

	up := &splitRecord{sepKey: sep, rightPageNo: rightPg.PageNo()}
	if err := idx.pool.UnpinPage(idx.fileID, rightPg.PageNo(), true); err != nil {
		idx.pool.UnpinPage(idx.fileID, pg.PageNo(), true)
		return nil, ioErr(err, "unpin leaf page")
	}
	if err := idx.pool.UnpinPage(idx.fileID, pg.PageNo(), true); err != nil {
		return nil, ioErr(err, "unpin leaf page")
	}
	return up, nil
}

// growRoot installs a new internal root above the old one. The meta page
// is rewritten only after the new root page is complete, a failure before
// that leaves the old root in place.
func (idx *BTreeIndex) growRoot(split *splitRecord) error {
	rootPg, err := idx.pool.NewPage(idx.fileID)
	if err != nil {
		return ioErr(err, "allocate root page")
	}

	newLevel := idx.rootLevel + 1
	root := internalView{rootPg.Data()}
	root.setLevel(newLevel)
	root.setChild(0, idx.rootPage)
	root.setKey(0, split.sepKey)
	root.setChild(1, split.rightPageNo)

	newRootNo := rootPg.PageNo()
	if err := idx.pool.UnpinPage(idx.fileID, newRootNo, true); err != nil {
		return ioErr(err, "unpin root page")
	}

	metaPg, err := idx.pool.FetchPage(idx.fileID, metaPageNo)
	if err != nil {
		return ioErr(err, "fetch meta page")
	}
	meta := metaView{metaPg.Data()}
	meta.setRootPageID(newRootNo)
	meta.setRootLevel(newLevel)
	if err := idx.pool.UnpinPage(idx.fileID, metaPageNo, true); err != nil {
		return ioErr(err, "unpin meta page")
	}

	idx.logger.Info("root grew",
		zap.Int32("newRoot", newRootNo),
		zap.Int32("level", newLevel))

	idx.rootPage = newRootNo
	idx.rootLevel = newLevel
	return nil
}
