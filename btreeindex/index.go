package btreeindex

import (
	"encoding/binary"
	"fmt"

	"DexDB/diskmanager"
	"DexDB/heapfile"
	"DexDB/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
Lifecycle. The index file is named <relation>.<offset>. Opening an
existing file validates its meta page against the caller, creating a new
one seeds the meta page plus an empty leaf root and bulk-builds from the
relation scan.
*/

// NewBTreeIndex opens or creates the index for one attribute of a
// relation. The relation scanner is only consumed when the index file does
// not exist yet. Returns the index and the name of its file.
func NewBTreeIndex(logger *zap.Logger, relationName string, attrOffset int, attrType types.Datatype, pool PagePool, relation RelationScanner) (*BTreeIndex, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if attrType != types.IntType {
		return nil, "", errors.Wrapf(ErrBadIndexInfo, "unsupported attribute type %s", attrType)
	}
	if len(relationName) >= metaRelationNameLen {
		return nil, "", errors.Wrapf(ErrBadIndexInfo, "relation name %q too long", relationName)
	}

	fileName := fmt.Sprintf("%s.%d", relationName, attrOffset)

	idx := &BTreeIndex{
		pool:       pool,
		fileName:   fileName,
		attrOffset: int32(attrOffset),
		attrType:   attrType,
		logger:     logger,
	}

	fileID, err := pool.OpenFile(fileName)
	switch {
	case err == nil:
		idx.fileID = fileID
		if err := idx.openExisting(relationName); err != nil {
			return nil, "", err
		}
	case errors.Is(err, diskmanager.ErrFileNotFound):
		if err := idx.createNew(relationName, relation); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", ioErr(err, "open index file")
	}

	return idx, fileName, nil
}

// openExisting loads and validates the meta page of an existing index
// file.
func (idx *BTreeIndex) openExisting(relationName string) error {
	pg, err := idx.pool.FetchPage(idx.fileID, metaPageNo)
	if err != nil {
		return ioErr(err, "fetch meta page")
	}
	meta := metaView{pg.Data()}

	name := meta.relationName()
	offset := meta.attrByteOffset()
	attrType := meta.attrType()
	root := meta.rootPageID()
	level := meta.rootLevel()

	if err := idx.pool.UnpinPage(idx.fileID, metaPageNo, false); err != nil {
		return ioErr(err, "unpin meta page")
	}

	if name != relationName || offset != idx.attrOffset || attrType != idx.attrType {
		return errors.Wrapf(ErrBadIndexInfo,
			"index file holds (%s, %d, %s), caller asked (%s, %d, %s)",
			name, offset, attrType, relationName, idx.attrOffset, idx.attrType)
	}
	if root == 0 {
		return errors.Wrap(ErrBadIndexInfo, "meta page has no root")
	}

	idx.rootPage = root
	idx.rootLevel = level

	idx.logger.Info("opened index",
		zap.String("file", idx.fileName),
		zap.Int32("root", root),
		zap.Int32("level", level))

	return nil
}

// createNew seeds the meta page and an empty leaf root, then bulk-builds
// from the relation scan.
func (idx *BTreeIndex) createNew(relationName string, relation RelationScanner) error {
	fileID, err := idx.pool.CreateFile(idx.fileName)
	if err != nil {
		return ioErr(err, "create index file")
	}
	idx.fileID = fileID

	metaPg, err := idx.pool.NewPage(fileID)
	if err != nil {
		return ioErr(err, "allocate meta page")
	}
	rootPg, err := idx.pool.NewPage(fileID)
	if err != nil {
		idx.pool.UnpinPage(fileID, metaPg.PageNo(), false)
		return ioErr(err, "allocate root page")
	}

	meta := metaView{metaPg.Data()}
	meta.setRelationName(relationName)
	meta.setAttrByteOffset(idx.attrOffset)
	meta.setAttrType(idx.attrType)
	meta.setRootPageID(rootPg.PageNo())
	meta.setRootLevel(0)

	idx.rootPage = rootPg.PageNo()
	idx.rootLevel = 0

	if err := idx.pool.UnpinPage(fileID, rootPg.PageNo(), true); err != nil {
		return ioErr(err, "unpin root page")
	}
	if err := idx.pool.UnpinPage(fileID, metaPg.PageNo(), true); err != nil {
		return ioErr(err, "unpin meta page")
	}

	idx.logger.Info("created index",
		zap.String("file", idx.fileName),
		zap.Int32("root", idx.rootPage))

	if relation != nil {
		if err := idx.bulkBuild(relation); err != nil {
			return err
		}
	}

	if err := idx.pool.FlushFile(fileID); err != nil {
		return ioErr(err, "flush index file")
	}
	return nil
}

// bulkBuild streams every record of the relation through Insert, reading
// the key at the attribute byte offset.
func (idx *BTreeIndex) bulkBuild(relation RelationScanner) error {
	defer relation.Close()

	n := 0
	for {
		rid, record, err := relation.Next()
		if errors.Is(err, heapfile.ErrEndOfFile) {
			break
		}
		if err != nil {
			return ioErr(err, "scan relation")
		}
		if int(idx.attrOffset)+4 > len(record) {
			return ioErr(errors.Errorf("record of %d bytes has no key at offset %d", len(record), idx.attrOffset), "extract key")
		}
		key := int32(binary.LittleEndian.Uint32(record[idx.attrOffset:]))
		if err := idx.Insert(key, rid); err != nil {
			return err
		}
		n++
	}

	idx.logger.Info("bulk build finished",
		zap.String("file", idx.fileName),
		zap.Int("records", n))

	return nil
}

// FileName returns the name of the backing index file.
func (idx *BTreeIndex) FileName() string {
	return idx.fileName
}

// Height returns the level of the root, 0 while the root is a leaf.
func (idx *BTreeIndex) Height() int32 {
	return idx.rootLevel
}

// Close ends any live scan, flushes the index file's dirty pages and
// closes it. The file itself is kept for reopening.
func (idx *BTreeIndex) Close() error {
	idx.releaseScan()

	if err := idx.pool.FlushFile(idx.fileID); err != nil {
		return ioErr(err, "flush index file")
	}
	if err := idx.pool.CloseFile(idx.fileID); err != nil {
		return ioErr(err, "close index file")
	}

	idx.logger.Info("closed index", zap.String("file", idx.fileName))
	return nil
}
