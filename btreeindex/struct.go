package btreeindex

import (
	"DexDB/bufferpool"
	"DexDB/types"

	"go.uber.org/zap"
)

const (
	// leafCapacity is the number of key/rid pairs a leaf holds.
	leafCapacity = 340
	// internalCapacity is the number of separator keys an internal node
	// holds. It always has one more child than keys.
	internalCapacity = 509

	// metaPageNo is the fixed page of the index file header.
	metaPageNo = 0
)

// PagePool is the buffer pool surface the index drives. All index page
// access is pin/unpin through this interface.
type PagePool interface {
	OpenFile(filePath string) (uint32, error)
	CreateFile(filePath string) (uint32, error)
	FetchPage(fileID uint32, pageNo int32) (*bufferpool.Page, error)
	NewPage(fileID uint32) (*bufferpool.Page, error)
	UnpinPage(fileID uint32, pageNo int32, dirty bool) error
	FlushFile(fileID uint32) error
	CloseFile(fileID uint32) error
}

// RelationScanner streams the records of a relation for the bulk build.
// The heap file FileScan satisfies it.
type RelationScanner interface {
	Next() (types.RecordID, []byte, error)
	Close() error
}

// BTreeIndex is a single-attribute secondary index over a relation,
// persisted as one page file. Page 0 is the meta page, every other page is
// a leaf or internal node.
type BTreeIndex struct {
	pool       PagePool
	fileID     uint32
	fileName   string
	attrOffset int32
	attrType   types.Datatype

	// root location, mirrored from the meta page
	rootPage int32
	// rootLevel is 0 while the root is a leaf, otherwise the root's level
	rootLevel int32

	scan   scanCursor
	logger *zap.Logger
}

// splitRecord carries a child split up to its parent during insertion.
type splitRecord struct {
	sepKey      int32
	rightPageNo int32
}
