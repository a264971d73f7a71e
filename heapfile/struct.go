package heapfile

import (
	"sync"

	"go.uber.org/zap"
)

// ############################################# ---- PAGE ----- #############################################

const (
	// PageHeaderSize is the fixed header at the start of a record page.
	PageHeaderSize = 8
	// SlotSize is one slot directory entry (offset: 2B, length: 2B).
	SlotSize = 4
)

// PageHeader is the header for a single slotted record page.
type PageHeader struct {
	FreePtr   uint16 // ptr to the next free location, where insertion can be done
	SlotCount uint16 // number of slots in the slot directory
}

// Slot represents an entry in the slot directory at the bottom of the page.
// Stored at the end of the payload region, grows backward.
type Slot struct {
	Offset uint16 // offset from start of page to record data
	Length uint16 // length of the record data
}

// Store is the page-file surface the heap file drives. Satisfied by both
// the on-disk and the in-memory disk managers.
type Store interface {
	OpenFile(filePath string) (uint32, error)
	CreateFile(filePath string) (uint32, error)
	ReadPage(fileID uint32, pageNo int32) ([]byte, error)
	WritePage(fileID uint32, pageNo int32, data []byte) error
	AllocatePage(fileID uint32) (int32, error)
	Sync(fileID uint32) error
	CloseFile(fileID uint32) error
	PageCount(fileID uint32) (int32, error)
}

// HeapFile is a relation stored as slotted record pages. Page 0 is a
// reserved header page, record pages start at 1 so a zero page number in a
// record id always means "unused".
type HeapFile struct {
	store    Store
	fileID   uint32
	filePath string
	lastPage int32 // highest record page, 0 while the file has none
	logger   *zap.Logger
	mu       sync.Mutex
}
