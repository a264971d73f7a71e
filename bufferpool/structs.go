package bufferpool

import (
	"sync"

	"go.uber.org/zap"
)

// ############################################# PAGE FRAME ###############################################

// Page is a pinned frame handed out by the buffer pool. The data slice is
// the frame itself, callers mutate it in place and report dirtiness on
// unpin.
type Page struct {
	fileID   uint32
	pageNo   int32
	data     []byte
	pinCount int
	isDirty  bool
}

// Data returns the frame bytes backing this page.
func (p *Page) Data() []byte { return p.data }

// PageNo returns the page's local page number within its file.
func (p *Page) PageNo() int32 { return p.pageNo }

// FileID returns the id of the file the page belongs to.
func (p *Page) FileID() uint32 { return p.fileID }

// ############################################# BUFFER POOL #############################################

// DiskManager is the storage surface the buffer pool drives. Satisfied by
// both the on-disk and the in-memory disk managers.
type DiskManager interface {
	OpenFile(filePath string) (uint32, error)
	CreateFile(filePath string) (uint32, error)
	ReadPage(fileID uint32, pageNo int32) ([]byte, error)
	WritePage(fileID uint32, pageNo int32, data []byte) error
	AllocatePage(fileID uint32) (int32, error)
	Sync(fileID uint32) error
	CloseFile(fileID uint32) error
}

// BufferPool manages cached page frames in memory with LRU eviction.
// Only unpinned frames are eviction candidates. Frames are keyed by
// int64(fileID)<<32 | pageNo, the same encoding the disk manager uses.
type BufferPool struct {
	frames      map[int64]*Page
	capacity    int
	disk        DiskManager
	accessOrder []int64 // LRU tracking: most recently used at end
	logger      *zap.Logger
	mu          sync.Mutex
}

// BufferPoolStats is a snapshot of pool occupancy.
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}

func pageKey(fileID uint32, pageNo int32) int64 {
	return int64(fileID)<<32 | int64(uint32(pageNo))
}
