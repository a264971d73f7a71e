package diskmanager

import (
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// ############################################# FILE DESCRIPTOR ###########################################

// FileDescriptor represents an open file managed by the disk manager
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageNo int32 // next local page number to hand out
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager manages all disk I/O operations and file handles.
// Page ID encoding:
// globalPageID = int64(fileID) << 32 | localPageNum
// fileIDs are never reused within one manager, so a closed file's cache
// entries can never alias a reopened one.
type DiskManager struct {
	files      map[uint32]*FileDescriptor // fileID -> file descriptor
	byPath     map[string]uint32          // filePath -> fileID for already-open lookups
	nextFileID uint32
	blockCache *ristretto.Cache[int64, []byte] // page bytes keyed by global page id
	logger     *zap.Logger
	mu         sync.RWMutex
}
