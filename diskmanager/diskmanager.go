package diskmanager

import (
	"encoding/binary"
	"os"

	"DexDB/types"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrFileNotFound is returned by OpenFile when the path does not exist on
// disk. Callers branch on it to decide between open-existing and create-new.
var ErrFileNotFound = errors.New("file not found")

const (
	cacheNumCounters = 10_000
	cacheMaxBytes    = 32 << 20
	cacheBufferItems = 64
)

// NewDiskManager returns a disk manager with an empty file table and a
// ristretto block cache in front of the page files.
func NewDiskManager(logger *zap.Logger) (*DiskManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxBytes,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create block cache")
	}
	return &DiskManager{
		files:      make(map[uint32]*FileDescriptor),
		byPath:     make(map[string]uint32),
		nextFileID: 1,
		blockCache: cache,
		logger:     logger,
	}, nil
}

// GlobalPageID encodes a (fileID, localPageNum) pair into the global page
// id space shared with the block cache.
func GlobalPageID(fileID uint32, pageNo int32) int64 {
	return int64(fileID)<<32 | int64(uint32(pageNo))
}

// OpenFile opens an existing page file and returns its file ID. A missing
// path reports ErrFileNotFound so callers can fall back to CreateFile.
func (dm *DiskManager) OpenFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if id, ok := dm.byPath[filePath]; ok {
		return id, nil
	}

	file, err := os.OpenFile(filePath, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Wrapf(ErrFileNotFound, "%s", filePath)
		}
		return 0, errors.Wrapf(err, "open file %s", filePath)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, errors.Wrapf(err, "stat file %s", filePath)
	}

	numPages := int32(stat.Size() / int64(types.PageSize))

	fileID := dm.nextFileID
	dm.nextFileID++

	dm.files[fileID] = &FileDescriptor{
		FileID:     fileID,
		FilePath:   filePath,
		File:       file,
		NextPageNo: numPages,
	}
	dm.byPath[filePath] = fileID

	dm.logger.Info("opened file",
		zap.String("path", filePath),
		zap.Uint32("fileID", fileID),
		zap.Int32("pages", numPages))

	return fileID, nil
}

// CreateFile creates a new, empty page file. It fails if the path already
// exists.
func (dm *DiskManager) CreateFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, ok := dm.byPath[filePath]; ok {
		return 0, errors.Errorf("file %s is already open", filePath)
	}

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, errors.Wrapf(err, "create file %s", filePath)
	}

	fileID := dm.nextFileID
	dm.nextFileID++

	dm.files[fileID] = &FileDescriptor{
		FileID:     fileID,
		FilePath:   filePath,
		File:       file,
		NextPageNo: 0,
	}
	dm.byPath[filePath] = fileID

	dm.logger.Info("created file",
		zap.String("path", filePath),
		zap.Uint32("fileID", fileID))

	return fileID, nil
}

// ReadPage reads one page, consulting the block cache before touching disk.
// The returned slice is a private copy of the page.
func (dm *DiskManager) ReadPage(fileID uint32, pageNo int32) ([]byte, error) {
	gid := GlobalPageID(fileID, pageNo)
	if cached, ok := dm.blockCache.Get(gid); ok {
		out := make([]byte, types.PageSize)
		copy(out, cached)
		return out, nil
	}

	fd, err := dm.descriptor(fileID)
	if err != nil {
		return nil, err
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, errors.Errorf("file %d is closed", fileID)
	}
	if pageNo < 0 || pageNo >= fd.NextPageNo {
		return nil, errors.Errorf("page %d out of range for file %d", pageNo, fileID)
	}

	data := make([]byte, types.PageSize)
	offset := int64(pageNo) * int64(types.PageSize)
	if _, err := fd.File.ReadAt(data, offset); err != nil {
		return nil, errors.Wrapf(err, "read page %d of file %d", pageNo, fileID)
	}

	if err := verifyChecksum(data); err != nil {
		return nil, errors.Wrapf(err, "page %d of file %d", pageNo, fileID)
	}

	dm.logger.Debug("page read",
		zap.Uint32("fileID", fileID),
		zap.Int32("pageNo", pageNo))

	cacheCopy := make([]byte, types.PageSize)
	copy(cacheCopy, data)
	dm.blockCache.Set(gid, cacheCopy, types.PageSize)

	return data, nil
}

// WritePage writes one page at its page-size offset, stamping the checksum
// trailer and refreshing the block cache.
func (dm *DiskManager) WritePage(fileID uint32, pageNo int32, data []byte) error {
	if len(data) != types.PageSize {
		return errors.Errorf("page data size %d does not match page size %d", len(data), types.PageSize)
	}

	fd, err := dm.descriptor(fileID)
	if err != nil {
		return err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return errors.Errorf("file %d is closed", fileID)
	}

	stampChecksum(data)

	offset := int64(pageNo) * int64(types.PageSize)
	if _, err := fd.File.WriteAt(data, offset); err != nil {
		return errors.Wrapf(err, "write page %d of file %d", pageNo, fileID)
	}
	if pageNo >= fd.NextPageNo {
		fd.NextPageNo = pageNo + 1
	}

	dm.logger.Debug("page write",
		zap.Uint32("fileID", fileID),
		zap.Int32("pageNo", pageNo))

	// A Set for a key the cache has not admitted yet is applied
	// asynchronously and is ignored if an older value of the same key is
	// admitted first, so the old entry is deleted before the Set and the
	// update is waited for.
	gid := GlobalPageID(fileID, pageNo)
	cacheCopy := make([]byte, types.PageSize)
	copy(cacheCopy, data)
	dm.blockCache.Del(gid)
	dm.blockCache.Set(gid, cacheCopy, types.PageSize)
	dm.blockCache.Wait()

	return nil
}

// AllocatePage appends a zeroed page to the file and returns its local page
// number. The zero checksum trailer marks the page as never written, so a
// read before the first real write is not checksum-verified.
func (dm *DiskManager) AllocatePage(fileID uint32) (int32, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return 0, errors.Errorf("file %d is closed", fileID)
	}

	pageNo := fd.NextPageNo
	fd.NextPageNo++

	zero := make([]byte, types.PageSize)
	offset := int64(pageNo) * int64(types.PageSize)
	if _, err := fd.File.WriteAt(zero, offset); err != nil {
		fd.NextPageNo = pageNo
		return 0, errors.Wrapf(err, "allocate page %d of file %d", pageNo, fileID)
	}

	return pageNo, nil
}

// PageCount returns the number of pages currently allocated in a file.
func (dm *DiskManager) PageCount(fileID uint32) (int32, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageNo, nil
}

// Sync flushes a file's buffers to disk.
func (dm *DiskManager) Sync(fileID uint32) error {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return err
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return errors.Errorf("file %d is closed", fileID)
	}
	if err := fd.File.Sync(); err != nil {
		return errors.Wrapf(err, "sync file %d", fileID)
	}
	return nil
}

// CloseFile syncs and closes a specific file. A later OpenFile of the same
// path is handed a fresh fileID, so stale cache entries of the closed file
// are never served again.
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return errors.Errorf("file %d not found", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return nil
	}

	if err := fd.File.Sync(); err != nil {
		return errors.Wrapf(err, "sync before close of file %d", fileID)
	}
	if err := fd.File.Close(); err != nil {
		return errors.Wrapf(err, "close file %d", fileID)
	}

	fd.File = nil
	delete(dm.files, fileID)
	delete(dm.byPath, fd.FilePath)

	dm.logger.Info("closed file",
		zap.String("path", fd.FilePath),
		zap.Uint32("fileID", fileID))

	return nil
}

// Close closes all open files and releases the block cache.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var lastErr error
	for fileID, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				lastErr = err
			}
			if err := fd.File.Close(); err != nil {
				lastErr = err
			}
			fd.File = nil
		}
		fd.mu.Unlock()
		delete(dm.files, fileID)
		delete(dm.byPath, fd.FilePath)
	}

	dm.blockCache.Close()
	return lastErr
}

func (dm *DiskManager) descriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return nil, errors.Errorf("file %d not found", fileID)
	}
	return fd, nil
}

// stampChecksum writes the xxhash of the page payload into the trailer.
// A computed hash of zero is nudged to 1 so zero stays the never-written
// sentinel.
func stampChecksum(data []byte) {
	h := xxhash.Sum64(data[:types.PayloadSize])
	if h == 0 {
		h = 1
	}
	binary.LittleEndian.PutUint64(data[types.PayloadSize:], h)
}

// verifyChecksum checks the trailer against the payload. A zero trailer
// means the page was allocated but never written, which is not an error.
func verifyChecksum(data []byte) error {
	stored := binary.LittleEndian.Uint64(data[types.PayloadSize:])
	if stored == 0 {
		return nil
	}
	h := xxhash.Sum64(data[:types.PayloadSize])
	if h == 0 {
		h = 1
	}
	if h != stored {
		return errors.Errorf("checksum mismatch: stored %x computed %x", stored, h)
	}
	return nil
}
