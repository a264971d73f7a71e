package bufferpool

import (
	"DexDB/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
The buffer pool works on LRU based caching.
It holds the disk manager for loading missed pages and for writing dirty
frames back, on eviction, on FlushFile and on CloseFile.
*/

// NewBufferPool creates a buffer pool with the given frame capacity.
func NewBufferPool(capacity int, disk DiskManager, logger *zap.Logger) *BufferPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BufferPool{
		frames:      make(map[int64]*Page, capacity),
		capacity:    capacity,
		disk:        disk,
		accessOrder: make([]int64, 0, capacity),
		logger:      logger,
	}
}

// OpenFile opens an existing file through the underlying disk manager.
func (bp *BufferPool) OpenFile(filePath string) (uint32, error) {
	return bp.disk.OpenFile(filePath)
}

// CreateFile creates a new file through the underlying disk manager.
func (bp *BufferPool) CreateFile(filePath string) (uint32, error) {
	return bp.disk.CreateFile(filePath)
}

// FetchPage returns a pinned frame holding the requested page, loading it
// from disk on a miss.
func (bp *BufferPool) FetchPage(fileID uint32, pageNo int32) (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := pageKey(fileID, pageNo)
	if pg, exists := bp.frames[key]; exists {
		bp.logger.Debug("pool hit",
			zap.Uint32("fileID", fileID),
			zap.Int32("pageNo", pageNo),
			zap.Int("pinCount", pg.pinCount))
		bp.updateAccessOrder(key)
		pg.pinCount++
		return pg, nil
	}

	bp.logger.Debug("pool miss",
		zap.Uint32("fileID", fileID),
		zap.Int32("pageNo", pageNo))

	data, err := bp.disk.ReadPage(fileID, pageNo)
	if err != nil {
		return nil, errors.Wrapf(err, "read page %d of file %d", pageNo, fileID)
	}

	pg := &Page{
		fileID: fileID,
		pageNo: pageNo,
		data:   data,
	}
	if err := bp.addFrame(key, pg); err != nil {
		return nil, err
	}

	pg.pinCount = 1
	return pg, nil
}

// NewPage allocates a fresh page in the file and returns it pinned. The
// frame starts zeroed and dirty so it reaches disk even if never modified.
func (bp *BufferPool) NewPage(fileID uint32) (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pageNo, err := bp.disk.AllocatePage(fileID)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate page in file %d", fileID)
	}

	pg := &Page{
		fileID:  fileID,
		pageNo:  pageNo,
		data:    make([]byte, types.PageSize),
		isDirty: true,
	}
	key := pageKey(fileID, pageNo)
	if err := bp.addFrame(key, pg); err != nil {
		return nil, err
	}

	pg.pinCount = 1
	return pg, nil
}

// UnpinPage releases one pin on a page, marking the frame dirty when the
// caller modified it.
func (bp *BufferPool) UnpinPage(fileID uint32, pageNo int32, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.frames[pageKey(fileID, pageNo)]
	if !exists {
		return errors.Errorf("page %d of file %d not in buffer pool", pageNo, fileID)
	}
	if pg.pinCount <= 0 {
		return errors.Errorf("page %d of file %d is not pinned", pageNo, fileID)
	}

	pg.pinCount--
	if dirty {
		pg.isDirty = true
	}
	return nil
}

// FlushFile writes all dirty frames of one file back to disk and syncs it.
// Frames stay resident and keep their pins.
func (bp *BufferPool) FlushFile(fileID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if err := bp.flushFileLocked(fileID); err != nil {
		return err
	}
	return errors.Wrapf(bp.disk.Sync(fileID), "sync file %d", fileID)
}

// FlushAll writes every dirty frame in the pool back to disk.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, pg := range bp.frames {
		if !pg.isDirty {
			continue
		}
		if err := bp.disk.WritePage(pg.fileID, pg.pageNo, pg.data); err != nil {
			return errors.Wrapf(err, "flush page %d of file %d", pg.pageNo, pg.fileID)
		}
		pg.isDirty = false
	}
	return nil
}

// CloseFile flushes the file's dirty frames, drops all of its frames from
// the pool and closes it in the disk manager.
func (bp *BufferPool) CloseFile(fileID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if err := bp.flushFileLocked(fileID); err != nil {
		return err
	}

	for key, pg := range bp.frames {
		if pg.fileID != fileID {
			continue
		}
		delete(bp.frames, key)
		bp.removeFromAccessOrder(key)
	}

	return errors.Wrapf(bp.disk.CloseFile(fileID), "close file %d", fileID)
}

func (bp *BufferPool) flushFileLocked(fileID uint32) error {
	for _, pg := range bp.frames {
		if pg.fileID != fileID || !pg.isDirty {
			continue
		}
		bp.logger.Debug("flush",
			zap.Uint32("fileID", pg.fileID),
			zap.Int32("pageNo", pg.pageNo))
		if err := bp.disk.WritePage(pg.fileID, pg.pageNo, pg.data); err != nil {
			return errors.Wrapf(err, "flush page %d of file %d", pg.pageNo, pg.fileID)
		}
		pg.isDirty = false
	}
	return nil
}

// addFrame inserts a frame, evicting the LRU unpinned frame when the pool
// is at capacity. Assumes the pool lock is held.
func (bp *BufferPool) addFrame(key int64, pg *Page) error {
	if len(bp.frames) >= bp.capacity {
		if err := bp.evictLRU(); err != nil {
			return err
		}
	}
	bp.frames[key] = pg
	bp.updateAccessOrder(key)
	return nil
}

// evictLRU evicts the least recently used unpinned frame, writing it back
// first when dirty. Assumes the pool lock is held.
func (bp *BufferPool) evictLRU() error {
	for i := 0; i < len(bp.accessOrder); i++ {
		key := bp.accessOrder[i]
		pg, exists := bp.frames[key]
		if !exists {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}
		if pg.pinCount > 0 {
			continue
		}

		bp.logger.Debug("evict",
			zap.Uint32("fileID", pg.fileID),
			zap.Int32("pageNo", pg.pageNo),
			zap.Bool("dirty", pg.isDirty))

		if pg.isDirty {
			if err := bp.disk.WritePage(pg.fileID, pg.pageNo, pg.data); err != nil {
				return errors.Wrapf(err, "write page %d of file %d during eviction", pg.pageNo, pg.fileID)
			}
			pg.isDirty = false
		}

		delete(bp.frames, key)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		return nil
	}

	return errors.New("all pages are pinned, cannot evict")
}

// updateAccessOrder moves a frame to the most recently used position.
// Assumes the pool lock is held.
func (bp *BufferPool) updateAccessOrder(key int64) {
	bp.removeFromAccessOrder(key)
	bp.accessOrder = append(bp.accessOrder, key)
}

func (bp *BufferPool) removeFromAccessOrder(key int64) {
	for i, id := range bp.accessOrder {
		if id == key {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			return
		}
	}
}
