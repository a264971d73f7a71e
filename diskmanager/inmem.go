package diskmanager

import (
	"sync"

	"DexDB/types"

	"github.com/pkg/errors"
)

// InMemDiskManager keeps page files in memory. It mirrors the DiskManager
// surface so tests can run the full stack without touching the filesystem.
type InMemDiskManager struct {
	files      map[uint32]*memFile
	byPath     map[string]uint32
	nextFileID uint32
	mu         sync.RWMutex
}

type memFile struct {
	path  string
	pages [][]byte
}

func NewInMemDiskManager() *InMemDiskManager {
	return &InMemDiskManager{
		files:      make(map[uint32]*memFile),
		byPath:     make(map[string]uint32),
		nextFileID: 1,
	}
}

func (dm *InMemDiskManager) OpenFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if id, ok := dm.byPath[filePath]; ok {
		return id, nil
	}
	return 0, errors.Wrapf(ErrFileNotFound, "%s", filePath)
}

func (dm *InMemDiskManager) CreateFile(filePath string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, ok := dm.byPath[filePath]; ok {
		return 0, errors.Errorf("file %s already exists", filePath)
	}

	fileID := dm.nextFileID
	dm.nextFileID++
	dm.files[fileID] = &memFile{path: filePath}
	dm.byPath[filePath] = fileID
	return fileID, nil
}

func (dm *InMemDiskManager) ReadPage(fileID uint32, pageNo int32) ([]byte, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	f, err := dm.file(fileID)
	if err != nil {
		return nil, err
	}
	if pageNo < 0 || int(pageNo) >= len(f.pages) {
		return nil, errors.Errorf("page %d out of range for file %d", pageNo, fileID)
	}
	out := make([]byte, types.PageSize)
	copy(out, f.pages[pageNo])
	return out, nil
}

func (dm *InMemDiskManager) WritePage(fileID uint32, pageNo int32, data []byte) error {
	if len(data) != types.PageSize {
		return errors.Errorf("page data size %d does not match page size %d", len(data), types.PageSize)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	f, err := dm.file(fileID)
	if err != nil {
		return err
	}
	for int(pageNo) >= len(f.pages) {
		f.pages = append(f.pages, make([]byte, types.PageSize))
	}
	copy(f.pages[pageNo], data)
	return nil
}

func (dm *InMemDiskManager) AllocatePage(fileID uint32) (int32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	f, err := dm.file(fileID)
	if err != nil {
		return 0, err
	}
	f.pages = append(f.pages, make([]byte, types.PageSize))
	return int32(len(f.pages) - 1), nil
}

func (dm *InMemDiskManager) PageCount(fileID uint32) (int32, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	f, err := dm.file(fileID)
	if err != nil {
		return 0, err
	}
	return int32(len(f.pages)), nil
}

func (dm *InMemDiskManager) Sync(fileID uint32) error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	_, err := dm.file(fileID)
	return err
}

// CloseFile only checks that the file exists. The file stays registered
// under its path with its pages, so a later OpenFile on the same path sees
// the persisted state, as with the on-disk manager.
func (dm *InMemDiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	_, err := dm.file(fileID)
	return err
}

func (dm *InMemDiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.files = make(map[uint32]*memFile)
	dm.byPath = make(map[string]uint32)
	return nil
}

func (dm *InMemDiskManager) file(fileID uint32) (*memFile, error) {
	f, exists := dm.files[fileID]
	if !exists {
		return nil, errors.Errorf("file %d not found", fileID)
	}
	return f, nil
}
