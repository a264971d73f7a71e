package heapfile

import (
	"DexDB/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
HeapFile stores variable-length records in slotted pages and hands out
RecordIDs. The FileScan cursor streams every record back in page order,
which is what the index bulk build consumes.
*/

// CreateHeapFile creates a new relation file with a reserved header page.
func CreateHeapFile(store Store, filePath string, logger *zap.Logger) (*HeapFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fileID, err := store.CreateFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "create heap file %s", filePath)
	}

	// Page 0 is the header page, record pages start at 1.
	if _, err := store.AllocatePage(fileID); err != nil {
		return nil, errors.Wrap(err, "allocate header page")
	}

	logger.Info("created heap file", zap.String("path", filePath))

	return &HeapFile{
		store:    store,
		fileID:   fileID,
		filePath: filePath,
		lastPage: 0,
		logger:   logger,
	}, nil
}

// OpenHeapFile opens an existing relation file.
func OpenHeapFile(store Store, filePath string, logger *zap.Logger) (*HeapFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fileID, err := store.OpenFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open heap file %s", filePath)
	}

	count, err := store.PageCount(fileID)
	if err != nil {
		return nil, errors.Wrap(err, "page count")
	}
	if count < 1 {
		return nil, errors.Errorf("heap file %s has no header page", filePath)
	}

	return &HeapFile{
		store:    store,
		fileID:   fileID,
		filePath: filePath,
		lastPage: count - 1,
		logger:   logger,
	}, nil
}

// Insert appends a record and returns its record id.
func (hf *HeapFile) Insert(record []byte) (types.RecordID, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if len(record) == 0 {
		return types.RecordID{}, errors.New("empty record")
	}
	if len(record)+SlotSize > types.PayloadSize-PageHeaderSize {
		return types.RecordID{}, errors.Errorf("record of %d bytes does not fit in a page", len(record))
	}

	pageNo := hf.lastPage
	var data []byte

	if pageNo >= 1 {
		var err error
		data, err = hf.store.ReadPage(hf.fileID, pageNo)
		if err != nil {
			return types.RecordID{}, errors.Wrapf(err, "read page %d", pageNo)
		}
		header := readPageHeader(data)
		if freeSpace(header) < len(record)+SlotSize {
			data = nil
		}
	}

	if data == nil {
		newPage, err := hf.store.AllocatePage(hf.fileID)
		if err != nil {
			return types.RecordID{}, errors.Wrap(err, "allocate record page")
		}
		pageNo = newPage
		data = make([]byte, types.PageSize)
		initRecordPage(data)
	}

	header := readPageHeader(data)
	offset := header.FreePtr
	copy(data[offset:], record)
	header.FreePtr = offset + uint16(len(record))
	writePageHeader(data, header)
	slotIndex := addSlot(data, offset, uint16(len(record)))

	if err := hf.store.WritePage(hf.fileID, pageNo, data); err != nil {
		return types.RecordID{}, errors.Wrapf(err, "write page %d", pageNo)
	}
	if pageNo > hf.lastPage {
		hf.lastPage = pageNo
	}

	hf.logger.Debug("inserted record",
		zap.Int32("pageNo", pageNo),
		zap.Uint16("slot", slotIndex),
		zap.Int("bytes", len(record)))

	return types.RecordID{PageNumber: pageNo, SlotNumber: int32(slotIndex)}, nil
}

// ReadRecord returns a copy of the record at the given id.
func (hf *HeapFile) ReadRecord(rid types.RecordID) ([]byte, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if rid.PageNumber < 1 || rid.PageNumber > hf.lastPage {
		return nil, errors.Errorf("record page %d out of range", rid.PageNumber)
	}

	data, err := hf.store.ReadPage(hf.fileID, rid.PageNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "read page %d", rid.PageNumber)
	}

	slot := readSlot(data, uint16(rid.SlotNumber))
	if slot == nil || slot.Length == 0 {
		return nil, errors.Errorf("no record at slot %d of page %d", rid.SlotNumber, rid.PageNumber)
	}

	out := make([]byte, slot.Length)
	copy(out, data[slot.Offset:slot.Offset+slot.Length])
	return out, nil
}

// FilePath returns the path the heap file was opened with.
func (hf *HeapFile) FilePath() string {
	return hf.filePath
}

// Close syncs and closes the underlying file.
func (hf *HeapFile) Close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hf.store.Sync(hf.fileID); err != nil {
		return errors.Wrap(err, "sync heap file")
	}
	return errors.Wrap(hf.store.CloseFile(hf.fileID), "close heap file")
}
