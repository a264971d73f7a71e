package heapfile

import (
	"DexDB/types"

	"github.com/pkg/errors"
)

// ErrEndOfFile signals that a scan has consumed every record.
var ErrEndOfFile = errors.New("end of file")

// FileScan is a sequential cursor over all records of a heap file, in page
// then slot order.
type FileScan struct {
	hf       *HeapFile
	pageNo   int32
	slot     uint16
	pageData []byte
	done     bool
}

// NewFileScan returns a cursor positioned before the first record.
func (hf *HeapFile) NewFileScan() *FileScan {
	return &FileScan{hf: hf, pageNo: 0}
}

// Next returns the next record and its id, or ErrEndOfFile when the scan
// is exhausted.
func (fs *FileScan) Next() (types.RecordID, []byte, error) {
	if fs.done {
		return types.RecordID{}, nil, ErrEndOfFile
	}

	for {
		if fs.pageData == nil {
			fs.pageNo++
			if fs.pageNo > fs.hf.lastPage {
				fs.done = true
				return types.RecordID{}, nil, ErrEndOfFile
			}
			data, err := fs.hf.store.ReadPage(fs.hf.fileID, fs.pageNo)
			if err != nil {
				return types.RecordID{}, nil, errors.Wrapf(err, "read page %d", fs.pageNo)
			}
			fs.pageData = data
			fs.slot = 0
		}

		header := readPageHeader(fs.pageData)
		if fs.slot >= header.SlotCount {
			fs.pageData = nil
			continue
		}

		slot := readSlot(fs.pageData, fs.slot)
		rid := types.RecordID{PageNumber: fs.pageNo, SlotNumber: int32(fs.slot)}
		fs.slot++

		if slot == nil || slot.Length == 0 {
			continue
		}

		out := make([]byte, slot.Length)
		copy(out, fs.pageData[slot.Offset:slot.Offset+slot.Length])
		return rid, out, nil
	}
}

// Close releases the cursor.
func (fs *FileScan) Close() error {
	fs.pageData = nil
	fs.done = true
	return nil
}
