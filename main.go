// Demo driver: builds a small relation in memory, indexes its key
// attribute and runs a couple of range scans against the index.
package main

import (
	"encoding/binary"
	"fmt"
	"log"

	"DexDB/btreeindex"
	"DexDB/bufferpool"
	"DexDB/diskmanager"
	"DexDB/heapfile"
	"DexDB/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	logger := zap.NewNop()

	dm := diskmanager.NewInMemDiskManager()
	pool := bufferpool.NewBufferPool(32, dm, logger)

	scan := &sliceScanner{}
	record := make([]byte, 16)
	for i := 0; i < 500; i++ {
		binary.LittleEndian.PutUint32(record[0:], uint32(i*3))
		rec := make([]byte, len(record))
		copy(rec, record)
		scan.records = append(scan.records, rec)
		scan.rids = append(scan.rids, types.RecordID{PageNumber: int32(i/100 + 1), SlotNumber: int32(i % 100)})
	}

	idx, fileName, err := btreeindex.NewBTreeIndex(logger, "demo", 0, types.IntType, pool, scan)
	if err != nil {
		log.Fatalf("build index: %v", err)
	}
	fmt.Printf("built index %s over %d records\n", fileName, len(scan.records))

	runScan(idx, 30, types.GTE, 60, types.LTE)
	runScan(idx, 30, types.GT, 60, types.LT)

	if err := idx.Close(); err != nil {
		log.Fatalf("close index: %v", err)
	}
}

func runScan(idx *btreeindex.BTreeIndex, lo int32, loOp types.ScanOp, hi int32, hiOp types.ScanOp) {
	fmt.Printf("scan %s %d .. %s %d:", loOp, lo, hiOp, hi)
	if err := idx.BeginScan(lo, loOp, hi, hiOp); err != nil {
		fmt.Printf(" %v\n", err)
		return
	}
	n := 0
	for {
		rid, err := idx.NextScan()
		if errors.Is(err, btreeindex.ErrScanCompleted) {
			break
		}
		if err != nil {
			log.Fatalf("scan: %v", err)
		}
		fmt.Printf(" (%d,%d)", rid.PageNumber, rid.SlotNumber)
		n++
	}
	fmt.Printf("  [%d matches]\n", n)
	if err := idx.EndScan(); err != nil && !errors.Is(err, btreeindex.ErrScanNotStarted) {
		log.Fatalf("end scan: %v", err)
	}
}

// sliceScanner feeds a fixed record set to the index bulk build.
type sliceScanner struct {
	records [][]byte
	rids    []types.RecordID
	pos     int
}

func (s *sliceScanner) Next() (types.RecordID, []byte, error) {
	if s.pos >= len(s.records) {
		return types.RecordID{}, nil, heapfile.ErrEndOfFile
	}
	rid, rec := s.rids[s.pos], s.records[s.pos]
	s.pos++
	return rid, rec, nil
}

func (s *sliceScanner) Close() error { return nil }
