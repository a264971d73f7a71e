// Seed program: creates a sample relation heap file and builds the index
// over its first attribute.
// Run: go run ./cmd/seed
// Then inspect: go run ./cmd/inspect_idx data/employees.0
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"DexDB/btreeindex"
	"DexDB/bufferpool"
	"DexDB/diskmanager"
	"DexDB/heapfile"
	"DexDB/types"

	"go.uber.org/zap"
)

const (
	baseDir    = "data"
	relation   = "employees"
	numRecords = 2000
	poolFrames = 64
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	dm, err := diskmanager.NewDiskManager(logger)
	if err != nil {
		log.Fatalf("disk manager: %v", err)
	}
	defer dm.Close()

	pool := bufferpool.NewBufferPool(poolFrames, dm, logger)

	heapPath := filepath.Join(baseDir, relation+".rel")
	hf, err := heapfile.CreateHeapFile(dm, heapPath, logger)
	if err != nil {
		log.Fatalf("create heap file: %v", err)
	}

	// Each record: key i32 | salary i32 | padding. Keys are shuffled so the
	// index build sees out-of-order insertion.
	keys := rand.Perm(numRecords)
	record := make([]byte, 32)
	for _, k := range keys {
		binary.LittleEndian.PutUint32(record[0:], uint32(k))
		binary.LittleEndian.PutUint32(record[4:], uint32(30000+k*10))
		if _, err := hf.Insert(record); err != nil {
			log.Fatalf("insert record: %v", err)
		}
	}

	indexRelation := filepath.Join(baseDir, relation)
	idx, fileName, err := btreeindex.NewBTreeIndex(logger, indexRelation, 0, types.IntType, pool, hf.NewFileScan())
	if err != nil {
		log.Fatalf("build index: %v", err)
	}

	if err := idx.Close(); err != nil {
		log.Fatalf("close index: %v", err)
	}
	if err := hf.Close(); err != nil {
		log.Fatalf("close heap file: %v", err)
	}

	fmt.Printf("seeded %d records into %s, index at %s\n", numRecords, heapPath, fileName)
}
