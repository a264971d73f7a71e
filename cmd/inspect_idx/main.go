// Inspect an index file.
// Usage: go run ./cmd/inspect_idx <path-to-index>
// Example: go run ./cmd/inspect_idx data/employees.0
package main

import (
	"fmt"
	"os"

	"DexDB/btreeindex"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s data/employees.0\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]
	if err := btreeindex.InspectIndexFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
