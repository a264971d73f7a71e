// Index file inspection for debugging.
// Use InspectIndexFile(path) to print a human-readable dump of an index file.

package btreeindex

import (
	"fmt"
	"io"
	"os"

	"DexDB/diskmanager"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// InspectIndexFile prints a human-readable dump of the index file to
// stdout.
func InspectIndexFile(indexPath string) error {
	return InspectIndexFileTo(os.Stdout, indexPath)
}

// InspectIndexFileTo writes a dump of the index file to w: the meta page,
// then every node per level in BFS order, with leaf entries as key -> rid.
func InspectIndexFileTo(w io.Writer, indexPath string) error {
	dm, err := diskmanager.NewDiskManager(zap.NewNop())
	if err != nil {
		return err
	}
	defer dm.Close()

	fileID, err := dm.OpenFile(indexPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(indexPath)
	if err != nil {
		return err
	}
	pageCount, err := dm.PageCount(fileID)
	if err != nil {
		return err
	}

	metaData, err := dm.ReadPage(fileID, metaPageNo)
	if err != nil {
		return errors.Wrap(err, "read meta page")
	}
	meta := metaView{metaData}

	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Index file: %s (%s, %d pages)\n", indexPath, humanize.Bytes(uint64(info.Size())), pageCount)
	p("  Page 0 (meta): relation=%q offset=%d type=%s root=%d level=%d\n",
		meta.relationName(), meta.attrByteOffset(), meta.attrType(),
		meta.rootPageID(), meta.rootLevel())

	if meta.rootPageID() == 0 {
		p("  (empty tree)\n")
		return nil
	}

	queue := []int32{meta.rootPageID()}
	level := meta.rootLevel()

	for len(queue) > 0 {
		size := len(queue)
		p("\n  Level %d:\n", level)
		for i := 0; i < size; i++ {
			pageNo := queue[i]
			data, err := dm.ReadPage(fileID, pageNo)
			if err != nil {
				p("    [page %d] read error: %v\n", pageNo, err)
				continue
			}

			if level > 0 {
				node := internalView{data}
				kc := node.keyCount()
				p("    [page %d] INTERNAL keys=%d:", pageNo, kc)
				for j := 0; j < kc; j++ {
					p(" %d", node.key(j))
				}
				p(" children:")
				for j := 0; j <= kc; j++ {
					p(" %d", node.child(j))
					if node.child(j) != 0 {
						queue = append(queue, node.child(j))
					}
				}
				p("\n")
			} else {
				leaf := leafView{data}
				count := leaf.count()
				p("    [page %d] LEAF entries=%d sibling=%d\n", pageNo, count, leaf.rightSibling())
				for j := 0; j < count; j++ {
					rid := leaf.rid(j)
					p("      %d -> (page=%d slot=%d)\n", leaf.key(j), rid.PageNumber, rid.SlotNumber)
				}
			}
		}
		queue = queue[size:]
		level--
	}

	return nil
}
