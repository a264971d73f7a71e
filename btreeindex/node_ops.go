package btreeindex

import "DexDB/types"

/*
Single-node operations. Each works on one or two pinned pages through the
codec views, pinning and page traffic stay with the caller.
*/

// searchLeaf returns the first slot whose key is >= v, or count when no
// such slot exists. Scans position with this.
func searchLeaf(leaf leafView, v int32, count int) int {
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if leaf.key(mid) < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// leafInsertPos returns the first slot whose key is > v, so equal keys
// keep their arrival order.
func leafInsertPos(leaf leafView, v int32, count int) int {
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if leaf.key(mid) <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// searchInternal returns the child index to descend into for v: the first
// separator strictly greater than v, so a key equal to a separator goes
// right of it.
func searchInternal(node internalView, v int32, keyCount int) int {
	lo, hi := 0, keyCount
	for lo < hi {
		mid := (lo + hi) / 2
		if node.key(mid) <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// searchInternalScan returns the child index to descend into when looking
// for the first entry >= v: the first separator >= v. Keys equal to a
// separator normally live right of it, but a duplicate run split across
// leaves can leave equal keys in the left subtree, so scans land left and
// rely on the sibling walk.
func searchInternalScan(node internalView, v int32, keyCount int) int {
	lo, hi := 0, keyCount
	for lo < hi {
		mid := (lo + hi) / 2
		if node.key(mid) < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// insertIntoLeaf shifts the tail right and places the new entry at its
// sorted position. The leaf must have a free slot.
func insertIntoLeaf(leaf leafView, key int32, rid types.RecordID, count int) {
	pos := leafInsertPos(leaf, key, count)
	for i := count; i > pos; i-- {
		leaf.setKey(i, leaf.key(i-1))
		leaf.setRid(i, leaf.rid(i-1))
	}
	leaf.setKey(pos, key)
	leaf.setRid(pos, rid)
}

// splitLeaf distributes a full leaf plus one new entry across left and
// right. Left keeps the first ceil((cap+1)/2) entries, the separator is
// the right page's first key. The right page inherits left's old sibling
// link, the caller re-points left at the new right page.
func splitLeaf(left, right leafView, key int32, rid types.RecordID) int32 {
	keys := make([]int32, 0, leafCapacity+1)
	rids := make([]types.RecordID, 0, leafCapacity+1)

	pos := leafInsertPos(left, key, leafCapacity)
	for i := 0; i < pos; i++ {
		keys = append(keys, left.key(i))
		rids = append(rids, left.rid(i))
	}
	keys = append(keys, key)
	rids = append(rids, rid)
	for i := pos; i < leafCapacity; i++ {
		keys = append(keys, left.key(i))
		rids = append(rids, left.rid(i))
	}

	leftCount := (leafCapacity + 2) / 2

	for i := 0; i < leftCount; i++ {
		left.setKey(i, keys[i])
		left.setRid(i, rids[i])
	}
	left.clearFrom(leftCount)

	for i := leftCount; i < len(keys); i++ {
		right.setKey(i-leftCount, keys[i])
		right.setRid(i-leftCount, rids[i])
	}

	right.setRightSibling(left.rightSibling())

	return right.key(0)
}

// insertIntoInternal places a separator and its right child at the sorted
// position. The node must have a free slot.
func insertIntoInternal(node internalView, sep int32, rightChild int32, keyCount int) {
	pos := searchInternal(node, sep, keyCount)
	for i := keyCount; i > pos; i-- {
		node.setKey(i, node.key(i-1))
		node.setChild(i+1, node.child(i))
	}
	node.setKey(pos, sep)
	node.setChild(pos+1, rightChild)
}

// splitInternal distributes a full internal node plus one new separator
// across left and right. The middle separator moves up to the parent and
// appears in neither half.
func splitInternal(left, right internalView, sep int32, rightChild int32) int32 {
	keys := make([]int32, 0, internalCapacity+1)
	children := make([]int32, 0, internalCapacity+2)

	pos := searchInternal(left, sep, internalCapacity)
	children = append(children, left.child(0))
	for i := 0; i < pos; i++ {
		keys = append(keys, left.key(i))
		children = append(children, left.child(i+1))
	}
	keys = append(keys, sep)
	children = append(children, rightChild)
	for i := pos; i < internalCapacity; i++ {
		keys = append(keys, left.key(i))
		children = append(children, left.child(i+1))
	}

	mid := len(keys) / 2
	pushed := keys[mid]

	right.setLevel(left.level())
	right.setChild(0, children[mid+1])
	for i := mid + 1; i < len(keys); i++ {
		right.setKey(i-mid-1, keys[i])
		right.setChild(i-mid, children[i+1])
	}

	for i := 0; i < mid; i++ {
		left.setKey(i, keys[i])
		left.setChild(i+1, children[i+1])
	}
	left.clearFrom(mid)

	return pushed
}
