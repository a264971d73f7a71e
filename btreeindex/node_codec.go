package btreeindex

import (
	"encoding/binary"

	"DexDB/types"
)

/*
Typed views over a pinned 4KB page. A view never copies, every accessor
reads or writes the frame bytes in place, so mutations are visible to the
buffer pool as soon as they happen.

Page layouts (little-endian, checksum trailer in the last 8 bytes is owned
by the disk manager and never touched here):

Meta (page 0):
  relationName [32]byte | attrByteOffset i32 | attrType i32 |
  rootPageID i32 | rootLevel i32

Leaf:
  keyArray [340]i32 | ridArray [340]{pageNo i32, slotNo i32} |
  rightSibling i32
  Occupancy is implicit: the first slot whose rid page number is zero ends
  the used prefix.

Internal:
  level i32 | keyArray [509]i32 | childArray [510]i32
  Occupancy is implicit: the first child slot beyond child 0 holding zero
  ends the used prefix.
*/

const (
	metaRelationNameLen = 32
	metaAttrOffsetOff   = 32
	metaAttrTypeOff     = 36
	metaRootPageOff     = 40
	metaRootLevelOff    = 44

	leafKeysOff    = 0
	leafRidsOff    = leafCapacity * 4
	leafSiblingOff = leafRidsOff + leafCapacity*8

	internalLevelOff    = 0
	internalKeysOff     = 4
	internalChildrenOff = internalKeysOff + internalCapacity*4
)

// ############################################# META VIEW ################################################

type metaView struct {
	data []byte
}

func (m metaView) relationName() string {
	raw := m.data[:metaRelationNameLen]
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func (m metaView) setRelationName(name string) {
	raw := m.data[:metaRelationNameLen]
	for i := range raw {
		raw[i] = 0
	}
	copy(raw, name)
}

func (m metaView) attrByteOffset() int32 {
	return int32(binary.LittleEndian.Uint32(m.data[metaAttrOffsetOff:]))
}

func (m metaView) setAttrByteOffset(v int32) {
	binary.LittleEndian.PutUint32(m.data[metaAttrOffsetOff:], uint32(v))
}

func (m metaView) attrType() types.Datatype {
	return types.Datatype(binary.LittleEndian.Uint32(m.data[metaAttrTypeOff:]))
}

func (m metaView) setAttrType(v types.Datatype) {
	binary.LittleEndian.PutUint32(m.data[metaAttrTypeOff:], uint32(v))
}

func (m metaView) rootPageID() int32 {
	return int32(binary.LittleEndian.Uint32(m.data[metaRootPageOff:]))
}

func (m metaView) setRootPageID(v int32) {
	binary.LittleEndian.PutUint32(m.data[metaRootPageOff:], uint32(v))
}

func (m metaView) rootLevel() int32 {
	return int32(binary.LittleEndian.Uint32(m.data[metaRootLevelOff:]))
}

func (m metaView) setRootLevel(v int32) {
	binary.LittleEndian.PutUint32(m.data[metaRootLevelOff:], uint32(v))
}

// ############################################# LEAF VIEW ################################################

type leafView struct {
	data []byte
}

func (l leafView) key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(l.data[leafKeysOff+i*4:]))
}

func (l leafView) setKey(i int, v int32) {
	binary.LittleEndian.PutUint32(l.data[leafKeysOff+i*4:], uint32(v))
}

func (l leafView) rid(i int) types.RecordID {
	off := leafRidsOff + i*8
	return types.RecordID{
		PageNumber: int32(binary.LittleEndian.Uint32(l.data[off:])),
		SlotNumber: int32(binary.LittleEndian.Uint32(l.data[off+4:])),
	}
}

func (l leafView) setRid(i int, rid types.RecordID) {
	off := leafRidsOff + i*8
	binary.LittleEndian.PutUint32(l.data[off:], uint32(rid.PageNumber))
	binary.LittleEndian.PutUint32(l.data[off+4:], uint32(rid.SlotNumber))
}

func (l leafView) rightSibling() int32 {
	return int32(binary.LittleEndian.Uint32(l.data[leafSiblingOff:]))
}

func (l leafView) setRightSibling(v int32) {
	binary.LittleEndian.PutUint32(l.data[leafSiblingOff:], uint32(v))
}

// count returns the number of used slots, the first zero rid page number
// ends the prefix.
func (l leafView) count() int {
	for i := 0; i < leafCapacity; i++ {
		if l.rid(i).IsZero() {
			return i
		}
	}
	return leafCapacity
}

// clearFrom zeroes slots from index i to the end.
func (l leafView) clearFrom(i int) {
	for ; i < leafCapacity; i++ {
		l.setKey(i, 0)
		l.setRid(i, types.RecordID{})
	}
}

// ############################################# INTERNAL VIEW ############################################

type internalView struct {
	data []byte
}

func (n internalView) level() int32 {
	return int32(binary.LittleEndian.Uint32(n.data[internalLevelOff:]))
}

func (n internalView) setLevel(v int32) {
	binary.LittleEndian.PutUint32(n.data[internalLevelOff:], uint32(v))
}

func (n internalView) key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(n.data[internalKeysOff+i*4:]))
}

func (n internalView) setKey(i int, v int32) {
	binary.LittleEndian.PutUint32(n.data[internalKeysOff+i*4:], uint32(v))
}

func (n internalView) child(i int) int32 {
	return int32(binary.LittleEndian.Uint32(n.data[internalChildrenOff+i*4:]))
}

func (n internalView) setChild(i int, v int32) {
	binary.LittleEndian.PutUint32(n.data[internalChildrenOff+i*4:], uint32(v))
}

// keyCount returns the number of separator keys, the first zero child
// beyond child 0 ends the prefix.
func (n internalView) keyCount() int {
	for i := 0; i < internalCapacity; i++ {
		if n.child(i+1) == 0 {
			return i
		}
	}
	return internalCapacity
}

// clearFrom zeroes keys from index i and children from index i+1 onward.
func (n internalView) clearFrom(i int) {
	for j := i; j < internalCapacity; j++ {
		n.setKey(j, 0)
	}
	for j := i + 1; j <= internalCapacity; j++ {
		n.setChild(j, 0)
	}
}
