package heapfile

import (
	"encoding/binary"

	"DexDB/types"
)

// writePageHeader serializes the page header into the first bytes of the page
func writePageHeader(page []byte, header *PageHeader) {
	binary.LittleEndian.PutUint16(page[0:2], header.FreePtr)
	binary.LittleEndian.PutUint16(page[2:4], header.SlotCount)
	// bytes 4-7 are reserved
}

// readPageHeader deserializes the page header
func readPageHeader(page []byte) *PageHeader {
	return &PageHeader{
		FreePtr:   binary.LittleEndian.Uint16(page[0:2]),
		SlotCount: binary.LittleEndian.Uint16(page[2:4]),
	}
}

// readSlot reads a slot entry from the slot directory.
// Slots are stored backward from the end of the payload region: slot 0 is
// the last SlotSize bytes before the checksum trailer, slot 1 before it.
func readSlot(page []byte, slotIndex uint16) *Slot {
	header := readPageHeader(page)
	if slotIndex >= header.SlotCount {
		return nil
	}
	slotOffset := uint16(types.PayloadSize) - (slotIndex+1)*SlotSize
	return &Slot{
		Offset: binary.LittleEndian.Uint16(page[slotOffset : slotOffset+2]),
		Length: binary.LittleEndian.Uint16(page[slotOffset+2 : slotOffset+4]),
	}
}

// addSlot appends a slot entry and returns its index
func addSlot(page []byte, recordOffset, recordLength uint16) uint16 {
	header := readPageHeader(page)
	slotIndex := header.SlotCount

	slotOffset := uint16(types.PayloadSize) - (slotIndex+1)*SlotSize
	binary.LittleEndian.PutUint16(page[slotOffset:slotOffset+2], recordOffset)
	binary.LittleEndian.PutUint16(page[slotOffset+2:slotOffset+4], recordLength)

	header.SlotCount++
	writePageHeader(page, header)

	return slotIndex
}

// freeSpace is the gap between the record heap and the slot directory
func freeSpace(header *PageHeader) int {
	slotDirStart := types.PayloadSize - int(header.SlotCount)*SlotSize
	return slotDirStart - int(header.FreePtr)
}

// initRecordPage prepares a zeroed page as an empty slotted record page
func initRecordPage(page []byte) {
	writePageHeader(page, &PageHeader{FreePtr: PageHeaderSize})
}
