package svfs

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"

	vfserrors "github.com/dargueta/svfs/errors"
)

// Inode is the in-memory form of one index table entry. Field widths on disk
// are geometry-dependent (see Layout.BlockIndexWidth); in memory everything
// widens to uint32 for simplicity.
type Inode struct {
	ID            uint32
	Name          string
	StartBlock    uint32
	Blocks        uint32
	IsDirectory   bool
	ChildrenCount uint32
	CreatedAt     uint32
	ModifiedAt    uint32
}

// encode packs the inode into a Layout.IndexEntrySize buffer:
//
//	id(4) | name(NameSize, NUL-padded) | blocks(w) | start_block(w) |
//	is_directory(1) | children_count(w) | created_at(4) | modified_at(4)
func (n *Inode) encode(layout Layout) ([]byte, error) {
	nameBytes := []byte(n.Name)
	if uint32(len(nameBytes)) > layout.NameSize {
		return nil, vfserrors.ErrNameTooLong.WithMessage(n.Name)
	}

	buf := make([]byte, layout.IndexEntrySize)
	w := bytewriter.New(buf)

	if err := binary.Write(w, binary.BigEndian, n.ID); err != nil {
		return nil, err
	}

	padded := make([]byte, layout.NameSize)
	copy(padded, nameBytes)
	if _, err := w.Write(padded); err != nil {
		return nil, err
	}

	width := layout.BlockIndexWidth
	widthBuf := make([]byte, width)

	putUintBE(widthBuf, n.Blocks, width)
	if _, err := w.Write(widthBuf); err != nil {
		return nil, err
	}

	putUintBE(widthBuf, n.StartBlock, width)
	if _, err := w.Write(widthBuf); err != nil {
		return nil, err
	}

	var flag byte
	if n.IsDirectory {
		flag = 1
	}
	if _, err := w.Write([]byte{flag}); err != nil {
		return nil, err
	}

	putUintBE(widthBuf, n.ChildrenCount, width)
	if _, err := w.Write(widthBuf); err != nil {
		return nil, err
	}

	if err := binary.Write(w, binary.BigEndian, n.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.BigEndian, n.ModifiedAt); err != nil {
		return nil, err
	}

	return buf, nil
}

// decodeInode unpacks a Layout.IndexEntrySize buffer into an Inode. The
// caller is responsible for checking the slot isn't all-zero (free) first.
func decodeInode(data []byte, layout Layout) (Inode, error) {
	if uint32(len(data)) != layout.IndexEntrySize {
		return Inode{}, vfserrors.ErrCorruption.WithMessage("short index entry")
	}

	var n Inode
	offset := 0

	n.ID = binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	nameEnd := offset + int(layout.NameSize)
	n.Name = trimNulPadding(data[offset:nameEnd])
	offset = nameEnd

	width := int(layout.BlockIndexWidth)
	n.Blocks = getUintBE(data[offset:offset+width], layout.BlockIndexWidth)
	offset += width

	n.StartBlock = getUintBE(data[offset:offset+width], layout.BlockIndexWidth)
	offset += width

	n.IsDirectory = data[offset] != 0
	offset++

	n.ChildrenCount = getUintBE(data[offset:offset+width], layout.BlockIndexWidth)
	offset += width

	n.CreatedAt = binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	n.ModifiedAt = binary.BigEndian.Uint32(data[offset : offset+4])

	return n, nil
}

func isZeroEntry(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func trimNulPadding(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// putUintBE writes the low `width` bytes of v into buf, big-endian. width is
// assumed <= 4, true for any geometry whose block count fits in a uint32.
func putUintBE(buf []byte, v uint32, width uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	copy(buf, tmp[4-width:])
}

func getUintBE(buf []byte, width uint32) uint32 {
	var tmp [4]byte
	copy(tmp[4-width:], buf)
	return binary.BigEndian.Uint32(tmp[:])
}
