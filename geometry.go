package svfs

import (
	"math"

	vfserrors "github.com/dargueta/svfs/errors"
)

// Geometry holds the raw, user-chosen knobs for a disk image: how big a
// block is, how much of the image is reserved for the inode table, the total
// image size, and the widest a file name may be. Everything else about the
// image's on-disk layout is derived from these four numbers.
type Geometry struct {
	BlockSize uint32
	IndexSize uint32
	ImageSize uint32
	NameSize  uint32
}

// Layout is the full set of derived, read-only quantities computed once at
// open time from a Geometry. The image is laid out bitmap first, then the
// index table, then data blocks.
type Layout struct {
	Geometry

	// NumBlocks is the total number of data blocks the image can hold.
	NumBlocks uint32
	// BlockIndexWidth is the number of bytes needed to encode any block
	// count or block index (ceil(log2(NumBlocks) / 8)).
	BlockIndexWidth uint32
	// BitmapSize is the size, in bytes, of the free-block bitmap at the
	// head of the image.
	BitmapSize uint32
	// IndexEntrySize is the width, in bytes, of one encoded inode entry.
	IndexEntrySize uint32
	// MaxIndexEntries is how many inode slots the index table holds.
	MaxIndexEntries uint32
}

// DataOffset returns the byte offset of the start of the given block in the
// image file.
func (l Layout) DataOffset(block uint32) int64 {
	return int64(l.BitmapSize) + int64(l.IndexSize) + int64(block)*int64(l.BlockSize)
}

// IndexOffset returns the byte offset of the given index table slot.
func (l Layout) IndexOffset(slot uint32) int64 {
	return int64(l.BitmapSize) + int64(slot)*int64(l.IndexEntrySize)
}

// NewLayout computes a Layout from a Geometry, validating that the numbers
// describe a usable image.
func NewLayout(g Geometry) (Layout, error) {
	if g.BlockSize == 0 {
		return Layout{}, vfserrors.ErrInvalidArgument.WithMessage("block size must be nonzero")
	}
	if g.ImageSize < uint32(g.BlockSize) {
		return Layout{}, vfserrors.ErrInvalidArgument.WithMessage(
			"file system size must hold at least one block")
	}

	numBlocks := g.ImageSize / g.BlockSize
	if numBlocks == 0 {
		return Layout{}, vfserrors.ErrInvalidArgument.WithMessage("geometry yields zero blocks")
	}

	width := blockIndexWidth(numBlocks)
	bitmapSize := numBlocks / 8
	if numBlocks%8 != 0 {
		bitmapSize++
	}

	indexEntrySize := uint32(4) + g.NameSize + width + width + 1 + width + 4 + 4
	if indexEntrySize == 0 {
		return Layout{}, vfserrors.ErrInvalidArgument.WithMessage("index entry size is zero")
	}
	maxEntries := g.IndexSize / indexEntrySize

	return Layout{
		Geometry:        g,
		NumBlocks:       numBlocks,
		BlockIndexWidth: width,
		BitmapSize:      bitmapSize,
		IndexEntrySize:  indexEntrySize,
		MaxIndexEntries: maxEntries,
	}, nil
}

// blockIndexWidth returns ceil(log2(numBlocks) / 8), the number of bytes
// needed to encode any block count or index up to numBlocks.
func blockIndexWidth(numBlocks uint32) uint32 {
	if numBlocks <= 1 {
		return 1
	}
	bits := math.Log2(float64(numBlocks))
	width := math.Ceil(bits / 8)
	if width < 1 {
		width = 1
	}
	return uint32(width)
}
